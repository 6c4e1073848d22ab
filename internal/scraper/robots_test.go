package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/cse/internal/fingerprint"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
	})
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	return fetcher
}

func TestRobotsTxtAuditor_IsAllowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`
User-agent: *
Disallow: /admin/
Allow: /admin/public/

User-agent: BadBot
Disallow: /
		`))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher := newTestFetcher(t)
	ctx := context.Background()

	good := NewRobotsTxtAuditor(fetcher, "GoodBot", quietLogger())
	tests := []struct {
		path string
		want bool
	}{
		{"/public-page", true},
		{"/admin/secret", false},
		{"/admin/public/index.html", true},
	}
	for _, tt := range tests {
		allowed, err := good.IsAllowed(ctx, ts.URL+tt.path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if allowed != tt.want {
			t.Errorf("IsAllowed(%s) = %v, want %v", tt.path, allowed, tt.want)
		}
	}

	bad := NewRobotsTxtAuditor(fetcher, "BadBot", quietLogger())
	if allowed, _ := bad.IsAllowed(ctx, ts.URL+"/public-page"); allowed {
		t.Errorf("expected /public-page to be disallowed for BadBot")
	}
}

func TestRobotsTxtAuditor_MissingRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	auditor := NewRobotsTxtAuditor(newTestFetcher(t), "", quietLogger())
	allowed, err := auditor.IsAllowed(context.Background(), ts.URL+"/anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Errorf("expected missing robots.txt to default to allowed")
	}
}

func TestRobotsTxtAuditor_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	target := ts.URL + "/page"
	ts.Close()

	auditor := NewRobotsTxtAuditor(newTestFetcher(t), "", quietLogger())
	allowed, err := auditor.IsAllowed(context.Background(), target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Errorf("expected unreachable robots.txt to default to allowed")
	}
}

func TestRobotsTxtAuditor_CachesPerHost(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	auditor := NewRobotsTxtAuditor(newTestFetcher(t), "", quietLogger())
	for _, p := range []string{"/a", "/b", "/private/c"} {
		_, _ = auditor.IsAllowed(context.Background(), ts.URL+p)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", n)
	}
}

func TestRobotsTxtAuditor_InvalidURL(t *testing.T) {
	auditor := NewRobotsTxtAuditor(newTestFetcher(t), "", quietLogger())
	if _, err := auditor.IsAllowed(context.Background(), "http://[::1"); err == nil {
		t.Error("expected error for invalid url")
	}
}
