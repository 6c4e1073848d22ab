package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/cse/internal/page"
)

func TestGenerateSummary(t *testing.T) {
	start := time.Now()

	records := []*page.Record{
		{
			Status:     page.StatusExtracted,
			Text:       "héllo",
			StatusCode: 200,
			Bytes:      3,
		},
		{
			Status:       page.StatusFailed,
			Err:          errors.New("unexpected status 403"),
			StatusCode:   403,
			Bytes:        4,
			DetectedBot:  true,
			DetectionSrc: "Cloudflare",
		},
		{
			Status: page.StatusFailed,
			Err:    errors.New("timeout"),
		},
		{
			Status:     page.StatusEmpty,
			StatusCode: 200,
		},
	}

	summary := GenerateSummary("golang", 5, records, start, start.Add(2*time.Second))

	if summary.Links != 5 || summary.Query != "golang" {
		t.Errorf("unexpected links/query %d %q", summary.Links, summary.Query)
	}
	if summary.Extracted != 1 || summary.Empty != 1 || summary.Failed != 2 {
		t.Errorf("unexpected outcome counts %d/%d/%d", summary.Extracted, summary.Empty, summary.Failed)
	}
	if summary.TotalDetections != 1 || summary.DetectionsBySrc["Cloudflare"] != 1 {
		t.Errorf("expected 1 Cloudflare detection, got %v", summary.DetectionsBySrc)
	}
	if summary.StatusCodes[200] != 2 || summary.StatusCodes[403] != 1 {
		t.Errorf("unexpected status codes %v", summary.StatusCodes)
	}
	if _, ok := summary.StatusCodes[0]; ok {
		t.Errorf("expected records without a response to be left out of status codes")
	}
	if summary.TotalBytes != 7 {
		t.Errorf("expected 7 total bytes, got %d", summary.TotalBytes)
	}
	if summary.TotalChars != 5 {
		t.Errorf("expected 5 chars, got %d", summary.TotalChars)
	}
	if summary.Duration != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", summary.Duration)
	}
}

func TestWriteJSON(t *testing.T) {
	summary := GenerateSummary("q", 2, nil, time.Time{}, time.Time{})
	var buf bytes.Buffer
	if err := WriteJSON(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["links"] != float64(2) {
		t.Errorf("expected links 2, got %v", decoded["links"])
	}
}

func TestWriteText(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	summary := GenerateSummary("golang", 1, []*page.Record{{
		Status:       page.StatusFailed,
		StatusCode:   403,
		DetectedBot:  true,
		DetectionSrc: "Akamai",
	}}, start, start.Add(time.Second))

	var buf bytes.Buffer
	if err := WriteText(&buf, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Query:         golang", "Failed:        1", "403: 1", "Akamai: 1", "2026-03-01 10:00:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
