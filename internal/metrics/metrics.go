package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/cse/internal/page"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cse_api_requests_total",
			Help: "Search API result page requests by HTTP status",
		},
		[]string{"status"},
	)

	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cse_pages_total",
			Help: "Linked pages processed by extraction outcome",
		},
		[]string{"domain", "outcome", "detection_src"},
	)

	PageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cse_page_duration_seconds",
			Help:    "Fetch and extraction time per linked page",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	PageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cse_page_bytes_total",
			Help: "Bytes downloaded across all linked pages",
		},
		[]string{"domain"},
	)
)

// RecordAPIPage counts one search API request. statusCode is ignored when
// err is non-nil.
func RecordAPIPage(statusCode int, err error) {
	status := strconv.Itoa(statusCode)
	if err != nil {
		status = "error"
	}
	APIRequestsTotal.WithLabelValues(status).Inc()
}

// RecordPage updates the page metrics from an extraction record.
func RecordPage(rec *page.Record) {
	if rec == nil {
		return
	}

	domain := ""
	if u, err := url.Parse(rec.URL); err == nil {
		domain = u.Hostname()
	}

	PagesTotal.WithLabelValues(domain, string(rec.Status), rec.DetectionSrc).Inc()
	PageDuration.WithLabelValues(domain).Observe(rec.Duration.Seconds())
	PageBytesTotal.WithLabelValues(domain).Add(float64(rec.Bytes))
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start listens on addr and serves /metrics in the background. Use port 0
// to pick a free port and read it back with Addr.
func Start(addr string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", ln.Addr().String(), "err", err)
		}
	}()

	return &Server{srv: srv, ln: ln}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
