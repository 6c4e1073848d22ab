package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/cse/internal/bypass"
	"github.com/FranksOps/cse/internal/extract"
	"github.com/FranksOps/cse/internal/page"
	"github.com/google/uuid"
)

var (
	// ErrUnexpectedStatus marks a page that answered with anything but 200.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrDisallowedByRobots marks a page skipped because of robots.txt.
	ErrDisallowedByRobots = errors.New("disallowed by robots.txt")
)

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	Policy extract.Policy
	// Robots, when set, is consulted before every fetch.
	Robots *RobotsTxtAuditor
	// Signatures label blocked responses. Nil means bypass.DefaultSignatures.
	Signatures []bypass.Signature
	Logger     *slog.Logger
}

// Extractor fetches a page and reduces it to visible text. Failures are
// recorded on the returned page.Record and logged, never returned.
type Extractor struct {
	fetcher    *Fetcher
	policy     extract.Policy
	robots     *RobotsTxtAuditor
	signatures []bypass.Signature
	logger     *slog.Logger
}

// NewExtractor creates an Extractor around fetcher.
func NewExtractor(fetcher *Fetcher, cfg ExtractorConfig) *Extractor {
	if cfg.Policy.Mode == "" {
		cfg.Policy = extract.DefaultPolicy()
	}
	if cfg.Signatures == nil {
		cfg.Signatures = bypass.DefaultSignatures
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		fetcher:    fetcher,
		policy:     cfg.Policy,
		robots:     cfg.Robots,
		signatures: cfg.Signatures,
		logger:     cfg.Logger,
	}
}

// Extract fetches targetURL and returns its extracted text. It never
// returns nil.
func (e *Extractor) Extract(ctx context.Context, targetURL string) (rec *page.Record) {
	start := time.Now()
	rec = &page.Record{
		ID:        uuid.New().String(),
		URL:       targetURL,
		CreatedAt: start.UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			rec.Text = ""
			rec.Status = page.StatusFailed
			rec.Err = fmt.Errorf("panic during extraction: %v", r)
		}
		rec.Duration = time.Since(start)
		if rec.Failed() {
			e.logger.Warn("failed to extract page", "url", targetURL, "status", rec.StatusCode, "err", rec.Err)
		}
	}()

	if e.robots != nil {
		allowed, err := e.robots.IsAllowed(ctx, targetURL)
		if err != nil {
			return fail(rec, err)
		}
		if !allowed {
			return fail(rec, ErrDisallowedByRobots)
		}
	}

	resp, err := e.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return fail(rec, err)
	}
	rec.StatusCode = resp.StatusCode
	rec.ContentType = resp.Header.Get("Content-Type")
	rec.Bytes = len(resp.Body)

	if resp.StatusCode != http.StatusOK {
		src, detected := bypass.Detect(bypass.Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
		}, e.signatures)
		if detected {
			rec.DetectedBot = true
			rec.DetectionSrc = src
			return fail(rec, fmt.Errorf("%w %d (blocked by %s)", ErrUnexpectedStatus, resp.StatusCode, src))
		}
		return fail(rec, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	text, err := e.policy.FromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return fail(rec, err)
	}

	rec.Text = text
	rec.Status = page.StatusExtracted
	if text == "" {
		rec.Status = page.StatusEmpty
	}
	e.logger.Debug("extracted page", "url", targetURL, "bytes", rec.Bytes, "chars", len(text))
	return rec
}

func fail(rec *page.Record, err error) *page.Record {
	rec.Status = page.StatusFailed
	rec.Err = err
	return rec
}
