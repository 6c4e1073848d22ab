// Package pipeline runs a search and extracts the text of every result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/cse/internal/metrics"
	"github.com/FranksOps/cse/internal/output"
	"github.com/FranksOps/cse/internal/page"
	"github.com/FranksOps/cse/internal/serp"
	"golang.org/x/sync/errgroup"
)

// LinkCollector gathers result links for a query. *serp.Collector
// satisfies it.
type LinkCollector interface {
	Collect(ctx context.Context, q serp.Query, numResults int) ([]string, error)
}

// Extractor turns one URL into a record. It must not return nil.
// *scraper.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, url string) *page.Record
}

// Pipeline wires link collection to page extraction and output.
type Pipeline struct {
	Collector LinkCollector
	Extractor Extractor
	Sink      output.Sink
	// OnLinks is called once with the number of collected links.
	OnLinks func(n int)
	// OnRecord is called after each record is written.
	OnRecord func(rec *page.Record)
	Logger   *slog.Logger
}

// Result is the outcome of a Run.
type Result struct {
	Links   []string
	Records []*page.Record
	Start   time.Time
	End     time.Time
}

// Run collects links for q and extracts each one in order. Collection
// failures abort before any page is fetched. Extraction failures are
// recorded and never abort.
func (p *Pipeline) Run(ctx context.Context, q serp.Query, numResults int) (*Result, error) {
	if p.Collector == nil {
		return nil, errors.New("pipeline: collector is nil")
	}
	if p.Extractor == nil {
		return nil, errors.New("pipeline: extractor is nil")
	}
	if p.Sink == nil {
		return nil, errors.New("pipeline: sink is nil")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &Result{Start: time.Now()}
	defer func() { res.End = time.Now() }()

	links, err := p.Collector.Collect(ctx, q, numResults)
	if err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}
	res.Links = links
	logger.Info("collected links", "query", q.Text, "links", len(links))
	if p.OnLinks != nil {
		p.OnLinks(len(links))
	}

	if err := p.extractAll(ctx, links, res); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		logger.Warn("extraction interrupted", "extracted", len(res.Records), "links", len(links))
		return res, fmt.Errorf("pipeline: %w", err)
	}
	if err := p.Sink.Flush(); err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}
	return res, nil
}

// extractAll fetches links one at a time while the previous record is
// written. A sink error stops extraction.
func (p *Pipeline) extractAll(ctx context.Context, links []string, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	records := make(chan *page.Record)

	g.Go(func() error {
		defer close(records)
		for _, link := range links {
			if gctx.Err() != nil {
				return nil
			}
			rec := p.Extractor.Extract(gctx, link)
			select {
			case records <- rec:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		for rec := range records {
			metrics.RecordPage(rec)
			res.Records = append(res.Records, rec)
			if err := p.Sink.Write(rec); err != nil {
				return fmt.Errorf("pipeline: %w", err)
			}
			if p.OnRecord != nil {
				p.OnRecord(rec)
			}
		}
		return nil
	})

	return g.Wait()
}
