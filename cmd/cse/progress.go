package main

import (
	"fmt"
	"io"

	"github.com/FranksOps/cse/internal/page"
	"github.com/pterm/pterm"
)

// progress shows a spinner while links are collected and a bar while pages
// are extracted. A nil *progress does nothing.
type progress struct {
	w       io.Writer
	spinner *pterm.SpinnerPrinter
	bar     *pterm.ProgressbarPrinter
}

func startProgress(w io.Writer, query string) *progress {
	p := &progress{w: w}
	p.spinner, _ = pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(true).
		Start(fmt.Sprintf("Searching for %q ...", query))
	return p
}

func (p *progress) links(n int) {
	if p == nil {
		return
	}
	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}
	if n == 0 {
		return
	}
	p.bar, _ = pterm.DefaultProgressbar.
		WithWriter(p.w).
		WithTotal(n).
		WithTitle("Extracting").
		WithRemoveWhenDone(true).
		Start()
}

func (p *progress) record(rec *page.Record) {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.UpdateTitle(rec.URL)
	p.bar.Increment()
}

func (p *progress) stop() {
	if p == nil {
		return
	}
	if p.spinner != nil {
		_ = p.spinner.Stop()
	}
	if p.bar != nil {
		_, _ = p.bar.Stop()
	}
}
