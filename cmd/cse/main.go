// Command cse runs a Google Programmable Search query and prints the
// readable text of every result page.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/FranksOps/cse/internal/config"
	"github.com/FranksOps/cse/internal/metrics"
	"github.com/FranksOps/cse/internal/output"
	"github.com/FranksOps/cse/internal/pipeline"
	"github.com/FranksOps/cse/internal/report"
	"github.com/FranksOps/cse/internal/scraper"
	"github.com/FranksOps/cse/internal/serp"
	"github.com/FranksOps/cse/pkg/httpclient"
	"github.com/FranksOps/cse/pkg/useragent"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// robotsAgent is the product token matched against robots.txt groups.
const robotsAgent = "cse"

// usageError marks errors that should exit with exitUsage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(rewriteLegacyArgs(args))

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(stderr, "Error:", err)
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintln(stderr, "Run 'cse --help' for usage.")
		return exitUsage
	}
	return exitError
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cse -q QUERY [flags]",
		Short: "Search with Google Programmable Search and print each result's text",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unexpected arguments %q", args)}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				if errors.Is(err, config.ErrMissingQuery) || errors.Is(err, config.ErrInvalidValue) {
					return usageError{err}
				}
				return err
			}

			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			return execute(cmd.Context(), cfg, stdout, stderr, logger)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// rewriteLegacyArgs maps the single-dash -se spelling onto
// --search_engine_id. Arguments after "--" are left alone.
func rewriteLegacyArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			return append(out, args[i:]...)
		}
		switch {
		case a == "-se":
			a = "--" + config.KeySearchEngineID
		case strings.HasPrefix(a, "-se="):
			a = "--" + config.KeySearchEngineID + "=" + strings.TrimPrefix(a, "-se=")
		}
		out = append(out, a)
	}
	return out
}

func execute(ctx context.Context, cfg config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Start(cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	p, err := buildPipeline(cfg, stdout, logger)
	if err != nil {
		return err
	}

	var prog *progress
	if !cfg.NoProgress && isTerminal(stderr) {
		prog = startProgress(stderr, cfg.Query)
		p.OnLinks = prog.links
		p.OnRecord = prog.record
	}

	res, runErr := p.Run(ctx, cfg.SearchQuery(), cfg.TotalPages)
	prog.stop()

	if cfg.Summary && res != nil {
		summary := report.GenerateSummary(cfg.Query, len(res.Links), res.Records, res.Start, res.End)
		write := report.WriteText
		if cfg.Format == output.FormatJSONL {
			write = report.WriteJSON
		}
		if err := write(stderr, summary); err != nil {
			logger.Warn("failed to write summary", "err", err)
		}
	}
	return runErr
}

func buildPipeline(cfg config.Config, stdout io.Writer, logger *slog.Logger) (*pipeline.Pipeline, error) {
	apiClient, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	provider, err := serp.NewGoogleCSE(serp.GoogleConfig{
		Endpoint: cfg.Endpoint,
		Client:   apiClient,
		Logger:   logger,
	})
	if err != nil {
		return nil, usageError{err}
	}

	uaPool := useragent.NewPool(nil, useragent.ModeRandom)
	if cfg.UserAgent != "" {
		uaPool = useragent.Fixed(cfg.UserAgent)
	}
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.Timeout,
		UseCookieJar: true,
		UAPool:       uaPool,
		Fingerprint:  cfg.TLSProfile,
	})
	if err != nil {
		return nil, err
	}

	var robots *scraper.RobotsTxtAuditor
	if cfg.RespectRobots {
		robots = scraper.NewRobotsTxtAuditor(fetcher, robotsAgent, logger)
	}

	sink, err := output.New(cfg.Format, stdout, cfg.Preview)
	if err != nil {
		return nil, err
	}

	return &pipeline.Pipeline{
		Collector: serp.NewCollector(provider, cfg.OnPageError, logger),
		Extractor: scraper.NewExtractor(fetcher, scraper.ExtractorConfig{
			Policy: cfg.Policy,
			Robots: robots,
			Logger: logger,
		}),
		Sink:   sink,
		Logger: logger,
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
