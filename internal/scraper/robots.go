package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches robots.txt once per host and answers whether a
// URL may be fetched.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	agent   string
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance. agent is the product token
// matched against User-agent groups; "" means "*".
func NewRobotsTxtAuditor(fetcher *Fetcher, agent string, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	if agent == "" {
		agent = "*"
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		agent:   agent,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether targetURL may be fetched. A robots.txt that
// cannot be fetched or parsed allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	data := r.get(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, r.agent), nil
}

func (r *RobotsTxtAuditor) get(ctx context.Context, host string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[host]; ok {
		return data
	}

	data, err := r.fetch(ctx, host)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing all", "host", host, "err", err)
	}
	r.cache[host] = data
	return data
}

func (r *RobotsTxtAuditor) fetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	resp, err := r.fetcher.Fetch(ctx, host+"/robots.txt")
	if err != nil {
		return nil, fmt.Errorf("fetch error: %w", err)
	}

	// FromStatusAndBytes applies the usual conventions: 4xx allows all,
	// 5xx disallows all.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return data, nil
}
