package serp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

const (
	// PageSize is the number of results the API returns per request.
	PageSize = 10
	// FirstStart is the 1-based offset of the first result.
	FirstStart = 1
)

var (
	// ErrMissingItems is returned when a result page has no "items" array.
	// The API omits it both for errors and for queries past the last result.
	ErrMissingItems = errors.New("serp: response has no items")
	// ErrMissingLink is returned when a result item has no "link".
	ErrMissingLink = errors.New("serp: result item has no link")
)

// Query holds the request parameters that stay fixed across pages.
type Query struct {
	Text           string // q
	APIKey         string // key
	SearchEngineID string // cx
	Country        string // cr, e.g. "countryUS"
	DateRestrict   string // dateRestrict, e.g. "d7", "m3"
}

// Values encodes the query for the result page beginning at start. Empty
// optional fields are omitted.
func (q Query) Values(start int) url.Values {
	v := url.Values{}
	v.Set("q", q.Text)
	setIf(v, "key", q.APIKey)
	setIf(v, "cx", q.SearchEngineID)
	setIf(v, "cr", q.Country)
	setIf(v, "dateRestrict", q.DateRestrict)
	v.Set("start", strconv.Itoa(start))
	return v
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

// Item is one search result. Only Link is used downstream.
type Item struct {
	Link        string
	Title       string
	Snippet     string
	DisplayLink string
}

// Provider fetches one page of search results.
type Provider interface {
	Page(ctx context.Context, q Query, start int) ([]Item, error)
}

// Starts returns the page offsets requested for numResults: 1, 11, 21, ...
// up to but not including numResults. The last page is fetched in full, so
// a numResults that is not 1 more than a multiple of PageSize yields up to
// PageSize-1 extra links.
func Starts(numResults int) []int {
	var starts []int
	for start := FirstStart; start < numResults; start += PageSize {
		starts = append(starts, start)
	}
	return starts
}

// PageErrorPolicy decides what a failed result page does to the collection.
type PageErrorPolicy string

const (
	// PolicyAbort stops at the first failed page and returns no links.
	PolicyAbort PageErrorPolicy = "abort"
	// PolicySkip logs the failed page and carries on with the next one.
	PolicySkip PageErrorPolicy = "skip"
)

// ParsePageErrorPolicy validates a policy name. The empty string maps to
// PolicyAbort.
func ParsePageErrorPolicy(s string) (PageErrorPolicy, error) {
	switch p := PageErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("serp: unknown page error policy %q", s)
	}
}

// Collector paginates a Provider into an ordered link list.
type Collector struct {
	provider Provider
	policy   PageErrorPolicy
	logger   *slog.Logger
}

// NewCollector creates a Collector. An empty policy means PolicyAbort.
func NewCollector(provider Provider, policy PageErrorPolicy, logger *slog.Logger) *Collector {
	if policy == "" {
		policy = PolicyAbort
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{provider: provider, policy: policy, logger: logger}
}

// Collect requests every page in Starts(numResults) and returns the result
// links in API order. Duplicates are kept.
func (c *Collector) Collect(ctx context.Context, q Query, numResults int) ([]string, error) {
	if c.provider == nil {
		return nil, errors.New("serp: provider is nil")
	}

	links := []string{}
	for _, start := range Starts(numResults) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("serp: collect links: %w", err)
		}

		items, err := c.provider.Page(ctx, q, start)
		if err != nil {
			if c.policy == PolicySkip && ctx.Err() == nil {
				c.logger.Warn("skipping result page", "start", start, "err", err)
				continue
			}
			return nil, fmt.Errorf("serp: collect links: %w", err)
		}

		for _, item := range items {
			links = append(links, item.Link)
		}
		c.logger.Debug("collected result page", "start", start, "items", len(items))
	}
	return links, nil
}

// CollectLinks runs a Collector with PolicyAbort.
func CollectLinks(ctx context.Context, provider Provider, q Query, numResults int) ([]string, error) {
	return NewCollector(provider, PolicyAbort, nil).Collect(ctx, q, numResults)
}
