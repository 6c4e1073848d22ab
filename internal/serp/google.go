package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/FranksOps/cse/internal/metrics"
	"github.com/FranksOps/cse/pkg/httpclient"
)

// DefaultEndpoint is the Custom Search JSON API.
const DefaultEndpoint = "https://customsearch.googleapis.com/customsearch/v1"

// maxResponseBytes bounds a single result page body.
const maxResponseBytes = 8 << 20

// GoogleConfig configures a GoogleCSE provider.
type GoogleConfig struct {
	// Endpoint overrides DefaultEndpoint.
	Endpoint string
	// Client is used for API calls. A default client is created when nil.
	Client *httpclient.Client
	Logger *slog.Logger
}

// GoogleCSE queries the Custom Search JSON API.
type GoogleCSE struct {
	endpoint *url.URL
	client   *httpclient.Client
	logger   *slog.Logger
}

// ensure GoogleCSE implements Provider
var _ Provider = (*GoogleCSE)(nil)

// NewGoogleCSE validates the configuration and returns a provider.
func NewGoogleCSE(cfg GoogleConfig) (*GoogleCSE, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("serp: invalid endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("serp: endpoint must use http or https: %q", cfg.Endpoint)
	}

	if cfg.Client == nil {
		cfg.Client, err = httpclient.New(httpclient.Config{})
		if err != nil {
			return nil, fmt.Errorf("serp: %w", err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &GoogleCSE{endpoint: endpoint, client: cfg.Client, logger: cfg.Logger}, nil
}

type cseItem struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
}

type cseResponse struct {
	// pointer so that an absent or null "items" is told apart from []
	Items *[]cseItem `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Page requests the result page beginning at start.
func (g *GoogleCSE) Page(ctx context.Context, q Query, start int) ([]Item, error) {
	u := *g.endpoint
	values := u.Query()
	for k, vs := range q.Values(start) {
		values[k] = vs
	}
	u.RawQuery = values.Encode()

	resp, err := g.client.Get(ctx, u.String(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		metrics.RecordAPIPage(0, err)
		return nil, fmt.Errorf("serp: request start=%d: %w", start, err)
	}
	defer resp.Body.Close()
	metrics.RecordAPIPage(resp.StatusCode, nil)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("serp: read start=%d: %w", start, err)
	}

	var data cseResponse
	if err := json.Unmarshal(body, &data); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("serp: start=%d: unexpected status %d", start, resp.StatusCode)
		}
		return nil, fmt.Errorf("serp: decode start=%d: %w", start, err)
	}

	if data.Items == nil {
		detail := fmt.Sprintf("start=%d status=%d", start, resp.StatusCode)
		if data.Error != nil && data.Error.Message != "" {
			detail += ": " + data.Error.Message
		}
		return nil, fmt.Errorf("%w (%s)", ErrMissingItems, detail)
	}

	items := make([]Item, 0, len(*data.Items))
	for i, it := range *data.Items {
		if it.Link == "" {
			return nil, fmt.Errorf("%w (start=%d index=%d)", ErrMissingLink, start, i)
		}
		items = append(items, Item{
			Link:        it.Link,
			Title:       it.Title,
			Snippet:     it.Snippet,
			DisplayLink: it.DisplayLink,
		})
	}

	g.logger.Debug("search api page", "start", start, "status", resp.StatusCode, "items", len(items))
	return items, nil
}
