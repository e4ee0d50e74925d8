package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultServerURL = "http://127.0.0.1:37780"
	defaultTimeout   = 5 * time.Second
	defaultRate      = 20
	defaultBurst     = 5
)

// ClientOptions configures an HTTPClient. Zero fields take defaults.
type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	Rate    float64 // requests per second
	Burst   int
}

// HTTPClient talks to a graphwalk server's JSON API.
//
// Concurrent expansions of the same entity share a single request, and all
// requests pass through a token bucket so a burst of clicks cannot flood the
// backend.
type HTTPClient struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	flight  singleflight.Group
}

// NewHTTPClient creates a client. An empty BaseURL falls back to the
// GRAPHWALK_URL env var, then to http://127.0.0.1:37780.
func NewHTTPClient(opts ClientOptions) *HTTPClient {
	base := opts.BaseURL
	if base == "" {
		base = os.Getenv("GRAPHWALK_URL")
	}
	if base == "" {
		base = defaultServerURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Rate <= 0 {
		opts.Rate = defaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	return &HTTPClient{
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: base,
		limiter: rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
	}
}

// BaseURL returns the server address requests are sent to.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

func (c *HTTPClient) SearchByQuery(ctx context.Context, text string, limit int, category string) (SearchResult, error) {
	q := url.Values{}
	q.Set("q", text)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if category != "" {
		q.Set("category", category)
	}

	var res SearchResult
	if err := c.getJSON(ctx, "search", "/api/search?"+q.Encode(), &res); err != nil {
		return SearchResult{}, err
	}
	return res, nil
}

func (c *HTTPClient) NeighborsByID(ctx context.Context, id string) (Neighbors, error) {
	ch := c.flight.DoChan(id, func() (any, error) {
		var nb Neighbors
		err := c.getJSON(context.WithoutCancel(ctx), "neighbors", "/api/entities/"+url.PathEscape(id)+"/neighbors", &nb)
		return nb, err
	})

	select {
	case <-ctx.Done():
		return Neighbors{}, &NetworkError{Op: "neighbors", Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return Neighbors{}, r.Err
		}
		return r.Val.(Neighbors), nil
	}
}

// Healthy checks if the server is reachable.
func (c *HTTPClient) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *HTTPClient) getJSON(ctx context.Context, op, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", apiError(data))}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// apiError extracts the message from an {"error": "..."} body.
func apiError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return string(body)
}
