// Package commodash is a Go SDK for the commodity dashboard REST API. Every
// operation issues exactly one HTTP request and never retries; callers
// decide when to try again.
package commodash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"commodash/internal/domain"
	"commodash/internal/util"
)

// RequestIDHeader carries a per-request UUID for log correlation.
const RequestIDHeader = "X-Request-ID"

// Client talks to the dashboard backend rooted at baseURL + "/api".
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// HTTP client, never to one passed in with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimiter throttles outgoing requests. A nil limiter is a no-op.
func WithRateLimiter(rl *util.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new dashboard API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the API root including the /api prefix.
func (c *Client) BaseURL() string { return c.baseURL }

// ---------------------------------------------------------------------------
// Response envelopes
// ---------------------------------------------------------------------------

// History is the response of History.
type History struct {
	Symbol string                `json:"symbol"`
	Name   string                `json:"name"`
	Points []domain.HistoryPoint `json:"history"`
}

// Forecast is the response of Forecast.
type Forecast struct {
	Symbol string                 `json:"symbol"`
	Name   string                 `json:"name"`
	Model  string                 `json:"model"`
	Points []domain.ForecastPoint `json:"forecast"`
}

// NewsFeed is the response of News. Error is the backend's own upstream
// failure note; the request itself succeeded.
type NewsFeed struct {
	Articles []domain.NewsArticle `json:"articles"`
	Total    int                  `json:"total"`
	Error    string               `json:"error,omitempty"`
}

type commoditiesEnvelope struct {
	Commodities []domain.Commodity `json:"commodities"`
}

type watchlistEnvelope struct {
	Items []domain.WatchlistItem `json:"items"`
}

type addEnvelope struct {
	Message string               `json:"message"`
	Item    domain.WatchlistItem `json:"item"`
}

type routesEnvelope struct {
	Routes []domain.FreightRoute `json:"routes"`
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// ListCommodities fetches the live quote list.
func (c *Client) ListCommodities(ctx context.Context) ([]domain.Commodity, error) {
	var env commoditiesEnvelope
	if err := c.do(ctx, http.MethodGet, "/commodities", nil, &env); err != nil {
		return nil, err
	}
	return env.Commodities, nil
}

// GetCommodity fetches a single live quote.
func (c *Client) GetCommodity(ctx context.Context, symbol string) (*domain.Commodity, error) {
	var out domain.Commodity
	if err := c.do(ctx, http.MethodGet, "/commodities/"+url.PathEscape(symbol), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarketSummary fetches the top movers snapshot.
func (c *Client) MarketSummary(ctx context.Context) (*domain.MarketSummary, error) {
	var out domain.MarketSummary
	if err := c.do(ctx, http.MethodGet, "/market/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches days of daily bars for symbol.
func (c *Client) History(ctx context.Context, symbol string, days int) (*History, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out History
	if err := c.do(ctx, http.MethodGet, "/commodities/"+url.PathEscape(symbol)+"/history", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Forecast fetches the predicted series for symbol. days <= 0 leaves the
// horizon to the backend.
func (c *Client) Forecast(ctx context.Context, symbol string, days int) (*Forecast, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out Forecast
	if err := c.do(ctx, http.MethodGet, "/commodities/"+url.PathEscape(symbol)+"/forecast", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// News fetches up to limit articles. An empty category or "all" omits the
// filter.
func (c *Client) News(ctx context.Context, category string, limit int) (*NewsFeed, error) {
	q := url.Values{}
	if category != "" && category != "all" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out NewsFeed
	if err := c.do(ctx, http.MethodGet, "/news", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FreightQuote requests a shipping estimate. Inputs travel as query
// parameters with an empty body. Callers validate weightTons > 0 and
// origin != destination beforehand.
func (c *Client) FreightQuote(ctx context.Context, origin, destination, commodity string, weightTons float64) (*domain.FreightQuote, error) {
	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("commodity", commodity)
	q.Set("weight_tons", strconv.FormatFloat(weightTons, 'f', -1, 64))
	var out domain.FreightQuote
	if err := c.do(ctx, http.MethodPost, "/freight/quote", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FreightRoutes lists the backend's known shipping lanes.
func (c *Client) FreightRoutes(ctx context.Context) ([]domain.FreightRoute, error) {
	var env routesEnvelope
	if err := c.do(ctx, http.MethodGet, "/freight/routes", nil, &env); err != nil {
		return nil, err
	}
	return env.Routes, nil
}

// Watchlist fetches the persisted watchlist.
func (c *Client) Watchlist(ctx context.Context) ([]domain.WatchlistItem, error) {
	var env watchlistEnvelope
	if err := c.do(ctx, http.MethodGet, "/watchlist", nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// AddToWatchlist persists a new entry. An HTTP 400 means the symbol is
// already watched and yields an error matching ErrDuplicate.
func (c *Client) AddToWatchlist(ctx context.Context, symbol, name string, category domain.Category) (*domain.WatchlistItem, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("name", name)
	q.Set("category", string(category))
	var env addEnvelope
	err := c.do(ctx, http.MethodPost, "/watchlist", q, &env)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Status == http.StatusBadRequest {
			e.Kind = Duplicate
		}
		return nil, err
	}
	return &env.Item, nil
}

// RemoveFromWatchlist deletes the entry for symbol.
func (c *Client) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	return c.do(ctx, http.MethodDelete, "/watchlist/"+url.PathEscape(symbol), nil, nil)
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do performs one request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) error {
	op := method + " " + path
	fail := func(status int, err error) error {
		return &Error{Kind: FetchFailed, Op: op, Status: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(0, err)
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fail(0, fmt.Errorf("creating request: %w", err))
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "op", op, "request_id", reqID, "error", err)
		return fail(0, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request", "op", op, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, errorDetail(resp.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// errorDetail extracts the backend's {"detail": "..."} message, if any.
func errorDetail(body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Detail != "" {
		return errors.New(payload.Detail)
	}
	return nil
}
