// Package pricing is the client for the CryptoCompare price API: spot
// prices with a short-lived in-memory cache, symbol validation, and
// historical candles for chart rendering.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public CryptoCompare endpoint.
const DefaultBaseURL = "https://min-api.cryptocompare.com"

// Granularity selects the candle resolution for historical data.
type Granularity string

const (
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// Candle is one historical data point: unix timestamp and close price in USD.
type Candle struct {
	Time  int64   `json:"time"`
	Close float64 `json:"close"`
}

// UpstreamError reports an unreachable, non-2xx, or malformed response from
// the price API.
type UpstreamError struct {
	Op  string
	Msg string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("price api: %s: %s", e.Op, e.Msg)
}

// Client talks to the price API over HTTP with a bounded timeout. Spot
// prices are cached per symbol for a fixed TTL; validation and history are
// never cached. Safe for concurrent use from the dialog and scheduler paths.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *priceCache
	log     *zap.Logger
}

// NewClient builds a Client. baseURL without trailing slash; timeout bounds
// every request; ttl bounds the spot-price cache.
func NewClient(baseURL string, timeout, ttl time.Duration, clock clockwork.Clock, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cache:   newPriceCache(ttl, clock),
		log:     log,
	}
}

// priceResponse covers both shapes the price endpoint returns: a quote
// ({"USD": 123.45}) or an API-level error envelope.
type priceResponse struct {
	USD      *float64 `json:"USD"`
	Response string   `json:"Response"`
	Message  string   `json:"Message"`
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (priceResponse, int, error) {
	u := fmt.Sprintf("%s/data/price?fsym=%s&tsyms=USD", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return priceResponse{}, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return priceResponse{}, 0, &UpstreamError{Op: "price", Msg: err.Error()}
	}
	defer resp.Body.Close()

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return priceResponse{}, resp.StatusCode, &UpstreamError{Op: "price", Msg: "malformed response: " + err.Error()}
	}
	return body, resp.StatusCode, nil
}

// Price returns the current USD price for the symbol, serving from cache
// when a fresh entry exists.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if price, ok := c.cache.get(symbol); ok {
		c.log.Debug("price cache hit", zap.String("symbol", symbol))
		return price, nil
	}

	body, status, err := c.fetchQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK || body.USD == nil {
		msg := body.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", status)
		}
		return 0, &UpstreamError{Op: "price", Msg: msg}
	}

	c.cache.put(symbol, *body.USD)
	c.log.Debug("price fetched", zap.String("symbol", symbol), zap.Float64("usd", *body.USD))
	return *body.USD, nil
}

// IsValid reports whether the symbol is a known currency. A definitive
// "invalid coin" answer from the API yields false; any other failure is an
// UpstreamError.
func (c *Client) IsValid(ctx context.Context, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	body, status, err := c.fetchQuote(ctx, symbol)
	if err != nil {
		return false, err
	}
	if body.USD != nil {
		return true, nil
	}
	if body.Response == "Error" && strings.Contains(strings.ToLower(body.Message), "invalid coin") {
		return false, nil
	}
	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	return false, &UpstreamError{Op: "validate", Msg: msg}
}

// History returns up to limit+1 candles for the symbol at the given
// granularity, oldest first, as the API delivers them.
func (c *Client) History(ctx context.Context, symbol string, g Granularity, limit int) ([]Candle, error) {
	var endpoint string
	switch g {
	case GranularityMinute:
		endpoint = "histominute"
	case GranularityHour:
		endpoint = "histohour"
	case GranularityDay:
		endpoint = "histoday"
	default:
		return nil, &UpstreamError{Op: "history", Msg: "unsupported granularity: " + string(g)}
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	u := fmt.Sprintf("%s/data/v2/%s?fsym=%s&tsym=USD&limit=%d",
		c.baseURL, endpoint, url.QueryEscape(symbol), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "history", Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Op: "history", Msg: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var body struct {
		Response string `json:"Response"`
		Message  string `json:"Message"`
		Data     struct {
			Data []Candle `json:"Data"`
		} `json:"Data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{Op: "history", Msg: "malformed response: " + err.Error()}
	}
	if body.Response == "Error" {
		return nil, &UpstreamError{Op: "history", Msg: body.Message}
	}
	if len(body.Data.Data) == 0 {
		return nil, &UpstreamError{Op: "history", Msg: "missing data section"}
	}
	return body.Data.Data, nil
}

// CacheSize returns the number of cached spot prices, including entries
// that expired but were not read since.
func (c *Client) CacheSize() int {
	return c.cache.size()
}

// ClearCache drops all cached spot prices.
func (c *Client) ClearCache() {
	c.cache.clear()
}
