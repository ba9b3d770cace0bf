package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FinnhubClient fetches stock quotes from the Finnhub API (cached).
type FinnhubClient struct {
	cli     *http.Client
	baseURL string
	apiKey  string
	ttl     time.Duration
	mu      sync.RWMutex
	cache   map[string]cachedQuote
	log     zerolog.Logger
}

// NewFinnhubClient creates a finnhub quote client.
func NewFinnhubClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *FinnhubClient {
	return &FinnhubClient{
		cli:     &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		ttl:     60 * time.Second,
		cache:   make(map[string]cachedQuote),
		log:     log.With().Str("component", "finnhub").Logger(),
	}
}

// GetUnitPrice implements PriceGateway for STOCK assets.
func (c *FinnhubClient) GetUnitPrice(ctx context.Context, _, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, ErrPriceUnavailable
	}

	c.mu.RLock()
	if q, ok := c.cache[symbol]; ok && time.Since(q.fetched) < c.ttl {
		c.mu.RUnlock()
		return q.price, nil
	}
	c.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	resp, err := c.cli.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote request failed")
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: finnhub http %d", ErrPriceUnavailable, resp.StatusCode)
	}

	// c is the current price; h/l/o/pc are ignored here
	var raw struct {
		Current float64 `json:"c"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	if raw.Current <= 0 {
		return decimal.Zero, ErrPriceUnavailable
	}

	price := decimal.NewFromFloat(raw.Current)

	c.mu.Lock()
	c.cache[symbol] = cachedQuote{price: price, fetched: time.Now()}
	c.mu.Unlock()

	return price, nil
}
