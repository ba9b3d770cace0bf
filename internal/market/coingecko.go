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

// CoinGeckoClient fetches crypto spot prices from the CoinGecko API (cached).
type CoinGeckoClient struct {
	cli     *http.Client
	baseURL string
	ttl     time.Duration
	mu      sync.RWMutex
	cache   map[string]cachedQuote
	log     zerolog.Logger
}

// NewCoinGeckoClient creates a coingecko price client.
func NewCoinGeckoClient(baseURL string, timeout time.Duration, log zerolog.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		cli:     &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     60 * time.Second,
		cache:   make(map[string]cachedQuote),
		log:     log.With().Str("component", "coingecko").Logger(),
	}
}

// GetUnitPrice implements PriceGateway for CRYPTO assets. The symbol is
// the coingecko coin id (e.g. "bitcoin").
func (c *CoinGeckoClient) GetUnitPrice(ctx context.Context, _, symbol string) (decimal.Decimal, error) {
	coin := strings.ToLower(strings.TrimSpace(symbol))
	if coin == "" {
		return decimal.Zero, ErrPriceUnavailable
	}

	c.mu.RLock()
	if q, ok := c.cache[coin]; ok && time.Since(q.fetched) < c.ttl {
		c.mu.RUnlock()
		return q.price, nil
	}
	c.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(coin))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	resp, err := c.cli.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("coin", coin).Msg("Price request failed")
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: coingecko http %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var raw map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	entry, ok := raw[coin]
	if !ok || entry.USD <= 0 {
		return decimal.Zero, ErrPriceUnavailable
	}

	price := decimal.NewFromFloat(entry.USD)

	c.mu.Lock()
	c.cache[coin] = cachedQuote{price: price, fetched: time.Now()}
	c.mu.Unlock()

	return price, nil
}
