package market

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when no live unit price can be
// obtained for an asset. Callers must treat it as a hard stop, never
// as a zero price.
var ErrPriceUnavailable = errors.New("asset price unavailable")

// PriceGateway returns the current unit price in USD for an asset.
type PriceGateway interface {
	GetUnitPrice(ctx context.Context, assetType, symbol string) (decimal.Decimal, error)
}

// Gateway routes lookups to the provider for each asset type.
type Gateway struct {
	stocks PriceGateway
	crypto PriceGateway
}

// NewGateway creates a price gateway backed by per-asset-type providers.
func NewGateway(stocks, crypto PriceGateway) *Gateway {
	return &Gateway{stocks: stocks, crypto: crypto}
}

// GetUnitPrice returns the current USD unit price for the asset.
func (g *Gateway) GetUnitPrice(ctx context.Context, assetType, symbol string) (decimal.Decimal, error) {
	switch strings.ToUpper(assetType) {
	case "STOCK":
		return g.stocks.GetUnitPrice(ctx, assetType, symbol)
	case "CRYPTO":
		return g.crypto.GetUnitPrice(ctx, assetType, symbol)
	default:
		return decimal.Zero, ErrPriceUnavailable
	}
}

// StaticGateway serves prices from a fixed table. Used in tests and in
// dev mode when no market API keys are configured.
type StaticGateway struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticGateway creates a static gateway from symbol → USD price.
func NewStaticGateway(prices map[string]decimal.Decimal) *StaticGateway {
	table := make(map[string]decimal.Decimal, len(prices))
	for sym, p := range prices {
		table[strings.ToUpper(sym)] = p
	}
	return &StaticGateway{prices: table}
}

// SetPrice updates the price for a symbol.
func (s *StaticGateway) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(symbol)] = price
}

// GetUnitPrice implements PriceGateway.
func (s *StaticGateway) GetUnitPrice(_ context.Context, _, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[strings.ToUpper(symbol)]
	if !ok || !price.IsPositive() {
		return decimal.Zero, ErrPriceUnavailable
	}
	return price, nil
}

// FailingGateway always reports the price as unavailable. Used in tests
// to exercise the abort-without-partial-state paths.
type FailingGateway struct{}

// GetUnitPrice implements PriceGateway.
func (FailingGateway) GetUnitPrice(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.Zero, ErrPriceUnavailable
}

// cachedQuote is a fetched price with its fetch time.
type cachedQuote struct {
	price   decimal.Decimal
	fetched time.Time
}
