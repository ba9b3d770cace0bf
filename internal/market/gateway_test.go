package market

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticGateway(t *testing.T) {
	g := NewStaticGateway(map[string]decimal.Decimal{
		"aapl": decimal.NewFromInt(210),
	})
	ctx := context.Background()

	// Symbols are case-insensitive.
	price, err := g.GetUnitPrice(ctx, "STOCK", "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(210)))

	_, err = g.GetUnitPrice(ctx, "STOCK", "MSFT")
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	g.SetPrice("msft", decimal.NewFromInt(400))
	price, err = g.GetUnitPrice(ctx, "STOCK", "MSFT")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(400)))
}

func TestStaticGatewayRejectsNonPositivePrice(t *testing.T) {
	g := NewStaticGateway(map[string]decimal.Decimal{
		"AAPL": decimal.Zero,
	})

	_, err := g.GetUnitPrice(context.Background(), "STOCK", "AAPL")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestGatewayRoutesByAssetType(t *testing.T) {
	stocks := NewStaticGateway(map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(210)})
	crypto := NewStaticGateway(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(59000)})
	g := NewGateway(stocks, crypto)
	ctx := context.Background()

	price, err := g.GetUnitPrice(ctx, "stock", "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(210)))

	price, err = g.GetUnitPrice(ctx, "CRYPTO", "BTC")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(59000)))

	_, err = g.GetUnitPrice(ctx, "BOND", "T10Y")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestFailingGateway(t *testing.T) {
	_, err := FailingGateway{}.GetUnitPrice(context.Background(), "STOCK", "AAPL")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}
