package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

func TestGrowthRatesFor(t *testing.T) {
	rates := GrowthRates{
		Base: dec("0.10"),
		ByLevel: map[string]decimal.Decimal{
			models.LevelPremium:  dec("0.15"),
			models.LevelLifetime: dec("0.20"),
		},
	}

	assert.True(t, rates.For(models.LevelDefault).Equal(dec("0.10")))
	assert.True(t, rates.For(models.LevelPremium).Equal(dec("0.15")))
	assert.True(t, rates.For("premium").Equal(dec("0.15")), "level lookup is case-insensitive")
	assert.True(t, rates.For(models.LevelLifetime).Equal(dec("0.20")))
	assert.True(t, rates.For("UNKNOWN_LEVEL").Equal(dec("0.10")))
}

func TestDailyToken(t *testing.T) {
	at := time.Date(2025, 3, 14, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	// 23:30 UTC-5 is already the next day in UTC.
	assert.Equal(t, "daily-2025-03-15", DailyToken(at))

	// Same instant always derives the same token.
	assert.Equal(t, DailyToken(at), DailyToken(at.UTC()))
}
