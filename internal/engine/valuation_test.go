package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/connectcapital4-hash/vertexcapital/internal/models"
)

func TestValuateGain(t *testing.T) {
	h := &models.Holding{Quantity: dec("2.5"), PurchasePrice: dec("100")}

	v := Valuate(h, dec("120"))
	assert.True(t, v.CurrentValue.Equal(dec("300")), "current value: %s", v.CurrentValue)
	assert.True(t, v.ProfitLoss.Equal(dec("50")), "profit/loss: %s", v.ProfitLoss)
}

func TestValuateLoss(t *testing.T) {
	h := &models.Holding{Quantity: dec("8"), PurchasePrice: dec("150")}

	v := Valuate(h, dec("130.25"))
	assert.True(t, v.CurrentValue.Equal(dec("1042")))
	assert.True(t, v.ProfitLoss.Equal(dec("-158")))
}

func TestValuateRoundsToCents(t *testing.T) {
	// 0.333 × 3.333 = 1.109889 → $1.11
	h := &models.Holding{Quantity: dec("0.333"), PurchasePrice: dec("1")}

	v := Valuate(h, dec("3.333"))
	assert.True(t, v.CurrentValue.Equal(dec("1.11")), "current value: %s", v.CurrentValue)
	assert.True(t, v.ProfitLoss.Equal(dec("0.78")), "profit/loss: %s", v.ProfitLoss)
}
