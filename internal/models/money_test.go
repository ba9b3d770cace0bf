package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundUSD(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{"10.005", "10"},      // ties go to the even cent
		{"10.015", "10.02"},   // ties go to the even cent
		{"10.014", "10.01"},
		{"10.016", "10.02"},
		{"-10.005", "-10"},
		{"479.999999", "480"},
	}
	for _, tc := range cases {
		got := RoundUSD(decimal.RequireFromString(tc.in))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"RoundUSD(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestRoundQty(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"4", "4"},
		{"0.123456785", "0.12345678"}, // ties go to the even digit
		{"0.123456775", "0.12345678"},
		{"0.123456789", "0.12345679"},
	}
	for _, tc := range cases {
		got := RoundQty(decimal.RequireFromString(tc.in))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"RoundQty(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestHoldingClosed(t *testing.T) {
	open := &Holding{Quantity: decimal.RequireFromString("0.00000001")}
	assert.False(t, open.Closed())

	closed := &Holding{Quantity: decimal.Zero}
	assert.True(t, closed.Closed())
}
