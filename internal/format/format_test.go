package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "R$ 0,00"},
		{"1234.5", "R$ 1.234,50"},
		{"1050", "R$ 1.050,00"},
		{"1234567.891", "R$ 1.234.567,89"},
		{"0.005", "R$ 0,01"},
		{"-16.67", "-R$ 16,67"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "5.00%", Percentage(decimal.RequireFromString("0.05")))
	assert.Equal(t, "12.35%", Percentage(decimal.RequireFromString("0.12345")))
	assert.Equal(t, "0.00%", Percentage(decimal.Zero))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "31/01/2024", Date("2024-01-31"))
	assert.Equal(t, "31/01/2024", Date("2024-01-31T10:00:00"))
	assert.Equal(t, "", Date(""))
	assert.Equal(t, "garbage", Date("garbage"))
}
