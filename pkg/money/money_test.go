package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCOP(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"whole amount", "125000", "$125.000,00"},
		{"with centavos", "575000.50", "$575.000,50"},
		{"zero", "0", "$0,00"},
		{"rounds half up", "10.005", "$10,01"},
		{"negative", "-2500", "-$2.500,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCOP(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12500050), ToMinorUnits(decimal.RequireFromString("125000.50")))
	assert.Equal(t, int64(0), ToMinorUnits(decimal.Zero))
}
