package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"298.5", "298.50"},
		{"0.125", "0.13"},
		{"0.124", "0.12"},
		{"10.005", "10.01"},
		{"1691.5", "1691.50"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Round(decimal.RequireFromString(tt.in))
			assert.Equal(t, tt.want, got.StringFixed(Places))
		})
	}
}

func TestPercent_FifteenOfNineteenNinety(t *testing.T) {
	discount := Round(Percent(decimal.RequireFromString("1990.00"), decimal.NewFromInt(15)))
	assert.Equal(t, "298.50", discount.StringFixed(Places))

	grand := decimal.RequireFromString("1990.00").Sub(discount)
	assert.Equal(t, "1691.50", grand.StringFixed(Places))
}

func TestClamp(t *testing.T) {
	lo := decimal.Zero
	hi := decimal.NewFromInt(100)

	assert.True(t, Clamp(decimal.NewFromInt(-5), lo, hi).Equal(lo))
	assert.True(t, Clamp(decimal.NewFromInt(500), lo, hi).Equal(hi))
	assert.True(t, Clamp(decimal.NewFromInt(42), lo, hi).Equal(decimal.NewFromInt(42)))
}

func TestLineTotal(t *testing.T) {
	got := LineTotal(decimal.RequireFromString("333.33"), 3)
	assert.Equal(t, "999.99", got.StringFixed(Places))
}

func TestParse(t *testing.T) {
	d, err := Parse("1 990,5")
	require.NoError(t, err)
	assert.Equal(t, "1990.50", d.StringFixed(Places))

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)
}
