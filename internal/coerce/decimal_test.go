package coerce

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name      string
		literal   string
		decimal   string
		thousands string
		want      string
		wantErr   bool
	}{
		{name: "plain", literal: "113180", want: "113180"},
		{name: "negative fiat keeps its sign", literal: "-1000", want: "-1000"},
		{name: "explicit plus", literal: "+12.5", want: "12.5"},
		{name: "thousands comma", literal: "1,234,567.891", thousands: ",", want: "1234567.891"},
		{name: "decimal comma", literal: "1.234,50", decimal: ",", thousands: ".", want: "1234.5"},
		{name: "space thousands", literal: "1 234,50", decimal: ",", want: "1234.5"},
		{name: "no-break space thousands", literal: "1\u00a0234,50", decimal: ",", want: "1234.5"},
		{name: "currency suffix", literal: "0.00075667 BTC", want: "0.00075667"},
		{name: "fused currency suffix", literal: "0.0001612653BTC", want: "0.0001612653"},
		{name: "currency prefix", literal: "EUR 12.00", want: "12"},
		{name: "currency symbol", literal: "$1,000.00", thousands: ",", want: "1000"},
		{name: "symbol after sign", literal: "-$5", want: "-5"},
		{name: "sign after symbol", literal: "€-5", want: "-5"},
		{name: "czech koruna suffix", literal: "-1 000,00 Kč", decimal: ",", want: "-1000"},
		{name: "accounting parentheses", literal: "(42.10)", want: "-42.1"},
		{name: "unicode minus", literal: "−7.5", want: "-7.5"},
		{name: "trailing minus", literal: "7.5-", want: "-7.5"},
		{name: "exponent", literal: "1.5E-7", want: "0.00000015"},
		{name: "leading dot", literal: ".5", want: "0.5"},
		{name: "empty", literal: "", wantErr: true},
		{name: "only code", literal: "BTC", wantErr: true},
		{name: "letters inside", literal: "12abc34", wantErr: true},
		{name: "two dots", literal: "1.2.3", wantErr: true},
		{name: "dot with decimal comma", literal: "1.5", decimal: ",", thousands: " ", wantErr: true},
		{name: "double sign", literal: "--5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.literal, tt.decimal, tt.thousands)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedDecimal)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseDecimal_PreservesScale(t *testing.T) {
	got, err := ParseDecimal("1.500", "", "")
	require.NoError(t, err)
	assert.Equal(t, int32(-3), got.Exponent())
	assert.Equal(t, "1.500", got.StringFixed(3))
}

func TestParseDecimal_SignNeverDropped(t *testing.T) {
	for _, literal := range []string{"-1", "-0.00000001", "-1000 CZK", "CZK -1000", "(1)"} {
		got, err := ParseDecimal(literal, "", ",")
		require.NoError(t, err, literal)
		assert.True(t, got.IsNegative(), literal)
	}
}

func TestSplitAmountCurrency(t *testing.T) {
	tests := []struct {
		literal    string
		wantAmount string
		wantCode   string
		wantOK     bool
	}{
		{literal: "0.0001612653BTC", wantAmount: "0.0001612653", wantCode: "BTC", wantOK: true},
		{literal: "-5 ETH2.S", wantAmount: "-5", wantCode: "ETH2.S", wantOK: true},
		{literal: "1.5E-7 BTC", wantAmount: "1.5E-7", wantCode: "BTC", wantOK: true},
		{literal: "(3.2)EUR", wantAmount: "(3.2)", wantCode: "EUR", wantOK: true},
		{literal: "EUR 12,50", wantAmount: "12,50", wantCode: "EUR", wantOK: true},
		{literal: "BTC0.5", wantAmount: "0.5", wantCode: "BTC", wantOK: true},
		{literal: "12.5", wantOK: false},
		{literal: "BTC", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			amount, code, ok := SplitAmountCurrency(tt.literal)
			if !tt.wantOK {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantAmount, amount)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
