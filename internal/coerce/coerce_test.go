package coerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-import/internal/currency"
	"exchange-import/internal/datetime"
	"exchange-import/internal/domain"
)

func newTestCoercer(t *testing.T) *Coercer {
	t.Helper()
	catalog, err := currency.Default()
	require.NoError(t, err)
	return NewCoercer(catalog, datetime.NewResolver(time.UTC))
}

func TestCoercer_Coerce(t *testing.T) {
	typeRule := NewEnum(map[string]string{
		"trade payment": "TRADE",
		"trade fill":    "TRADE",
		"deposit":       "DEPOSIT",
	}, []string{"withdrawal_block", "withdrawal_unblock"}, domain.ProblemUnsupportedType)
	statusRule := NewEnum(map[string]string{"ok": "OK"}, nil, domain.ProblemUnsupportedStatus)

	tests := []struct {
		name     string
		cell     string
		rule     Rule
		want     domain.Value
		wantKind domain.ProblemKind
		wantMsg  string
	}{
		{
			name: "text is trimmed",
			cell: "  hello ",
			rule: Rule{Kind: KindText},
			want: domain.Value{Kind: domain.KindText, Text: "hello"},
		},
		{
			name: "negative decimal",
			cell: "-1000",
			rule: Rule{Kind: KindDecimal},
			want: domain.Value{Kind: domain.KindDecimal, Text: "-1000", Decimal: decimal.RequireFromString("-1000")},
		},
		{
			name:     "malformed decimal",
			cell:     "12abc",
			rule:     Rule{Kind: KindDecimal},
			wantKind: domain.ProblemCoercionFailure,
			wantMsg:  `malformed decimal: "12abc"`,
		},
		{
			name: "enum is case and space insensitive",
			cell: "Trade  Payment",
			rule: typeRule,
			want: domain.Value{Kind: domain.KindEnum, Text: "Trade  Payment", Token: "TRADE"},
		},
		{
			name:     "enum ignored by policy",
			cell:     "withdrawal_block",
			rule:     typeRule,
			wantKind: domain.ProblemIgnoredByPolicy,
			wantMsg:  "ignored by policy: withdrawal_block",
		},
		{
			name:     "enum unsupported type carries literal",
			cell:     "margin call",
			rule:     typeRule,
			wantKind: domain.ProblemUnsupportedType,
			wantMsg:  "unsupported type: margin call",
		},
		{
			name:     "enum unsupported status",
			cell:     "CANCELLED",
			rule:     statusRule,
			wantKind: domain.ProblemUnsupportedStatus,
			wantMsg:  "unsupported status: CANCELLED",
		},
		{
			name:     "unknown currency",
			cell:     "XYZ",
			rule:     Rule{Kind: KindCurrency},
			wantKind: domain.ProblemCoercionFailure,
			wantMsg:  "unknown currency: XYZ",
		},
		{
			name: "timestamp with resolved format",
			cell: "2021-04-10T18:16:50.367Z",
			rule: Rule{Kind: KindTimestamp},
			want: domain.Value{
				Kind: domain.KindTimestamp,
				Text: "2021-04-10T18:16:50.367Z",
				Time: time.Date(2021, 4, 10, 18, 16, 50, 367000000, time.UTC),
			},
		},
		{
			name: "timestamp with pinned layout",
			cell: "10/04/2021 18:16",
			rule: Rule{Kind: KindTimestamp, Layout: "02/01/2006 15:04"},
			want: domain.Value{
				Kind: domain.KindTimestamp,
				Text: "10/04/2021 18:16",
				Time: time.Date(2021, 4, 10, 18, 16, 0, 0, time.UTC),
			},
		},
		{
			name:     "unrecognized timestamp",
			cell:     "yesterday",
			rule:     Rule{Kind: KindTimestamp},
			wantKind: domain.ProblemCoercionFailure,
			wantMsg:  `unrecognized timestamp: "yesterday"`,
		},
		{
			name:     "missing required decimal",
			cell:     " ",
			rule:     Rule{Kind: KindDecimal},
			wantKind: domain.ProblemCoercionFailure,
			wantMsg:  "missing value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoercer(t)
			got, fe := c.Coerce(tt.cell, tt.rule)
			if tt.wantKind != "" {
				require.NotNil(t, fe)
				assert.Equal(t, tt.wantKind, fe.Kind)
				assert.Equal(t, tt.cell, fe.Literal)
				assert.Equal(t, tt.wantMsg, fe.Err.Error())
				return
			}
			require.Nil(t, fe)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Text, got.Text)
			assert.Equal(t, tt.want.Token, got.Token)
			assert.True(t, tt.want.Decimal.Equal(got.Decimal))
			assert.True(t, tt.want.Time.Equal(got.Time))
		})
	}
}

func TestCoercer_AmountCurrency(t *testing.T) {
	c := newTestCoercer(t)

	got, fe := c.Coerce("0.0001612653XBT", Rule{Kind: KindAmountCurrency})
	require.Nil(t, fe)
	assert.Equal(t, domain.KindAmountCurrency, got.Kind)
	assert.Equal(t, "BTC", got.Currency.Code)
	assert.True(t, decimal.RequireFromString("0.0001612653").Equal(got.Decimal))

	got, fe = c.Coerce("-12,5 EUR", Rule{Kind: KindAmountCurrency, DecimalSeparator: ","})
	require.Nil(t, fe)
	assert.Equal(t, "EUR", got.Currency.Code)
	assert.True(t, decimal.RequireFromString("-12.5").Equal(got.Decimal))

	_, fe = c.Coerce("0.5FOO", Rule{Kind: KindAmountCurrency})
	require.NotNil(t, fe)
	assert.ErrorIs(t, fe, currency.ErrUnknownCurrency)

	_, fe = c.Coerce("0.5", Rule{Kind: KindAmountCurrency})
	require.NotNil(t, fe)
	assert.ErrorIs(t, fe, ErrMalformedAmount)
}

func TestCoercer_Deterministic(t *testing.T) {
	c := newTestCoercer(t)
	rule := Rule{Kind: KindDecimal}
	first, fe := c.Coerce("1,234.5600 USD", rule)
	require.Nil(t, fe)
	second, fe := c.Coerce("1,234.5600 USD", rule)
	require.Nil(t, fe)
	assert.Equal(t, first, second)
}

func TestValueError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, &ValueError{Kind: domain.ProblemIgnoredByPolicy, Literal: "x"}, ErrIgnoredValue)
	assert.ErrorIs(t, &ValueError{Kind: domain.ProblemUnsupportedType, Literal: "x"}, ErrUnsupportedValue)
}
