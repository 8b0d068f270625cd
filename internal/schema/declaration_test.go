package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-import/internal/coerce"
	"exchange-import/internal/domain"
)

const demoYAML = `
id: demo
header:
  - Time
  - name: Kind
    synonyms: [Type]
  - Amount
  - Asset
  - Fee
  - Fee Asset
  - Ref
fields:
  - {name: time, column: Time, kind: timestamp}
  - name: kind
    column: Kind
    kind: enum
    values: {buy: BUY, sell: SELL, deposit: DEPOSIT}
    ignored: [hold]
  - {name: amount, column: Amount, kind: decimal}
  - {name: asset, column: Asset, kind: currency}
  - {name: fee, column: Fee, kind: decimal, optional: true}
  - {name: fee_asset, column: Fee Asset, kind: currency, optional: true}
  - {name: ref, column: Ref, kind: text, optional: true}
legs:
  - {amount: amount, currency: asset, action_field: kind, negate_on: [SELL]}
  - {amount: fee, currency: fee_asset, action: FEE, optional: true}
time: time
correlation:
  id: ref
`

func TestLoad(t *testing.T) {
	s, err := Load([]byte(demoYAML))
	require.NoError(t, err)

	assert.Equal(t, "demo", s.ID)
	assert.Equal(t, ',', s.Delimiter)
	assert.Len(t, s.Header, 7)
	assert.Equal(t, []string{"Type"}, s.Header[1].Synonyms)
	assert.Equal(t, "time", s.TimeField)
	assert.Equal(t, DefaultWindow, s.Correlation.Window)
	assert.True(t, DefaultRateTolerance.Equal(s.Correlation.RateTolerance))
	assert.True(t, DefaultPriceTolerance.Equal(s.Output.PriceTolerance))
	assert.Equal(t, "ref", s.Correlation.IDField)

	kind, ok := s.Field("kind")
	require.True(t, ok)
	assert.Equal(t, coerce.KindEnum, kind.Rule.Kind)
	assert.Equal(t, "BUY", kind.Rule.Values["buy"])
	assert.True(t, kind.Rule.Ignored["hold"])
	assert.Equal(t, domain.ProblemUnsupportedType, kind.Rule.Unsupported)

	require.Len(t, s.Legs, 2)
	assert.Equal(t, []domain.Action{domain.ActionSell}, s.Legs[0].NegateOn)
	assert.Equal(t, domain.ActionFee, s.Legs[1].Action)
	assert.True(t, s.Legs[1].Optional)
}

func TestLoad_CorrelationAndOutput(t *testing.T) {
	yml := strings.Replace(demoYAML, "correlation:\n  id: ref\n", `delimiter: ";"
decimal_separator: ","
correlation:
  id: ref
  by_time: true
  round: 1s
  pair: true
  window: 5s
  rate_tolerance: "0.005"
output:
  note: ref
  price: fee
  price_tolerance: "0.02"
  inverse_price: true
`, 1)

	s, err := Load([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, ';', s.Delimiter)
	assert.True(t, s.Correlation.ByTime)
	assert.True(t, s.Correlation.Pair)
	assert.Equal(t, time.Second, s.Correlation.Round)
	assert.Equal(t, 5*time.Second, s.Correlation.Window)
	assert.True(t, decimal.RequireFromString("0.005").Equal(s.Correlation.RateTolerance))
	assert.True(t, decimal.RequireFromString("0.02").Equal(s.Output.PriceTolerance))
	assert.True(t, s.Output.InversePrice)
	assert.Equal(t, "ref", s.Output.NoteField)

	amount, _ := s.Field("amount")
	assert.Equal(t, ",", amount.Rule.DecimalSeparator)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		wantErr string
	}{
		{name: "unknown key", old: "id: demo", new: "id: demo\ncolour: red", wantErr: "colour"},
		{name: "missing id", old: "id: demo", new: "", wantErr: "id"},
		{name: "unknown kind", old: "kind: currency, optional", new: "kind: money, optional", wantErr: "kind"},
		{name: "column missing from header", old: "column: Ref", new: "column: Reference", wantErr: "Reference"},
		{name: "time field of wrong kind", old: "time: time\n", new: "time: amount\n", wantErr: "amount"},
		{name: "unknown time field", old: "time: time\n", new: "time: when\n", wantErr: "when"},
		{name: "enum maps to unknown action", old: "deposit: DEPOSIT", new: "deposit: TELEPORT", wantErr: "TELEPORT"},
		{name: "negate on unknown action", old: "negate_on: [SELL]", new: "negate_on: [DUMP]", wantErr: "negate_on"},
		{name: "leg without currency", old: "{amount: amount, currency: asset,", new: "{amount: amount,", wantErr: "no currency"},
		{name: "leg without action", old: ", action: FEE,", new: ",", wantErr: "action_field"},
		{name: "multi rune delimiter", old: "id: demo", new: "id: demo\ndelimiter: \"ab\"", wantErr: "delimiter"},
		{name: "equal separators", old: "id: demo", new: "id: demo\ndecimal_separator: \".\"\nthousands_separator: \".\"", wantErr: "separator"},
		{name: "correlation refers to unknown field", old: "id: ref", new: "id: reference", wantErr: "reference"},
		{name: "ignored literal also mapped", old: "ignored: [hold]", new: "ignored: [hold, Buy]", wantErr: "Buy"},
		{name: "label declared twice", old: "  - Ref\n", new: "  - Ref\n  - type\n", wantErr: "twice"},
		{name: "invalid validator problem", old: "legs:", new: "validators:\n  - {kind: non_zero, fields: [amount], problem: OOPS}\nlegs:", wantErr: "problem"},
		{name: "validator on wrong field kind", old: "legs:", new: "validators:\n  - {kind: same_currency, fields: [amount, asset]}\nlegs:", wantErr: "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yml := strings.Replace(demoYAML, tt.old, tt.new, 1)
			require.NotEqual(t, demoYAML, yml)

			_, err := Load([]byte(yml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	second := strings.Replace(demoYAML, "id: demo", "id: demo2\ndelimiter: \";\"", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(second), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(demoYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a schema"), 0o644))

	schemas, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "demo", schemas[0].ID)
	assert.Equal(t, "demo2", schemas[1].ID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("id: [broken"), 0o644))
	_, err = LoadDir(dir)
	assert.ErrorContains(t, err, "c.yaml")
}
