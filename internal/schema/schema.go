// Package schema holds the declarative description of an exchange export: its header,
// field rules, row validators, legs and correlation policy.
package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"exchange-import/internal/coerce"
	"exchange-import/internal/domain"
)

// Default correlation tolerances.
var (
	DefaultWindow         = 2 * time.Second
	DefaultRateTolerance  = decimal.RequireFromString("0.01")
	DefaultPriceTolerance = decimal.RequireFromString("0.01")
)

// Schema is one registered export format. It is immutable once compiled.
type Schema struct {
	ID        string
	Delimiter rune
	Header    []Label
	// Unordered schemas accept their header labels in any order.
	Unordered  bool
	Fields     []FieldRule
	Validators []Validator
	Legs       []LegRule
	// TimeField names the timestamp field giving each leg its execution time.
	TimeField   string
	Correlation Correlation
	Output      Output
}

// Label is an expected header label and the other spellings accepted for it.
type Label struct {
	Name     string
	Synonyms []string
}

// FieldRule maps one or more cells to a typed value. Several columns are joined with a
// single space before coercion.
type FieldRule struct {
	Name     string
	Columns  []string
	Optional bool
	Rule     coerce.Rule
}

// Correlation configures how rows are grouped into logical transactions.
type Correlation struct {
	// IDField holds an explicit transaction or order id shared by related rows.
	IDField string
	// AccountFields form the account part of the correlation key.
	AccountFields []string
	// ByTime groups rows with identical timestamp and account.
	ByTime bool
	// Round truncates timestamps to this precision before key comparison.
	Round time.Duration
	// Pair enables tolerance matching of leftover single trade legs.
	Pair          bool
	Window        time.Duration
	RateField     string
	RateTolerance decimal.Decimal
}

// Output names the fields copied onto the produced transactions.
type Output struct {
	NoteField      string
	LabelField     string
	AddressField   string
	PriceField     string
	PriceTolerance decimal.Decimal
	// InversePrice quotes unit prices as base per quote instead of quote per base.
	InversePrice bool
}

// Field returns the rule named name.
func (s *Schema) Field(name string) (FieldRule, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldRule{}, false
}

// LegRule declares how a decoded row contributes one leg.
type LegRule struct {
	// AmountField is a decimal or amount_currency field.
	AmountField string
	// CurrencyField is empty when AmountField carries the currency itself.
	CurrencyField string
	// ActionField is an enum field whose tokens are actions; Action is used without it.
	ActionField string
	Action      domain.Action
	// NegateOn flips the sign of unsigned amounts for the listed actions.
	NegateOn []domain.Action
	Side     domain.Side
	// Optional legs are skipped when their amount is absent.
	Optional bool
}
