package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one tokenized data row of a source file.
type RawRow struct {
	Source string
	// Line is the 1-based physical line the record starts on; the header is line 1.
	Line  int
	Cells []string
	// Text is the row as it appeared in the file, used in diagnostics.
	Text string
}

// ValueKind identifies which member of a Value is populated.
type ValueKind int

const (
	KindText ValueKind = iota
	KindDecimal
	KindEnum
	KindCurrency
	KindTimestamp
	KindAmountCurrency
)

// Value is the typed result of coercing one field.
type Value struct {
	Kind     ValueKind
	Text     string
	Decimal  decimal.Decimal
	Token    string
	Currency Currency
	Time     time.Time
}

// DecodedRow is a raw row whose fields all coerced successfully. Optional fields that
// failed are kept in Failures instead of Fields.
type DecodedRow struct {
	Row      RawRow
	Schema   string
	Fields   map[string]Value
	Failures map[string]*FieldError
	// Legs are the currency movements the row contributes, in leg rule order.
	Legs []Leg
}

// Line is shorthand for Row.Line.
func (r DecodedRow) Line() int {
	return r.Row.Line
}

// Get returns the value of a field.
func (r DecodedRow) Get(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Decimal returns the numeric part of a decimal or amount+currency field.
func (r DecodedRow) Decimal(name string) (decimal.Decimal, bool) {
	v, ok := r.Fields[name]
	if !ok || (v.Kind != KindDecimal && v.Kind != KindAmountCurrency) {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

// Currency returns the currency part of a currency or amount+currency field.
func (r DecodedRow) Currency(name string) (Currency, bool) {
	v, ok := r.Fields[name]
	if !ok || (v.Kind != KindCurrency && v.Kind != KindAmountCurrency) {
		return Currency{}, false
	}
	return v.Currency, true
}

// Time returns a timestamp field.
func (r DecodedRow) Time(name string) (time.Time, bool) {
	v, ok := r.Fields[name]
	if !ok || v.Kind != KindTimestamp {
		return time.Time{}, false
	}
	return v.Time, true
}

// Token returns the mapped token of an enum field.
func (r DecodedRow) Token(name string) string {
	v, ok := r.Fields[name]
	if !ok || v.Kind != KindEnum {
		return ""
	}
	return v.Token
}

// Text returns the text of a field, or the token for enums.
func (r DecodedRow) Text(name string) string {
	v, ok := r.Fields[name]
	if !ok {
		return ""
	}
	if v.Kind == KindEnum {
		return v.Token
	}
	return v.Text
}

// Failure returns the failure recorded for an optional field.
func (r DecodedRow) Failure(name string) *FieldError {
	return r.Failures[name]
}

// FieldError is a field-level coercion failure.
type FieldError struct {
	Field   string
	Literal string
	Kind    ProblemKind
	Err     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
