// Package coerce converts raw string cells into typed values.
package coerce

import (
	"errors"
	"fmt"
	"strings"

	"exchange-import/internal/domain"
)

// Kind is the coercion a field rule applies.
type Kind string

const (
	KindText           Kind = "text"
	KindDecimal        Kind = "decimal"
	KindEnum           Kind = "enum"
	KindCurrency       Kind = "currency"
	KindTimestamp      Kind = "timestamp"
	KindAmountCurrency Kind = "amount_currency"
)

// Valid reports whether k is a known coercion.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindDecimal, KindEnum, KindCurrency, KindTimestamp, KindAmountCurrency:
		return true
	}
	return false
}

var (
	ErrMissingValue     = errors.New("missing value")
	ErrMalformedDecimal = errors.New("malformed decimal")
	ErrMalformedAmount  = errors.New("malformed amount with currency")
	ErrUnsupportedValue = errors.New("unsupported value")
	ErrIgnoredValue     = errors.New("ignored by policy")
)

// Rule declares how one cell maps to a typed value.
type Rule struct {
	Kind Kind

	// Decimal and amount+currency cells.
	DecimalSeparator   string
	ThousandsSeparator string

	// Enum cells. Keys are normalized literals, see NormalizeLiteral.
	Values  map[string]string
	Ignored map[string]bool
	// Unsupported is the problem kind reported for literals absent from Values.
	Unsupported domain.ProblemKind

	// Layout pins a Go time layout instead of resolving the format per literal.
	Layout string
}

// NewEnum builds an enum rule from literal -> token pairs and the literals skipped by
// policy. Literals are matched case and whitespace insensitively.
func NewEnum(values map[string]string, ignored []string, unsupported domain.ProblemKind) Rule {
	r := Rule{
		Kind:        KindEnum,
		Values:      make(map[string]string, len(values)),
		Ignored:     make(map[string]bool, len(ignored)),
		Unsupported: unsupported,
	}
	if r.Unsupported == "" {
		r.Unsupported = domain.ProblemUnsupportedType
	}
	for literal, token := range values {
		r.Values[NormalizeLiteral(literal)] = token
	}
	for _, literal := range ignored {
		r.Ignored[NormalizeLiteral(literal)] = true
	}
	return r
}

// NormalizeLiteral lower-cases s and collapses runs of whitespace.
func NormalizeLiteral(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ValueError is an enum literal the rule recognizes as skipped or does not know.
type ValueError struct {
	Kind    domain.ProblemKind
	Literal string
}

func (e *ValueError) Error() string {
	switch e.Kind {
	case domain.ProblemIgnoredByPolicy:
		return fmt.Sprintf("ignored by policy: %s", e.Literal)
	case domain.ProblemUnsupportedStatus:
		return fmt.Sprintf("unsupported status: %s", e.Literal)
	}
	return fmt.Sprintf("unsupported type: %s", e.Literal)
}

func (e *ValueError) Unwrap() error {
	if e.Kind == domain.ProblemIgnoredByPolicy {
		return ErrIgnoredValue
	}
	return ErrUnsupportedValue
}
