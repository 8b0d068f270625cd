package schema

import (
	"fmt"
	"strings"

	"exchange-import/internal/domain"
)

// ValidatorKind names a row-level cross-field check.
type ValidatorKind string

const (
	// ValidateNonZero requires every listed decimal field to be non-zero.
	ValidateNonZero ValidatorKind = "non_zero"
	// ValidateSameCurrency requires the listed currency fields to agree.
	ValidateSameCurrency ValidatorKind = "same_currency"
	// ValidateDistinctCurrency requires the listed currency fields to differ.
	ValidateDistinctCurrency ValidatorKind = "distinct_currency"
)

// Validator is a cross-field rule run once every field of a row decoded. Absent
// optional fields are not checked.
type Validator struct {
	Kind    ValidatorKind
	Fields  []string
	Problem domain.ProblemKind
}

// ValidationError is a failed row validator.
type ValidationError struct {
	Kind   domain.ProblemKind
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validate checks row against the rule.
func (v Validator) Validate(row domain.DecodedRow) error {
	switch v.Kind {
	case ValidateNonZero:
		for _, name := range v.Fields {
			if d, ok := row.Decimal(name); ok && d.IsZero() {
				return v.fail("%s must be non-zero", name)
			}
		}
	case ValidateSameCurrency, ValidateDistinctCurrency:
		var names, codes []string
		for _, name := range v.Fields {
			if c, ok := row.Currency(name); ok {
				names = append(names, name)
				codes = append(codes, c.Code)
			}
		}
		for i := 1; i < len(codes); i++ {
			for j := 0; j < i; j++ {
				same := codes[i] == codes[j]
				if v.Kind == ValidateSameCurrency && !same {
					return v.fail("currencies of %s (%s) and %s (%s) differ", names[j], codes[j], names[i], codes[i])
				}
				if v.Kind == ValidateDistinctCurrency && same {
					return v.fail("%s and %s share currency %s", names[j], names[i], codes[i])
				}
			}
		}
	default:
		return v.fail("unknown validator %q on %s", v.Kind, strings.Join(v.Fields, ", "))
	}
	return nil
}

func (v Validator) fail(format string, args ...any) error {
	kind := v.Problem
	if kind == "" {
		kind = domain.ProblemCoercionFailure
	}
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
