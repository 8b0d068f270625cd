package coerce

import (
	"fmt"
	"strings"
	"time"

	"exchange-import/internal/currency"
	"exchange-import/internal/datetime"
	"exchange-import/internal/domain"
)

// Coercer applies field rules to cells. It holds the per-parse timestamp resolver and
// is therefore owned by one parse invocation.
type Coercer struct {
	currencies currency.Resolver
	dates      *datetime.Resolver
}

// NewCoercer creates a coercer resolving currency codes with currencies.
func NewCoercer(currencies currency.Resolver, dates *datetime.Resolver) *Coercer {
	if dates == nil {
		dates = datetime.NewResolver(time.UTC)
	}
	return &Coercer{currencies: currencies, dates: dates}
}

// Coerce converts cell according to rule. The returned FieldError has no field name;
// the decoder fills it in.
func (c *Coercer) Coerce(cell string, rule Rule) (domain.Value, *domain.FieldError) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" && rule.Kind != KindText && rule.Kind != KindEnum {
		return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, ErrMissingValue)
	}

	switch rule.Kind {
	case KindText:
		return domain.Value{Kind: domain.KindText, Text: trimmed}, nil

	case KindDecimal:
		d, err := ParseDecimal(trimmed, rule.DecimalSeparator, rule.ThousandsSeparator)
		if err != nil {
			return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, err)
		}
		return domain.Value{Kind: domain.KindDecimal, Text: trimmed, Decimal: d}, nil

	case KindEnum:
		return c.enum(cell, rule)

	case KindCurrency:
		cur, err := c.currencies.Resolve(trimmed)
		if err != nil {
			return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, err)
		}
		return domain.Value{Kind: domain.KindCurrency, Text: trimmed, Currency: cur}, nil

	case KindTimestamp:
		t, err := c.timestamp(trimmed, rule.Layout)
		if err != nil {
			return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, err)
		}
		return domain.Value{Kind: domain.KindTimestamp, Text: trimmed, Time: t}, nil

	case KindAmountCurrency:
		amount, code, ok := SplitAmountCurrency(trimmed)
		if !ok {
			return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, fmt.Errorf("%w: %q", ErrMalformedAmount, trimmed))
		}
		d, err := ParseDecimal(amount, rule.DecimalSeparator, rule.ThousandsSeparator)
		if err != nil {
			return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, err)
		}
		cur, err := c.currencies.Resolve(code)
		if err != nil {
			return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, err)
		}
		return domain.Value{Kind: domain.KindAmountCurrency, Text: trimmed, Decimal: d, Currency: cur}, nil
	}
	return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, fmt.Errorf("unknown coercion %q", rule.Kind))
}

func (c *Coercer) enum(cell string, rule Rule) (domain.Value, *domain.FieldError) {
	key := NormalizeLiteral(cell)
	if rule.Ignored[key] {
		return domain.Value{}, failure(cell, domain.ProblemIgnoredByPolicy, &ValueError{Kind: domain.ProblemIgnoredByPolicy, Literal: strings.TrimSpace(cell)})
	}
	if token, ok := rule.Values[key]; ok {
		return domain.Value{Kind: domain.KindEnum, Text: strings.TrimSpace(cell), Token: token}, nil
	}
	if key == "" {
		return domain.Value{}, failure(cell, domain.ProblemCoercionFailure, ErrMissingValue)
	}
	kind := rule.Unsupported
	if kind == "" {
		kind = domain.ProblemUnsupportedType
	}
	return domain.Value{}, failure(cell, kind, &ValueError{Kind: kind, Literal: strings.TrimSpace(cell)})
}

func (c *Coercer) timestamp(literal, layout string) (time.Time, error) {
	if layout != "" {
		t, err := time.ParseInLocation(layout, literal, c.dates.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q does not match %q", datetime.ErrNoMatchingPattern, literal, layout)
		}
		return t, nil
	}
	t, _, err := c.dates.Parse(literal)
	return t, err
}

func failure(literal string, kind domain.ProblemKind, err error) *domain.FieldError {
	return &domain.FieldError{Literal: literal, Kind: kind, Err: err}
}
