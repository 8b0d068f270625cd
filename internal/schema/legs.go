package schema

import (
	"fmt"
	"slices"

	"exchange-import/internal/coerce"
	"exchange-import/internal/domain"
)

// BuildLegs derives the legs a decoded row contributes. Fee and rebate legs whose
// amount or currency failed are returned with Failure set; any other failed leg is an
// error for the whole row.
func (s *Schema) BuildLegs(row domain.DecodedRow) ([]domain.Leg, error) {
	executed, _ := row.Time(s.TimeField)

	var legs []domain.Leg
	for _, lr := range s.Legs {
		action := lr.Action
		if lr.ActionField != "" {
			token := row.Token(lr.ActionField)
			if token == "" {
				if lr.Optional {
					continue
				}
				return nil, fmt.Errorf("leg action %s is empty", lr.ActionField)
			}
			action = domain.Action(token)
		}
		if !action.Valid() {
			return nil, fmt.Errorf("unknown action %q", action)
		}

		leg := domain.Leg{
			Role:   action.Role(),
			Action: action,
			Side:   lr.Side,
			Line:   row.Line(),
			Time:   executed,
		}
		sideLeg := leg.Role == domain.RoleFee || leg.Role == domain.RoleRebate

		currencyField := lr.CurrencyField
		if currencyField == "" {
			currencyField = lr.AmountField
		}
		amount, hasAmount := row.Decimal(lr.AmountField)
		cur, hasCurrency := row.Currency(currencyField)
		failed := row.Failure(lr.AmountField)
		if failed == nil {
			failed = row.Failure(currencyField)
		}

		switch {
		case sideLeg && hasAmount && amount.IsZero():
			// a zero fee needs no currency
		case failed != nil && sideLeg:
			leg.Failure = failed
		case failed != nil:
			return nil, failed
		case !hasAmount && lr.Optional:
			continue
		case !hasAmount:
			return nil, fmt.Errorf("leg amount %s is missing", lr.AmountField)
		case !hasCurrency && sideLeg:
			leg.Failure = &domain.FieldError{Field: currencyField, Kind: domain.ProblemCoercionFailure, Err: coerce.ErrMissingValue}
		case !hasCurrency:
			return nil, fmt.Errorf("leg currency %s is missing", currencyField)
		}

		if slices.Contains(lr.NegateOn, action) {
			amount = amount.Neg()
		}
		leg.Amount = amount
		leg.Currency = cur
		legs = append(legs, leg)
	}
	return legs, nil
}
