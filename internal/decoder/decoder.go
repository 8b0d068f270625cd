// Package decoder turns raw rows into decoded rows or row problems.
package decoder

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"exchange-import/internal/coerce"
	"exchange-import/internal/domain"
	"exchange-import/internal/schema"
)

// Decoder applies one bound schema to the rows of one file.
type Decoder struct {
	binding *schema.Binding
	coercer *coerce.Coercer
	log     *logrus.Entry
}

// New creates a decoder for the schema selected for a file.
func New(binding *schema.Binding, coercer *coerce.Coercer, log *logrus.Entry) *Decoder {
	return &Decoder{binding: binding, coercer: coercer, log: log}
}

// Decode coerces every field of row. A required field failing makes the whole row a
// problem carrying the most diagnostic failure; optional fields that fail are kept on
// the decoded row. Validators run once all fields decoded, then the legs are derived.
func (d *Decoder) Decode(row domain.RawRow) (domain.DecodedRow, *domain.RowProblem) {
	s := d.binding.Schema
	decoded := domain.DecodedRow{
		Row:      row,
		Schema:   s.ID,
		Fields:   make(map[string]domain.Value, len(s.Fields)),
		Failures: make(map[string]*domain.FieldError),
	}

	var worst *domain.FieldError
	for _, f := range s.Fields {
		cell := d.binding.Cell(row, f)
		if f.Optional && strings.TrimSpace(cell) == "" {
			continue
		}
		v, fe := d.coercer.Coerce(cell, f.Rule)
		if fe == nil {
			decoded.Fields[f.Name] = v
			continue
		}
		fe.Field = f.Name
		if f.Optional && fe.Kind == domain.ProblemCoercionFailure {
			decoded.Failures[f.Name] = fe
			continue
		}
		if worst == nil || fe.Kind.MoreDiagnostic(worst.Kind) {
			worst = fe
		}
	}
	if worst != nil {
		return domain.DecodedRow{}, d.problem(row, worst.Kind, reason(worst))
	}

	for _, v := range s.Validators {
		if err := v.Validate(decoded); err != nil {
			kind := domain.ProblemCoercionFailure
			var ve *schema.ValidationError
			if errors.As(err, &ve) {
				kind = ve.Kind
			}
			return domain.DecodedRow{}, d.problem(row, kind, err.Error())
		}
	}

	legs, err := s.BuildLegs(decoded)
	if err != nil {
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			return domain.DecodedRow{}, d.problem(row, fe.Kind, reason(fe))
		}
		return domain.DecodedRow{}, d.problem(row, domain.ProblemCoercionFailure, err.Error())
	}
	decoded.Legs = legs
	return decoded, nil
}

func (d *Decoder) problem(row domain.RawRow, kind domain.ProblemKind, why string) *domain.RowProblem {
	p := domain.NewRowProblem(kind, why, row)
	if d.log != nil {
		d.log.WithFields(logrus.Fields{"line": row.Line, "kind": kind}).Debug(why)
	}
	return &p
}

// reason is the problem text for a field failure. Enum rejections are reported with
// their literal verbatim, e.g. "unsupported type: X".
func reason(fe *domain.FieldError) string {
	var ve *coerce.ValueError
	if errors.As(fe.Err, &ve) {
		return ve.Error()
	}
	return fe.Error()
}
