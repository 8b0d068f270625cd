package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"exchange-import/internal/coerce"
	"exchange-import/internal/domain"
)

// Declaration is the YAML form of a schema.
type Declaration struct {
	ID                 string          `yaml:"id" validate:"required"`
	Delimiter          string          `yaml:"delimiter"`
	Header             []LabelDecl     `yaml:"header" validate:"required,min=1,dive"`
	Unordered          bool            `yaml:"unordered"`
	DecimalSeparator   string          `yaml:"decimal_separator"`
	ThousandsSeparator string          `yaml:"thousands_separator"`
	Fields             []FieldDecl     `yaml:"fields" validate:"required,min=1,dive"`
	Validators         []ValidatorDecl `yaml:"validators" validate:"dive"`
	Legs               []LegDecl       `yaml:"legs" validate:"required,min=1,dive"`
	Time               string          `yaml:"time" validate:"required"`
	Correlation        CorrelationDecl `yaml:"correlation"`
	Output             OutputDecl      `yaml:"output"`
}

// LabelDecl is written either as a bare label or as {name, synonyms}.
type LabelDecl struct {
	Name     string   `yaml:"name" validate:"required"`
	Synonyms []string `yaml:"synonyms"`
}

// UnmarshalYAML accepts the scalar shorthand.
func (l *LabelDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		l.Name = node.Value
		return nil
	}
	type plain LabelDecl
	return node.Decode((*plain)(l))
}

type FieldDecl struct {
	Name               string            `yaml:"name" validate:"required"`
	Column             string            `yaml:"column" validate:"required_without=Columns"`
	Columns            []string          `yaml:"columns"`
	Kind               string            `yaml:"kind" validate:"required,oneof=text decimal enum currency timestamp amount_currency"`
	Optional           bool              `yaml:"optional"`
	Layout             string            `yaml:"layout"`
	Values             map[string]string `yaml:"values"`
	Ignored            []string          `yaml:"ignored"`
	Unsupported        string            `yaml:"unsupported" validate:"omitempty,oneof=UNSUPPORTED_TYPE UNSUPPORTED_STATUS UNSUPPORTED_PAIR"`
	DecimalSeparator   string            `yaml:"decimal_separator"`
	ThousandsSeparator string            `yaml:"thousands_separator"`
}

type ValidatorDecl struct {
	Kind    string   `yaml:"kind" validate:"required,oneof=non_zero same_currency distinct_currency"`
	Fields  []string `yaml:"fields" validate:"required,min=1"`
	Problem string   `yaml:"problem" validate:"omitempty,problem"`
}

type LegDecl struct {
	Amount      string   `yaml:"amount" validate:"required"`
	Currency    string   `yaml:"currency"`
	ActionField string   `yaml:"action_field" validate:"required_without=Action"`
	Action      string   `yaml:"action" validate:"omitempty,action"`
	NegateOn    []string `yaml:"negate_on" validate:"dive,action"`
	Side        string   `yaml:"side" validate:"omitempty,oneof=base quote"`
	Optional    bool     `yaml:"optional"`
}

type CorrelationDecl struct {
	ID            string        `yaml:"id"`
	Account       []string      `yaml:"account"`
	ByTime        bool          `yaml:"by_time"`
	Round         time.Duration `yaml:"round" validate:"gte=0"`
	Pair          bool          `yaml:"pair"`
	Window        time.Duration `yaml:"window" validate:"gte=0"`
	Rate          string        `yaml:"rate"`
	RateTolerance string        `yaml:"rate_tolerance" validate:"omitempty,numeric"`
}

type OutputDecl struct {
	Note           string `yaml:"note"`
	Label          string `yaml:"label"`
	Address        string `yaml:"address"`
	Price          string `yaml:"price"`
	PriceTolerance string `yaml:"price_tolerance" validate:"omitempty,numeric"`
	InversePrice   bool   `yaml:"inverse_price"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("action", func(fl validator.FieldLevel) bool {
		return domain.Action(fl.Field().String()).Valid()
	})
	v.RegisterValidation("problem", func(fl validator.FieldLevel) bool {
		switch domain.ProblemKind(fl.Field().String()) {
		case domain.ProblemCoercionFailure, domain.ProblemUnsupportedType, domain.ProblemUnsupportedStatus,
			domain.ProblemUnsupportedPair, domain.ProblemIgnoredByPolicy:
			return true
		}
		return false
	})
	// report yaml keys in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseDeclaration decodes and validates one YAML schema declaration. Unknown keys
// are rejected.
func ParseDeclaration(data []byte) (*Declaration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var d Declaration
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("cannot decode schema declaration: %w", err)
	}
	if err := validate.Struct(&d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid schema declaration %q: %s", d.ID, strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid schema declaration %q: %w", d.ID, err)
	}
	return &d, nil
}

// Load parses and compiles a declaration.
func Load(data []byte) (*Schema, error) {
	d, err := ParseDeclaration(data)
	if err != nil {
		return nil, err
	}
	return d.Compile()
}

// LoadDir compiles every *.yaml and *.yml declaration of dir, in file name order.
func LoadDir(dir string) ([]*Schema, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	schemas := make([]*Schema, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read schema %s: %w", path, err)
		}
		s, err := Load(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// Compile resolves a validated declaration into a Schema, checking every reference
// between its parts.
func (d *Declaration) Compile() (*Schema, error) {
	s := &Schema{
		ID:        d.ID,
		Delimiter: ',',
		Unordered: d.Unordered,
		TimeField: d.Time,
	}
	if d.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(d.Delimiter)
		if size != len(d.Delimiter) || r == '"' || r == '\n' || r == '\r' {
			return nil, fmt.Errorf("schema %s: invalid delimiter %q", d.ID, d.Delimiter)
		}
		s.Delimiter = r
	}

	labels := make(map[string]bool)
	for _, l := range d.Header {
		for _, spelling := range append([]string{l.Name}, l.Synonyms...) {
			key := normalizeLabel(spelling)
			if labels[key] {
				return nil, fmt.Errorf("schema %s: header label %q declared twice", d.ID, spelling)
			}
			labels[key] = true
		}
		s.Header = append(s.Header, Label{Name: l.Name, Synonyms: l.Synonyms})
	}

	kinds := make(map[string]coerce.Kind)
	for _, f := range d.Fields {
		if _, dup := kinds[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: field %s declared twice", d.ID, f.Name)
		}
		rule, err := d.fieldRule(f, labels)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", d.ID, err)
		}
		kinds[f.Name] = rule.Rule.Kind
		s.Fields = append(s.Fields, rule)
	}

	expect := func(name string, want ...coerce.Kind) error {
		kind, ok := kinds[name]
		if !ok {
			return fmt.Errorf("schema %s: unknown field %q", d.ID, name)
		}
		for _, k := range want {
			if kind == k {
				return nil
			}
		}
		return fmt.Errorf("schema %s: field %s is %s, want %v", d.ID, name, kind, want)
	}

	if err := expect(d.Time, coerce.KindTimestamp); err != nil {
		return nil, err
	}
	if f, _ := s.Field(d.Time); f.Optional {
		return nil, fmt.Errorf("schema %s: time field %s cannot be optional", d.ID, d.Time)
	}

	for _, v := range d.Validators {
		want := []coerce.Kind{coerce.KindCurrency, coerce.KindAmountCurrency}
		if v.Kind == string(ValidateNonZero) {
			want = []coerce.Kind{coerce.KindDecimal, coerce.KindAmountCurrency}
		}
		for _, name := range v.Fields {
			if err := expect(name, want...); err != nil {
				return nil, err
			}
		}
		s.Validators = append(s.Validators, Validator{
			Kind:    ValidatorKind(v.Kind),
			Fields:  v.Fields,
			Problem: domain.ProblemKind(v.Problem),
		})
	}

	for i, l := range d.Legs {
		if err := expect(l.Amount, coerce.KindDecimal, coerce.KindAmountCurrency); err != nil {
			return nil, err
		}
		if l.Currency != "" {
			if err := expect(l.Currency, coerce.KindCurrency, coerce.KindAmountCurrency); err != nil {
				return nil, err
			}
		} else if kinds[l.Amount] != coerce.KindAmountCurrency {
			return nil, fmt.Errorf("schema %s: leg %d has no currency", d.ID, i+1)
		}
		leg := LegRule{
			AmountField:   l.Amount,
			CurrencyField: l.Currency,
			ActionField:   l.ActionField,
			Action:        domain.Action(l.Action),
			Side:          domain.Side(l.Side),
			Optional:      l.Optional,
		}
		if l.ActionField != "" {
			if err := expect(l.ActionField, coerce.KindEnum); err != nil {
				return nil, err
			}
			f, _ := s.Field(l.ActionField)
			for literal, token := range f.Rule.Values {
				if !domain.Action(token).Valid() {
					return nil, fmt.Errorf("schema %s: %s maps %q to unknown action %q", d.ID, l.ActionField, literal, token)
				}
			}
		}
		for _, a := range l.NegateOn {
			leg.NegateOn = append(leg.NegateOn, domain.Action(a))
		}
		s.Legs = append(s.Legs, leg)
	}

	c := d.Correlation
	s.Correlation = Correlation{
		IDField:       c.ID,
		AccountFields: c.Account,
		ByTime:        c.ByTime,
		Round:         c.Round,
		Pair:          c.Pair,
		Window:        c.Window,
		RateField:     c.Rate,
		RateTolerance: DefaultRateTolerance,
	}
	if s.Correlation.Window == 0 {
		s.Correlation.Window = DefaultWindow
	}
	if c.RateTolerance != "" {
		s.Correlation.RateTolerance = decimal.RequireFromString(c.RateTolerance)
	}
	for _, name := range append(append([]string{c.ID}, c.Account...), c.Rate) {
		if name == "" {
			continue
		}
		if _, ok := kinds[name]; !ok {
			return nil, fmt.Errorf("schema %s: correlation refers to unknown field %q", d.ID, name)
		}
	}
	if c.Rate != "" {
		if err := expect(c.Rate, coerce.KindDecimal); err != nil {
			return nil, err
		}
	}

	o := d.Output
	s.Output = Output{
		NoteField:      o.Note,
		LabelField:     o.Label,
		AddressField:   o.Address,
		PriceField:     o.Price,
		PriceTolerance: DefaultPriceTolerance,
		InversePrice:   o.InversePrice,
	}
	if o.PriceTolerance != "" {
		s.Output.PriceTolerance = decimal.RequireFromString(o.PriceTolerance)
	}
	for _, name := range []string{o.Note, o.Label, o.Address} {
		if name == "" {
			continue
		}
		if _, ok := kinds[name]; !ok {
			return nil, fmt.Errorf("schema %s: output refers to unknown field %q", d.ID, name)
		}
	}
	if o.Price != "" {
		if err := expect(o.Price, coerce.KindDecimal); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (d *Declaration) fieldRule(f FieldDecl, labels map[string]bool) (FieldRule, error) {
	columns := f.Columns
	if f.Column != "" {
		columns = append([]string{f.Column}, columns...)
	}
	for _, col := range columns {
		if !labels[normalizeLabel(col)] {
			return FieldRule{}, fmt.Errorf("field %s reads column %q missing from the header", f.Name, col)
		}
	}

	var rule coerce.Rule
	switch coerce.Kind(f.Kind) {
	case coerce.KindEnum:
		if len(f.Values) == 0 {
			return FieldRule{}, fmt.Errorf("enum field %s has no values", f.Name)
		}
		rule = coerce.NewEnum(f.Values, f.Ignored, domain.ProblemKind(f.Unsupported))
		for _, literal := range f.Ignored {
			if _, both := rule.Values[coerce.NormalizeLiteral(literal)]; both {
				return FieldRule{}, fmt.Errorf("enum field %s both maps and ignores %q", f.Name, literal)
			}
		}
	default:
		rule = coerce.Rule{Kind: coerce.Kind(f.Kind), Layout: f.Layout}
	}

	rule.DecimalSeparator = firstNonEmpty(f.DecimalSeparator, d.DecimalSeparator)
	rule.ThousandsSeparator = firstNonEmpty(f.ThousandsSeparator, d.ThousandsSeparator)
	if rule.DecimalSeparator != "" && rule.DecimalSeparator == rule.ThousandsSeparator {
		return FieldRule{}, fmt.Errorf("field %s uses %q as both decimal and thousands separator", f.Name, rule.DecimalSeparator)
	}
	return FieldRule{Name: f.Name, Columns: columns, Optional: f.Optional, Rule: rule}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
