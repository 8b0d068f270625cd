package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"exchange-import/internal/domain"
)

// ErrAmbiguousSchema means more than one schema accepts a header. Schemas are disjoint
// by construction, so this is a configuration bug.
var ErrAmbiguousSchema = errors.New("ambiguous schema")

// Binding is a schema selected for a file, with each header label bound to its cell
// index in that file.
type Binding struct {
	Schema  *Schema
	columns map[string]int
}

// Index returns the cell index of a header label or one of its synonyms.
func (b *Binding) Index(label string) (int, bool) {
	i, ok := b.columns[normalizeLabel(label)]
	return i, ok
}

// Cell returns the text a field reads from row. Cells of multi-column fields are joined
// with a single space; missing cells read as empty.
func (b *Binding) Cell(row domain.RawRow, f FieldRule) string {
	if len(f.Columns) == 1 {
		return b.cell(row, f.Columns[0])
	}
	parts := make([]string, 0, len(f.Columns))
	for _, col := range f.Columns {
		if c := strings.TrimSpace(b.cell(row, col)); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

func (b *Binding) cell(row domain.RawRow, label string) string {
	i, ok := b.Index(label)
	if !ok || i >= len(row.Cells) {
		return ""
	}
	return row.Cells[i]
}

// Dispatcher selects the schema of a file from its header.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher returns a dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Select matches a delimited header line. Each schema splits the line with its own
// delimiter. No match is a *domain.FileDispatchError.
func (d *Dispatcher) Select(headerLine string) (*Binding, error) {
	return d.selectWith(headerLine, func(s *Schema) []string {
		return splitHeader(headerLine, s.Delimiter)
	})
}

// SelectColumns matches a header whose cells are already split, as in spreadsheets.
func (d *Dispatcher) SelectColumns(cells []string) (*Binding, error) {
	return d.selectWith(strings.Join(cells, ","), func(*Schema) []string { return cells })
}

func (d *Dispatcher) selectWith(header string, cellsOf func(*Schema) []string) (*Binding, error) {
	var matches []*Binding
	for _, s := range d.registry.Schemas() {
		if columns, ok := match(s, cellsOf(s)); ok {
			matches = append(matches, &Binding{Schema: s, columns: columns})
		}
	}
	switch len(matches) {
	case 0:
		return nil, &domain.FileDispatchError{Header: header}
	case 1:
		return matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Schema.ID
	}
	return nil, fmt.Errorf("%w: header %q matches %s", ErrAmbiguousSchema, header, strings.Join(ids, ", "))
}

func match(s *Schema, cells []string) (map[string]int, bool) {
	cells = cleanHeader(cells)
	if len(cells) != len(s.Header) {
		return nil, false
	}
	columns := make(map[string]int, len(cells))
	bind := func(l Label, i int) {
		columns[normalizeLabel(l.Name)] = i
		for _, syn := range l.Synonyms {
			columns[normalizeLabel(syn)] = i
		}
	}

	if !s.Unordered {
		for i, l := range s.Header {
			if !l.accepts(cells[i]) {
				return nil, false
			}
			bind(l, i)
		}
		return columns, true
	}

	used := make([]bool, len(cells))
	for _, l := range s.Header {
		found := false
		for i, c := range cells {
			if !used[i] && l.accepts(c) {
				used[i] = true
				bind(l, i)
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return columns, true
}

func (l Label) accepts(cell string) bool {
	c := normalizeLabel(cell)
	if c == normalizeLabel(l.Name) {
		return true
	}
	for _, syn := range l.Synonyms {
		if c == normalizeLabel(syn) {
			return true
		}
	}
	return false
}

// cleanHeader drops trailing empty cells left by a trailing delimiter.
func cleanHeader(cells []string) []string {
	end := len(cells)
	for end > 0 && normalizeLabel(cells[end-1]) == "" {
		end--
	}
	return cells[:end]
}

func splitHeader(line string, delimiter rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	cells, err := r.Read()
	if err != nil {
		return strings.Split(line, string(delimiter))
	}
	return cells
}

func normalizeLabel(label string) string {
	label = strings.TrimPrefix(strings.TrimSpace(label), "\ufeff")
	label = strings.Trim(label, `"`)
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
