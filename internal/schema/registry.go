package schema

import (
	"fmt"
	"strings"
)

// Registry is the immutable set of known schemas. It is built once at startup and
// shared read-only by every parse.
type Registry struct {
	schemas []*Schema
	byID    map[string]*Schema
}

// NewRegistry registers schemas. Duplicate ids and schemas whose headers would both
// accept the same header line are configuration errors.
func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Schema, len(schemas))}
	shapes := make(map[string]string, len(schemas))
	for _, s := range schemas {
		if s == nil {
			continue
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("schema %s registered twice", s.ID)
		}
		shape := headerShape(s)
		if other, clash := shapes[shape]; clash {
			return nil, fmt.Errorf("%w: %s and %s declare the same header", ErrAmbiguousSchema, other, s.ID)
		}
		shapes[shape] = s.ID
		r.byID[s.ID] = s
		r.schemas = append(r.schemas, s)
	}
	return r, nil
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []*Schema {
	return append([]*Schema(nil), r.schemas...)
}

// Get returns the schema registered as id.
func (r *Registry) Get(id string) (*Schema, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.schemas)
}

func headerShape(s *Schema) string {
	names := make([]string, len(s.Header))
	for i, l := range s.Header {
		names[i] = normalizeLabel(l.Name)
	}
	return string(s.Delimiter) + "|" + strings.Join(names, "|")
}
