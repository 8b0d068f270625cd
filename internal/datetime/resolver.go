// Package datetime infers a parse layout from a timestamp literal whose format is
// not known in advance.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ErrNoMatchingPattern is returned when no catalogue combination fits a literal.
var ErrNoMatchingPattern = errors.New("unrecognized timestamp")

// Format is a resolved timestamp layout. UnpaddedHour marks a 24h hour written
// without its leading zero.
type Format struct {
	Layout       string
	Location     *time.Location
	UnpaddedHour bool
}

// Parse parses s with the resolved layout.
func (f Format) Parse(s string) (time.Time, error) {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(f.Layout, strings.TrimSpace(s), loc)
}

// Render formats t with the resolved layout. A literal parsed by this format
// renders back to itself, fractional digits included.
func (f Format) Render(t time.Time) string {
	out := t.Format(f.Layout)
	if !f.UnpaddedHour || t.Hour() >= 10 {
		return out
	}
	i := strings.Index(f.Layout, "15")
	if i < 0 {
		return out
	}
	// everything before the hour renders the same with or without it
	at := len(t.Format(f.Layout[:i]))
	if at < len(out) && out[at] == '0' {
		return out[:at] + out[at+1:]
	}
	return out
}

// Resolver resolves literals against the fixed date x time x separator catalogue.
// Candidates are memoized by literal shape, so a Resolver is meant to be owned by one
// parse invocation and is not safe for concurrent use.
type Resolver struct {
	location *time.Location
	shapes   map[string][]Format
}

// NewResolver returns a resolver that interprets zone-less literals in loc.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{location: loc, shapes: make(map[string][]Format)}
}

// Location is where zone-less literals are interpreted.
func (r *Resolver) Location() *time.Location {
	return r.location
}

// Resolve returns the first catalogue format that parses literal.
func (r *Resolver) Resolve(literal string) (Format, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return Format{}, fmt.Errorf("%w: empty literal", ErrNoMatchingPattern)
	}
	key := shape(literal)
	candidates, ok := r.shapes[key]
	if !ok {
		candidates = r.candidates(literal)
		r.shapes[key] = candidates
	}
	for _, f := range candidates {
		if _, err := f.Parse(literal); err == nil {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %q", ErrNoMatchingPattern, literal)
}

// Parse resolves literal and parses it in one step.
func (r *Resolver) Parse(literal string) (time.Time, Format, error) {
	f, err := r.Resolve(literal)
	if err != nil {
		return time.Time{}, Format{}, err
	}
	t, err := f.Parse(literal)
	if err != nil {
		return time.Time{}, Format{}, fmt.Errorf("%w: %v", ErrNoMatchingPattern, err)
	}
	return t, f, nil
}

// candidates lists every structurally consistent layout for the literal, in
// catalogue order. Only the token shape of the literal is consulted.
func (r *Resolver) candidates(literal string) []Format {
	p, ok := split(literal)
	if !ok {
		return nil
	}
	clock, ok := timeLayout(p)
	if !ok {
		return nil
	}
	loc := r.location
	if p.zone == " UTC" || p.zone == " GMT" {
		loc = time.UTC
	}
	zone := zoneLayout(p.zone)
	unpadded := unpaddedHour(p)

	var out []Format
	seen := make(map[string]bool)
	for _, dp := range dateCatalogue {
		for _, date := range dp.layouts(p.date) {
			layout := date + p.sep + clock + zone
			if seen[layout] {
				continue
			}
			seen[layout] = true
			out = append(out, Format{Layout: layout, Location: loc, UnpaddedHour: unpadded})
		}
	}
	return out
}

// shape reduces a literal to its token shape: digits become 9, letters keep their case
// class and length, everything else is kept verbatim.
func shape(literal string) string {
	var b strings.Builder
	b.Grow(len(literal))
	for _, c := range literal {
		switch {
		case unicode.IsDigit(c):
			b.WriteByte('9')
		case unicode.IsUpper(c):
			b.WriteByte('A')
		case unicode.IsLower(c):
			b.WriteByte('a')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
