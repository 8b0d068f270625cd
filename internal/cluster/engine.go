// Package cluster groups decoded rows that jointly describe one logical transaction.
package cluster

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"exchange-import/internal/domain"
	"exchange-import/internal/schema"
)

// Group is a set of correlated rows in line order.
type Group struct {
	// Key is the correlation key the rows share, empty for standalone rows.
	Key  string
	Rows []domain.DecodedRow
}

// FirstLine returns the earliest line of the group.
func (g Group) FirstLine() int {
	if len(g.Rows) == 0 {
		return 0
	}
	return g.Rows[0].Line()
}

// Lines returns the group lines in ascending order.
func (g Group) Lines() []int {
	lines := make([]int, len(g.Rows))
	for i, r := range g.Rows {
		lines[i] = r.Line()
	}
	return lines
}

// RawRows returns the raw rows behind the group, for diagnostics.
func (g Group) RawRows() []domain.RawRow {
	raw := make([]domain.RawRow, len(g.Rows))
	for i, r := range g.Rows {
		raw[i] = r.Row
	}
	return raw
}

// Legs returns the legs of every row, in line order.
func (g Group) Legs() []domain.Leg {
	var legs []domain.Leg
	for _, r := range g.Rows {
		legs = append(legs, r.Legs...)
	}
	return legs
}

// Engine partitions the decoded rows of one file. Exact correlation keys are grouped
// first; leftover single trade legs are then paired by tolerance matching.
type Engine struct {
	schema *schema.Schema
	log    *logrus.Entry
}

// NewEngine creates an engine using the correlation policy of s.
func NewEngine(s *schema.Schema, log *logrus.Entry) *Engine {
	return &Engine{schema: s, log: log}
}

// Group partitions rows. Groups are ordered by their earliest line. Groups whose trade
// legs never found a counter leg are returned as GROUP_INCOMPLETE problems.
func (e *Engine) Group(rows []domain.DecodedRow) ([]Group, []domain.RowProblem) {
	var groups []*Group
	byKey := make(map[string]*Group)
	for _, row := range rows {
		key, ok := e.key(row)
		if !ok {
			groups = append(groups, &Group{Rows: []domain.DecodedRow{row}})
			continue
		}
		if g, seen := byKey[key]; seen {
			g.Rows = append(g.Rows, row)
			continue
		}
		g := &Group{Key: key, Rows: []domain.DecodedRow{row}}
		byKey[key] = g
		groups = append(groups, g)
	}

	if e.schema.Correlation.Pair {
		groups = e.pair(groups)
	}

	var (
		out      []Group
		problems []domain.RowProblem
	)
	for _, g := range groups {
		sort.SliceStable(g.Rows, func(i, j int) bool { return g.Rows[i].Line() < g.Rows[j].Line() })
		if why, incomplete := incompleteTrade(*g); incomplete {
			problems = append(problems, domain.NewRowProblem(domain.ProblemGroupIncomplete, why, g.RawRows()...))
			continue
		}
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FirstLine() < out[j].FirstLine() })

	if e.log != nil {
		e.log.WithFields(logrus.Fields{"rows": len(rows), "groups": len(out), "incomplete": len(problems)}).Debug("rows correlated")
	}
	return out, problems
}

// key is the exact correlation key of a row: its account plus the explicit id, or plus
// the (rounded) timestamp for time-correlated schemas.
func (e *Engine) key(row domain.DecodedRow) (string, bool) {
	c := e.schema.Correlation
	account := e.account(row)
	if c.IDField != "" {
		if id := strings.TrimSpace(row.Text(c.IDField)); id != "" {
			return "id|" + account + "|" + id, true
		}
	}
	if c.ByTime {
		if t, ok := row.Time(e.schema.TimeField); ok {
			if c.Round > 0 {
				t = t.Truncate(c.Round)
			}
			return "time|" + account + "|" + t.UTC().Format(time.RFC3339Nano), true
		}
	}
	return "", false
}

func (e *Engine) account(row domain.DecodedRow) string {
	parts := make([]string, len(e.schema.Correlation.AccountFields))
	for i, name := range e.schema.Correlation.AccountFields {
		parts[i] = strings.TrimSpace(row.Text(name))
	}
	return strings.Join(parts, "/")
}

// candidate is a single-row group holding exactly one main leg that may need a partner.
type candidate struct {
	group   *Group
	leg     domain.Leg
	account string
	rate    decimal.Decimal
}

// pair merges complementary candidates. Candidates are visited in line order and each
// takes the best unmatched partner: same account first, then the smallest time
// distance, then the earliest line.
func (e *Engine) pair(groups []*Group) []*Group {
	var cands []*candidate
	for _, g := range groups {
		if c, ok := e.candidate(g); ok {
			cands = append(cands, c)
		}
	}

	merged := make(map[*Group]bool)
	taken := make([]bool, len(cands))
	for i, a := range cands {
		if taken[i] {
			continue
		}
		best := -1
		for j, b := range cands {
			if j == i || taken[j] || !e.complementary(a, b) {
				continue
			}
			if best < 0 || closer(a, b, cands[best]) {
				best = j
			}
		}
		if best < 0 {
			continue
		}
		b := cands[best]
		taken[i], taken[best] = true, true
		a.group.Rows = append(a.group.Rows, b.group.Rows...)
		a.group.Key = fmt.Sprintf("pair|%d|%d", a.leg.Line, b.leg.Line)
		merged[b.group] = true
		if e.log != nil {
			e.log.WithFields(logrus.Fields{"line": a.leg.Line, "partner": b.leg.Line}).Debug("legs paired by tolerance")
		}
	}

	out := groups[:0]
	for _, g := range groups {
		if !merged[g] {
			out = append(out, g)
		}
	}
	return out
}

func (e *Engine) candidate(g *Group) (*candidate, bool) {
	if len(g.Rows) != 1 {
		return nil, false
	}
	row := g.Rows[0]
	var main []domain.Leg
	for _, l := range row.Legs {
		if l.Role == domain.RoleTrade || l.Role == domain.RoleMovement {
			main = append(main, l)
		}
	}
	if len(main) != 1 || main[0].Amount.IsZero() {
		return nil, false
	}
	c := &candidate{group: g, leg: main[0], account: e.account(row)}
	if f := e.schema.Correlation.RateField; f != "" {
		c.rate, _ = row.Decimal(f)
	}
	return c, true
}

func (e *Engine) complementary(a, b *candidate) bool {
	if a.leg.Negative() == b.leg.Negative() || a.leg.Currency.Code == b.leg.Currency.Code {
		return false
	}
	if absDuration(a.leg.Time.Sub(b.leg.Time)) > e.schema.Correlation.Window {
		return false
	}
	switch {
	case a.leg.Role == domain.RoleTrade && b.leg.Role == domain.RoleTrade:
	case a.leg.Role == domain.RoleMovement && b.leg.Role == domain.RoleMovement:
		if !Staked(a.leg.Currency, b.leg.Currency) {
			return false
		}
	default:
		return false
	}
	tol := e.schema.Correlation.RateTolerance
	for _, rate := range []decimal.Decimal{a.rate, b.rate} {
		if !rate.IsZero() && !rateMatches(a.leg.Amount, b.leg.Amount, rate, tol) {
			return false
		}
	}
	return true
}

// closer reports whether b is a better partner for a than current.
func closer(a, b, current *candidate) bool {
	bSame, cSame := b.account == a.account, current.account == a.account
	if bSame != cSame {
		return bSame
	}
	bd, cd := absDuration(a.leg.Time.Sub(b.leg.Time)), absDuration(a.leg.Time.Sub(current.leg.Time))
	if bd != cd {
		return bd < cd
	}
	return b.leg.Line < current.leg.Line
}

// rateMatches accepts an explicit rate quoted in either direction of the pair when it
// is within the relative tolerance of the amount ratio.
func rateMatches(x, y, rate, tol decimal.Decimal) bool {
	x, y, rate = x.Abs(), y.Abs(), rate.Abs()
	if x.IsZero() || y.IsZero() {
		return false
	}
	for _, implied := range []decimal.Decimal{x.DivRound(y, 16), y.DivRound(x, 16)} {
		if implied.Sub(rate).Abs().LessThanOrEqual(rate.Mul(tol)) {
			return true
		}
	}
	return false
}

// Staked reports whether one currency is the staked representation of the other.
func Staked(a, b domain.Currency) bool {
	return (a.StakedOf != "" && a.StakedOf == b.Code) || (b.StakedOf != "" && b.StakedOf == a.Code)
}

// incompleteTrade reports a group whose trade legs all share one currency, i.e. the
// counter leg of the trade never appeared.
func incompleteTrade(g Group) (string, bool) {
	currencies := make(map[string]bool)
	for _, l := range g.Legs() {
		if l.Role == domain.RoleTrade {
			currencies[l.Currency.Code] = true
		}
	}
	if len(currencies) != 1 {
		return "", false
	}
	for code := range currencies {
		return fmt.Sprintf("trade leg in %s has no counter leg", code), true
	}
	return "", false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
