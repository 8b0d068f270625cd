// Package classify maps correlated row groups to canonical transaction clusters.
package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"exchange-import/internal/cluster"
	"exchange-import/internal/domain"
	"exchange-import/internal/schema"
)

// PriceScale is the number of decimal places of derived unit prices. Division rounds
// half away from zero.
const PriceScale int32 = 10

// Classifier decides the transaction kind of a group and builds its cluster.
type Classifier struct {
	schema *schema.Schema
	log    *logrus.Entry
}

// New creates a classifier for groups decoded with s.
func New(s *schema.Schema, log *logrus.Entry) *Classifier {
	return &Classifier{schema: s, log: log}
}

// position is the net amount of one currency across the main legs of a group.
type position struct {
	currency domain.Currency
	action   domain.Action
	side     domain.Side
	amount   decimal.Decimal
	executed time.Time
}

// Classify builds the cluster of g. A group without a classifiable main transaction
// yields no cluster, only problems. A cluster can come with problems of its own rows,
// such as a failed fee or a price mismatch.
func (c *Classifier) Classify(g cluster.Group) (*domain.TransactionCluster, []domain.RowProblem) {
	var trades, moves, sides []domain.Leg
	for _, l := range g.Legs() {
		switch l.Role {
		case domain.RoleTrade:
			trades = append(trades, l)
		case domain.RoleMovement:
			moves = append(moves, l)
		default:
			sides = append(sides, l)
		}
	}

	var (
		main     *domain.ImportedTransaction
		problems []domain.RowProblem
		why      string
		kind     domain.ProblemKind
	)
	switch {
	case len(trades) > 0 && len(moves) > 0:
		kind, why = domain.ProblemUnclassifiable, "group mixes trade and movement legs"
	case len(trades) > 0:
		main, kind, why = c.trade(trades)
	case len(moves) > 0:
		main, kind, why = c.movement(moves)
	default:
		main, sides, kind, why = sideOnly(sides)
	}
	if main == nil {
		return nil, []domain.RowProblem{domain.NewRowProblem(kind, why, g.RawRows()...)}
	}

	main.UID = c.uid(g)
	main.Note = c.text(g, c.schema.Output.NoteField)
	main.Label = c.text(g, c.schema.Output.LabelField)
	main.Address = c.text(g, c.schema.Output.AddressField)

	cl := &domain.TransactionCluster{Main: *main, Related: []domain.ImportedTransaction{}, Lines: g.Lines()}
	rows := rowsByLine(g)
	for _, l := range sides {
		switch {
		case l.Failure != nil:
			cl.FailedFeeTransactionCount++
			msg := fmt.Sprintf("line %d: %s", l.Line, l.Failure.Error())
			cl.FeeProblems = append(cl.FeeProblems, msg)
			problems = append(problems, domain.NewRowProblem(domain.ProblemCoercionFailure,
				strings.ToLower(string(l.Role))+" "+l.Failure.Error(), rows[l.Line]))
		case l.Amount.IsZero():
			cl.IgnoredFeeTransactionCount++
		default:
			cl.Related = append(cl.Related, sideTransaction(l, main.UID))
		}
	}

	if main.UnitPrice != nil {
		if p, ok := c.checkPrice(g, *main.UnitPrice); !ok {
			problems = append(problems, p)
		}
	}

	if c.log != nil {
		c.log.WithFields(logrus.Fields{
			"lines": cl.Lines,
			"type":  cl.Main.Type,
		}).Debug("group classified")
	}
	return cl, problems
}

// trade classifies a group of trade legs. The pair must net to exactly two currencies
// with opposite signs.
func (c *Classifier) trade(legs []domain.Leg) (*domain.ImportedTransaction, domain.ProblemKind, string) {
	pos := aggregate(legs, false)
	switch {
	case len(pos) == 1:
		return nil, domain.ProblemGroupIncomplete, fmt.Sprintf("trade leg in %s has no counter leg", pos[0].currency.Code)
	case len(pos) > 2:
		return nil, domain.ProblemUnsupportedPair, "trade spans currencies " + codes(pos)
	}
	a, b := pos[0], pos[1]
	if a.amount.IsZero() || b.amount.IsZero() {
		return nil, domain.ProblemUnclassifiable, "trade of " + codes(pos) + " has a zero leg"
	}
	if a.amount.IsNegative() == b.amount.IsNegative() {
		sign := "positive"
		if a.amount.IsNegative() {
			sign = "negative"
		}
		return nil, domain.ProblemUnsupportedPair, fmt.Sprintf("both legs of %s are %s", codes(pos), sign)
	}
	if cluster.Staked(a.currency, b.currency) {
		return stake(a, b), "", ""
	}

	base, quote := orient(a, b)
	tx := &domain.ImportedTransaction{
		Type:     domain.TypeBuy,
		Base:     base.currency.Code,
		Quote:    quote.currency.Code,
		Executed: latest(a.executed, b.executed),
		Volume:   base.amount.Abs(),
	}
	if base.amount.IsNegative() {
		tx.Type = domain.TypeSell
	}
	price := c.unitPrice(base.amount, quote.amount)
	tx.UnitPrice = &price
	return tx, "", ""
}

// orient picks the base and quote of a pair: a fiat currency is always the quote,
// otherwise declared sides decide, otherwise the received currency is the base.
func orient(a, b position) (base, quote position) {
	switch {
	case a.currency.Fiat != b.currency.Fiat:
		if a.currency.Fiat {
			return b, a
		}
		return a, b
	case a.side == domain.SideBase || b.side == domain.SideQuote:
		return a, b
	case b.side == domain.SideBase || a.side == domain.SideQuote:
		return b, a
	case a.amount.IsPositive():
		return a, b
	}
	return b, a
}

func (c *Classifier) unitPrice(base, quote decimal.Decimal) decimal.Decimal {
	if c.schema.Output.InversePrice {
		return base.Abs().DivRound(quote.Abs(), PriceScale)
	}
	return quote.Abs().DivRound(base.Abs(), PriceScale)
}

// movement classifies self-contained legs: one movement, or a liquid and staked leg of
// the same asset moving in opposite directions.
func (c *Classifier) movement(legs []domain.Leg) (*domain.ImportedTransaction, domain.ProblemKind, string) {
	pos := aggregate(legs, true)
	if len(pos) == 2 && cluster.Staked(pos[0].currency, pos[1].currency) &&
		pos[0].amount.IsNegative() != pos[1].amount.IsNegative() && !pos[0].amount.IsZero() && !pos[1].amount.IsZero() {
		return stake(pos[0], pos[1]), "", ""
	}
	if len(pos) != 1 {
		return nil, domain.ProblemUnclassifiable, fmt.Sprintf("%d independent movements (%s) in one group", len(pos), codes(pos))
	}
	p := pos[0]
	if p.amount.IsZero() {
		return nil, domain.ProblemUnclassifiable, fmt.Sprintf("zero %s movement of %s", strings.ToLower(string(p.action)), p.currency.Code)
	}
	return &domain.ImportedTransaction{
		Type:     movementType(p.action, p.amount),
		Base:     p.currency.Code,
		Quote:    p.currency.Code,
		Executed: p.executed,
		Volume:   p.amount.Abs(),
	}, "", ""
}

// movementType maps an action to its canonical kind. Sign-dependent actions are decided
// by the amount.
func movementType(a domain.Action, amount decimal.Decimal) domain.TransactionType {
	in := amount.IsPositive()
	switch a {
	case domain.ActionTransfer, domain.ActionDeposit, domain.ActionWithdrawal:
		if in {
			return domain.TypeDeposit
		}
		return domain.TypeWithdrawal
	case domain.ActionPayment, domain.ActionIncomingPayment, domain.ActionOutgoingPayment:
		if in {
			return domain.TypeIncomingPayment
		}
		return domain.TypeOutgoingPayment
	}
	return domain.TransactionType(a)
}

// stake synthesizes one STAKE or UNSTAKE from a liquid and a staked leg.
func stake(a, b position) *domain.ImportedTransaction {
	liquid, staked := a, b
	if a.currency.StakedOf != "" {
		liquid, staked = b, a
	}
	tx := &domain.ImportedTransaction{
		Type:     domain.TypeUnstake,
		Base:     liquid.currency.Code,
		Quote:    staked.currency.Code,
		Executed: latest(a.executed, b.executed),
		Volume:   liquid.amount.Abs(),
	}
	if liquid.amount.IsNegative() {
		tx.Type = domain.TypeStake
	}
	return tx
}

// sideOnly promotes the first usable fee or rebate of a group without main legs.
func sideOnly(legs []domain.Leg) (*domain.ImportedTransaction, []domain.Leg, domain.ProblemKind, string) {
	for i, l := range legs {
		if l.Failure != nil || l.Amount.IsZero() {
			continue
		}
		tx := sideTransaction(l, "")
		rest := append(append([]domain.Leg(nil), legs[:i]...), legs[i+1:]...)
		return &tx, rest, "", ""
	}
	for _, l := range legs {
		if l.Failure != nil {
			return nil, nil, domain.ProblemCoercionFailure, strings.ToLower(string(l.Role)) + " " + l.Failure.Error()
		}
	}
	if len(legs) > 0 {
		return nil, nil, domain.ProblemIgnoredByPolicy, "zero fee without a main transaction"
	}
	return nil, nil, domain.ProblemUnclassifiable, "group has no legs"
}

func sideTransaction(l domain.Leg, uid string) domain.ImportedTransaction {
	typ := domain.TypeFee
	if l.Role == domain.RoleRebate {
		typ = domain.TypeRebate
	}
	return domain.ImportedTransaction{
		UID:      uid,
		Type:     typ,
		Base:     l.Currency.Code,
		Quote:    l.Currency.Code,
		Executed: l.Time,
		Volume:   l.Amount.Abs(),
	}
}

// checkPrice compares an explicit price field with the derived unit price.
func (c *Classifier) checkPrice(g cluster.Group, derived decimal.Decimal) (domain.RowProblem, bool) {
	field := c.schema.Output.PriceField
	if field == "" || derived.IsZero() {
		return domain.RowProblem{}, true
	}
	for _, r := range g.Rows {
		explicit, ok := r.Decimal(field)
		if !ok || explicit.IsZero() {
			continue
		}
		deviation := explicit.Abs().Sub(derived).Abs().DivRound(derived, PriceScale)
		if deviation.GreaterThan(c.schema.Output.PriceTolerance) {
			why := fmt.Sprintf("explicit price %s differs from derived price %s", explicit.Abs(), derived)
			return domain.NewRowProblem(domain.ProblemPriceMismatch, why, r.Row), false
		}
	}
	return domain.RowProblem{}, true
}

func (c *Classifier) uid(g cluster.Group) string {
	if f := c.schema.Correlation.IDField; f != "" {
		return c.text(g, f)
	}
	return ""
}

// text returns the first non-empty value of a field across the group.
func (c *Classifier) text(g cluster.Group, field string) string {
	if field == "" {
		return ""
	}
	for _, r := range g.Rows {
		if t := strings.TrimSpace(r.Text(field)); t != "" {
			return t
		}
	}
	return ""
}

// aggregate nets legs per currency, keeping first-seen order. Movements are also kept
// apart per action.
func aggregate(legs []domain.Leg, byAction bool) []position {
	var out []position
	index := make(map[string]int)
	for _, l := range legs {
		key := l.Currency.Code
		if byAction {
			key += "|" + string(l.Action)
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, position{currency: l.Currency, action: l.Action, side: l.Side, amount: l.Amount, executed: l.Time})
			continue
		}
		out[i].amount = out[i].amount.Add(l.Amount)
		out[i].executed = latest(out[i].executed, l.Time)
		if out[i].side == domain.SideAny {
			out[i].side = l.Side
		}
	}
	return out
}

func codes(pos []position) string {
	names := make([]string, len(pos))
	for i, p := range pos {
		names[i] = p.currency.Code
	}
	return strings.Join(names, ", ")
}

func rowsByLine(g cluster.Group) map[int]domain.RawRow {
	m := make(map[int]domain.RawRow, len(g.Rows))
	for _, r := range g.Rows {
		m[r.Line()] = r.Row
	}
	return m
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
