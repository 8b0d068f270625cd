package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the canonical kind of an imported transaction.
type TransactionType string

const (
	TypeBuy             TransactionType = "BUY"
	TypeSell            TransactionType = "SELL"
	TypeDeposit         TransactionType = "DEPOSIT"
	TypeWithdrawal      TransactionType = "WITHDRAWAL"
	TypeFee             TransactionType = "FEE"
	TypeRebate          TransactionType = "REBATE"
	TypeStake           TransactionType = "STAKE"
	TypeUnstake         TransactionType = "UNSTAKE"
	TypeStakingReward   TransactionType = "STAKING_REWARD"
	TypeReward          TransactionType = "REWARD"
	TypeEarning         TransactionType = "EARNING"
	TypeAirdrop         TransactionType = "AIRDROP"
	TypeFork            TransactionType = "FORK"
	TypeIncomingPayment TransactionType = "INCOMING_PAYMENT"
	TypeOutgoingPayment TransactionType = "OUTGOING_PAYMENT"
)

// Action is what an exchange row claims to describe. Besides every TransactionType it
// has sign-dependent actions (TRADE, TRANSFER, PAYMENT) whose final kind is decided
// by the sign of the amount.
type Action string

const (
	ActionTrade           Action = "TRADE"
	ActionBuy             Action = "BUY"
	ActionSell            Action = "SELL"
	ActionTransfer        Action = "TRANSFER"
	ActionPayment         Action = "PAYMENT"
	ActionDeposit         Action = "DEPOSIT"
	ActionWithdrawal      Action = "WITHDRAWAL"
	ActionFee             Action = "FEE"
	ActionRebate          Action = "REBATE"
	ActionStake           Action = "STAKE"
	ActionUnstake         Action = "UNSTAKE"
	ActionStakingReward   Action = "STAKING_REWARD"
	ActionReward          Action = "REWARD"
	ActionEarning         Action = "EARNING"
	ActionAirdrop         Action = "AIRDROP"
	ActionFork            Action = "FORK"
	ActionIncomingPayment Action = "INCOMING_PAYMENT"
	ActionOutgoingPayment Action = "OUTGOING_PAYMENT"
)

var knownActions = map[Action]LegRole{
	ActionTrade:           RoleTrade,
	ActionBuy:             RoleTrade,
	ActionSell:            RoleTrade,
	ActionTransfer:        RoleMovement,
	ActionPayment:         RoleMovement,
	ActionDeposit:         RoleMovement,
	ActionWithdrawal:      RoleMovement,
	ActionFee:             RoleFee,
	ActionRebate:          RoleRebate,
	ActionStake:           RoleMovement,
	ActionUnstake:         RoleMovement,
	ActionStakingReward:   RoleMovement,
	ActionReward:          RoleMovement,
	ActionEarning:         RoleMovement,
	ActionAirdrop:         RoleMovement,
	ActionFork:            RoleMovement,
	ActionIncomingPayment: RoleMovement,
	ActionOutgoingPayment: RoleMovement,
}

// Valid reports whether a is one of the declared actions.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Role returns the leg role rows with this action contribute.
func (a Action) Role() LegRole {
	return knownActions[a]
}

// LegRole tells the classifier how a leg participates in a cluster.
type LegRole string

const (
	// RoleTrade is one side of an exchange of two currencies.
	RoleTrade LegRole = "TRADE"
	// RoleMovement is a self-contained movement (deposit, reward, stake...).
	RoleMovement LegRole = "MOVEMENT"
	RoleFee      LegRole = "FEE"
	RoleRebate   LegRole = "REBATE"
)

// Side pins a trade leg to the base or quote position of the pair.
type Side string

const (
	SideAny   Side = ""
	SideBase  Side = "base"
	SideQuote Side = "quote"
)

// Currency is an entry of the currency master list.
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Fiat bool   `json:"fiat,omitempty"`
	// StakedOf names the liquid currency when Code is its staked representation.
	StakedOf string `json:"staked_of,omitempty"`
}

// Leg is a single (currency, signed amount, role) contribution of one decoded row.
type Leg struct {
	Role     LegRole
	Action   Action
	Side     Side
	Currency Currency
	Amount   decimal.Decimal
	Line     int
	Time     time.Time
	// Failure is set when the leg is present but its currency or amount did not validate.
	Failure *FieldError
}

// Negative reports whether the leg leaves the account.
func (l Leg) Negative() bool {
	return l.Amount.IsNegative()
}

// ImportedTransaction is the canonical output entity.
type ImportedTransaction struct {
	UID       string           `json:"uid,omitempty"`
	Type      TransactionType  `json:"type"`
	Base      string           `json:"base"`
	Quote     string           `json:"quote"`
	Executed  time.Time        `json:"executed"`
	Volume    decimal.Decimal  `json:"volume"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Note      string           `json:"note,omitempty"`
	Label     string           `json:"label,omitempty"`
	Address   string           `json:"address,omitempty"`
}

// TransactionCluster is one logical transaction: a main transaction plus the fee and
// rebate transactions sharing its event.
type TransactionCluster struct {
	Main    ImportedTransaction   `json:"main"`
	Related []ImportedTransaction `json:"related"`
	// Lines lists the contributing source lines in ascending order.
	Lines                      []int    `json:"lines"`
	IgnoredFeeTransactionCount int      `json:"ignored_fee_transaction_count"`
	FailedFeeTransactionCount  int      `json:"failed_fee_transaction_count"`
	FeeProblems                []string `json:"fee_problems,omitempty"`
}

// FirstLine returns the earliest contributing line, or 0 for an empty cluster.
func (c TransactionCluster) FirstLine() int {
	if len(c.Lines) == 0 {
		return 0
	}
	return c.Lines[0]
}
