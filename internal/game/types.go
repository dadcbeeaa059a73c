package game

import (
	"time"
)

type BetStatus string

const (
	BetPlaced    BetStatus = "PLACED"
	BetCashedOut BetStatus = "CASHED_OUT"
	BetLost      BetStatus = "LOST"
)

// Bet is one wager inside one round. Its status moves away from PLACED
// exactly once; after that the record is immutable and ledger-settled.
// All status transitions go through the settlement guard.
type Bet struct {
	ID          string    `json:"bet_id"`
	RoundSeq    int64     `json:"round_sequence"`
	UserID      string    `json:"user_id"`
	Currency    string    `json:"currency"`
	Amount      float64   `json:"amount"`
	AutoCashout float64   `json:"auto_cashout,omitempty"`
	Status      BetStatus `json:"status"`
	PlacedAt    time.Time `json:"placed_at"`

	// Set only on settlement.
	SettledMultiplier float64   `json:"settled_multiplier,omitempty"`
	Payout            float64   `json:"payout,omitempty"`
	Profit            float64   `json:"profit,omitempty"`
	SettledAt         time.Time `json:"settled_at,omitempty"`
}

// BetReceipt is what a successful placement returns to the caller.
type BetReceipt struct {
	BetID   string  `json:"bet_id"`
	Balance float64 `json:"balance"`
}

// Settlement is what a successful cashout returns to the caller.
type Settlement struct {
	BetID      string  `json:"bet_id"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
	Profit     float64 `json:"profit"`
	Balance    float64 `json:"balance"`
}

// BetRequest and CashoutRequest funnel caller goroutines into the engine
// loop; the loop answers over the embedded response channel.
type BetRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	AutoCashout float64 `json:"auto_cashout,omitempty"`

	resp chan betResult
}

type betResult struct {
	receipt BetReceipt
	err     error
}

type CashoutRequest struct {
	UserID string `json:"user_id"`
	BetID  string `json:"bet_id"`

	resp chan cashoutResult
}

type cashoutResult struct {
	settlement Settlement
	err        error
}

// Wire events published through the Broadcaster.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type BetPlacedEvent struct {
	RoundSeq int64   `json:"round_sequence"`
	BetID    string  `json:"bet_id"`
	UserID   string  `json:"user_id"`
	Amount   float64 `json:"amount"`
}

type CashedOutEvent struct {
	RoundSeq   int64   `json:"round_sequence"`
	BetID      string  `json:"bet_id"`
	UserID     string  `json:"user_id"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
}

type TickEvent struct {
	RoundSeq   int64   `json:"round_sequence"`
	Multiplier float64 `json:"multiplier"`
}

type CrashEvent struct {
	RoundSeq     int64   `json:"round_sequence"`
	Multiplier   float64 `json:"multiplier"`
	RevealedSeed string  `json:"revealed_seed"`
}
