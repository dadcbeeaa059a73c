// Package ledger is the engine's view of the external wallet store: one
// atomic debit-if-sufficient and one atomic credit per call. Each call is a
// single read-check-write scoped to the wallet, so N concurrent debits that
// together exceed the balance resolve with at most the affordable subset
// succeeding and the balance never going negative.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds is a business outcome, not a fault.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type Ledger interface {
	// DebitIfSufficient atomically checks and deducts amount from the
	// wallet, returning the new balance or ErrInsufficientFunds.
	DebitIfSufficient(ctx context.Context, walletID string, amount float64) (float64, error)
	// Credit atomically adds amount to the wallet, returning the new balance.
	Credit(ctx context.Context, walletID string, amount float64) (float64, error)
	// Balance reads the wallet's current balance.
	Balance(ctx context.Context, walletID string) (float64, error)
}
