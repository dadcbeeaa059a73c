package ledger

import (
	"context"
	"sync"
)

// MemoryLedger is an in-process Ledger with the same atomicity contract as
// the Redis implementation. Used by tests and single-node development runs.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]float64)}
}

func (l *MemoryLedger) DebitIfSufficient(_ context.Context, walletID string, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[walletID]
	if bal < amount {
		return 0, ErrInsufficientFunds
	}
	bal -= amount
	l.balances[walletID] = bal
	return bal, nil
}

func (l *MemoryLedger) Credit(_ context.Context, walletID string, amount float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[walletID] += amount
	return l.balances[walletID], nil
}

func (l *MemoryLedger) Balance(_ context.Context, walletID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[walletID], nil
}

func (l *MemoryLedger) SetBalance(_ context.Context, walletID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[walletID] = amount
	return nil
}
