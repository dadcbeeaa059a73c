package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_DebitIfSufficient(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.SetBalance(ctx, "w1", 100))

	bal, err := l.DebitIfSufficient(ctx, "w1", 40)
	require.NoError(t, err)
	assert.Equal(t, 60.0, bal)

	_, err = l.DebitIfSufficient(ctx, "w1", 61)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err = l.Balance(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, bal, "failed debit must not move money")
}

func TestMemoryLedger_DebitUnknownWallet(t *testing.T) {
	l := NewMemoryLedger()
	_, err := l.DebitIfSufficient(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestMemoryLedger_Credit(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	bal, err := l.Credit(ctx, "w1", 25.5)
	require.NoError(t, err)
	assert.Equal(t, 25.5, bal)
}

func TestMemoryLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	// Ten concurrent withdrawals of 100 against a balance of 100: at most
	// one succeeds and the balance never goes negative.
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.SetBalance(ctx, "w1", 100))

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.DebitIfSufficient(ctx, "w1", 100); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	bal, err := l.Balance(ctx, "w1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bal, 0.0)
	assert.Equal(t, 0.0, bal)
}

func TestMemoryLedger_ConcurrentMixedTraffic(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.SetBalance(ctx, "w1", 1000))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.DebitIfSufficient(ctx, "w1", 10)
		}()
		go func() {
			defer wg.Done()
			l.Credit(ctx, "w1", 10)
		}()
	}
	wg.Wait()

	bal, err := l.Balance(ctx, "w1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bal, 0.0)
}
