package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"crashcore/internal/broadcast"
	"crashcore/internal/ledger"
)

// Expected business outcomes. Losing a race or arriving late is normal
// control flow under load, never a fault.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidRoundState  = errors.New("invalid round state for this action")
	ErrGameAlreadyCrashed = errors.New("game already crashed")
	ErrAlreadySettled     = errors.New("bet already settled")
	ErrBetNotFound        = errors.New("bet not found")
	ErrBetLimits          = errors.New("bet amount outside limits")
)

const GameTypeCrash = "crash"

// Guard is the only component that transitions Bet status and the only
// caller of the ledger's debit/credit primitives. Per-bet locking makes
// every settlement at-most-once: of N concurrent cashout attempts for one
// bet, the first wins and the rest observe the settled status.
type Guard struct {
	ledger     ledger.Ledger
	bc         broadcast.Broadcaster
	commission CommissionNotifier

	minBet float64
	maxBet float64

	mu    sync.RWMutex
	round *Round
	bets  map[string]*betEntry
}

type betEntry struct {
	mu  sync.Mutex
	bet Bet
}

func NewGuard(l ledger.Ledger, bc broadcast.Broadcaster, commission CommissionNotifier, minBet, maxBet float64) *Guard {
	if bc == nil {
		bc = broadcast.Nop{}
	}
	if commission == nil {
		commission = NopCommission{}
	}
	return &Guard{
		ledger:     l,
		bc:         bc,
		commission: commission,
		minBet:     minBet,
		maxBet:     maxBet,
		bets:       make(map[string]*betEntry),
	}
}

// Reset binds the guard to a fresh round and clears the bet registry.
// Called by the engine loop between rounds, after archiving.
func (g *Guard) Reset(r *Round) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.round = r
	g.bets = make(map[string]*betEntry)
}

func (g *Guard) currentRound() *Round {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.round
}

// PlaceBet debits the wallet and creates a PLACED bet in the current round.
// The debit and the bet creation form one unit: if the betting window slams
// shut between the state check and the debit, the debit is refunded and
// nothing is created.
func (g *Guard) PlaceBet(ctx context.Context, userID string, amount float64, currency string, autoCashout float64) (BetReceipt, error) {
	if amount < g.minBet || amount > g.maxBet {
		return BetReceipt{}, fmt.Errorf("%w: %.2f not in [%.2f, %.2f]", ErrBetLimits, amount, g.minBet, g.maxBet)
	}
	if autoCashout != 0 && (autoCashout < 1.01 || autoCashout > MaxMultiplier) {
		return BetReceipt{}, fmt.Errorf("%w: auto cashout %.2f", ErrBetLimits, autoCashout)
	}

	r := g.currentRound()
	if r == nil || r.Status() != StatusWaiting {
		return BetReceipt{}, ErrInvalidRoundState
	}

	balance, err := g.ledger.DebitIfSufficient(ctx, walletID(userID, currency), amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return BetReceipt{}, ErrInsufficientFunds
	}
	if err != nil {
		return BetReceipt{}, err
	}

	if r.Status() != StatusWaiting {
		// Window closed while the debit was in flight. Roll the money back.
		if _, err := g.ledger.Credit(ctx, walletID(userID, currency), amount); err != nil {
			log.Printf("[SETTLE] Refund of %.2f to %s failed after closed window: %v", amount, userID, err)
		}
		return BetReceipt{}, ErrInvalidRoundState
	}

	entry := &betEntry{bet: Bet{
		ID:          uuid.NewString(),
		RoundSeq:    r.Sequence,
		UserID:      userID,
		Currency:    currency,
		Amount:      amount,
		AutoCashout: autoCashout,
		Status:      BetPlaced,
		PlacedAt:    time.Now(),
	}}

	g.mu.Lock()
	g.bets[entry.bet.ID] = entry
	g.mu.Unlock()

	g.bc.PublishRound(Event{Type: "bet_placed", Data: BetPlacedEvent{
		RoundSeq: r.Sequence,
		BetID:    entry.bet.ID,
		UserID:   userID,
		Amount:   amount,
	}})

	return BetReceipt{BetID: entry.bet.ID, Balance: balance}, nil
}

// Cashout settles a bet at the authoritative live multiplier. The caller
// never supplies a multiplier; validity is decided by round state at the
// instant of evaluation, not by request payload or arrival time.
func (g *Guard) Cashout(ctx context.Context, betID, userID string) (Settlement, error) {
	g.mu.RLock()
	entry := g.bets[betID]
	r := g.round
	g.mu.RUnlock()

	if entry == nil || entry.bet.UserID != userID {
		return Settlement{}, ErrBetNotFound
	}
	if r == nil {
		return Settlement{}, ErrInvalidRoundState
	}

	switch r.Status() {
	case StatusWaiting:
		return Settlement{}, ErrInvalidRoundState
	case StatusCrashed:
		return Settlement{}, ErrGameAlreadyCrashed
	}

	mult := r.LiveMultiplier()
	// Between ticks the curve can reach the crash point before the state
	// machine records it; such a cashout is already too late.
	if mult >= r.CrashPointValue() || r.Status() == StatusCrashed {
		return Settlement{}, ErrGameAlreadyCrashed
	}

	return g.settle(ctx, entry, mult)
}

// autoCashout settles a bet at exactly its registered target.
func (g *Guard) autoCashout(ctx context.Context, entry *betEntry) (Settlement, error) {
	return g.settle(ctx, entry, entry.bet.AutoCashout)
}

// settle performs the at-most-once status transition together with the
// ledger credit, as one unit under the bet's lock. A failed credit leaves
// the bet PLACED, never a settled status without money moved.
func (g *Guard) settle(ctx context.Context, entry *betEntry, mult float64) (Settlement, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.bet.Status != BetPlaced {
		return Settlement{}, ErrAlreadySettled
	}

	payout := math.Floor(entry.bet.Amount*mult*100) / 100
	balance, err := g.ledger.Credit(ctx, walletID(entry.bet.UserID, entry.bet.Currency), payout)
	if err != nil {
		return Settlement{}, fmt.Errorf("cashout credit: %w", err)
	}

	entry.bet.Status = BetCashedOut
	entry.bet.SettledMultiplier = mult
	entry.bet.Payout = payout
	entry.bet.Profit = payout - entry.bet.Amount
	entry.bet.SettledAt = time.Now()

	s := Settlement{
		BetID:      entry.bet.ID,
		Multiplier: mult,
		Payout:     payout,
		Profit:     entry.bet.Profit,
		Balance:    balance,
	}

	go g.commission.NotifySettlement(entry.bet.UserID, entry.bet.Amount, payout, GameTypeCrash)

	g.bc.PublishRound(Event{Type: "cashed_out", Data: CashedOutEvent{
		RoundSeq:   entry.bet.RoundSeq,
		BetID:      entry.bet.ID,
		UserID:     entry.bet.UserID,
		Multiplier: mult,
		Payout:     payout,
	}})
	g.bc.PublishUser(entry.bet.UserID, Event{Type: "cashout_settled", Data: s})

	return s, nil
}

// RunAutoCashouts settles every placed bet whose target the live multiplier
// has reached. Called from the engine loop on each tick.
func (g *Guard) RunAutoCashouts(ctx context.Context, liveMult float64) {
	for _, entry := range g.entries() {
		entry.mu.Lock()
		due := entry.bet.Status == BetPlaced && entry.bet.AutoCashout > 0 && liveMult >= entry.bet.AutoCashout
		entry.mu.Unlock()
		if due {
			g.autoCashout(ctx, entry)
		}
	}
}

// SettleAutoCashoutsAtCrash runs on the crash tick, before losers are
// settled. A target strictly below the crash point was reached by the live
// curve while the round was still RUNNING, even when no tick fired between
// the target and the crash; such a bet settles at exactly its target.
func (g *Guard) SettleAutoCashoutsAtCrash(ctx context.Context, crashPoint float64) {
	for _, entry := range g.entries() {
		entry.mu.Lock()
		due := entry.bet.Status == BetPlaced && entry.bet.AutoCashout > 0 && entry.bet.AutoCashout < crashPoint
		entry.mu.Unlock()
		if due {
			g.autoCashout(ctx, entry)
		}
	}
}

// SettleLosers marks every bet still PLACED as LOST. No credit moves; the
// stake was already debited at placement.
func (g *Guard) SettleLosers(ctx context.Context) int {
	lost := 0
	for _, entry := range g.entries() {
		entry.mu.Lock()
		if entry.bet.Status == BetPlaced {
			entry.bet.Status = BetLost
			entry.bet.Payout = 0
			entry.bet.Profit = -entry.bet.Amount
			entry.bet.SettledAt = time.Now()
			lost++
			go g.commission.NotifySettlement(entry.bet.UserID, entry.bet.Amount, 0, GameTypeCrash)
			g.bc.PublishUser(entry.bet.UserID, Event{Type: "bet_lost", Data: entry.bet})
		}
		entry.mu.Unlock()
	}
	return lost
}

func (g *Guard) entries() []*betEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*betEntry, 0, len(g.bets))
	for _, e := range g.bets {
		out = append(out, e)
	}
	return out
}

// Bets returns a stable snapshot of every bet in the current round,
// ordered by placement time. Used for archiving after the crash.
func (g *Guard) Bets() []Bet {
	entries := g.entries()
	out := make([]Bet, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.bet)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out
}

// walletID scopes a wallet to its currency.
func walletID(userID, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return userID + ":" + currency
}
