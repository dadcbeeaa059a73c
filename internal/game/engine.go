package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"crashcore/internal/broadcast"
	"crashcore/internal/ledger"
)

const (
	betQueueSize     = 1000
	cashoutQueueSize = 1000
	betTimeout       = 5 * time.Second
	cashoutTimeout   = 500 * time.Millisecond
)

// ErrEngineBusy means a request queue was full or the loop did not answer
// in time. Safe to retry.
var ErrEngineBusy = errors.New("engine busy")

// Archiver persists a crashed round and its bets for audit. The engine
// calls it once per round, after settlement.
type Archiver interface {
	ArchiveRound(ctx context.Context, round RoundSnapshot, bets []Bet) error
}

type NopArchiver struct{}

func (NopArchiver) ArchiveRound(context.Context, RoundSnapshot, []Bet) error { return nil }

// Engine drives the round lifecycle: one goroutine owns the state machine
// and its clock; bet and cashout traffic funnels in over channels, so no
// two settlement-affecting operations race the tick that crashes the round.
type Engine struct {
	cfg      Config
	chain    *SeedChain
	guard    *Guard
	bc       broadcast.Broadcaster
	archiver Archiver

	mu    sync.RWMutex
	round *Round

	betCh     chan BetRequest
	cashoutCh chan CashoutRequest
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewEngine(cfg Config, l ledger.Ledger, bc broadcast.Broadcaster, commission CommissionNotifier, archiver Archiver) *Engine {
	if cfg.MasterSecret == "" {
		cfg.MasterSecret = GenerateSecret()
		log.Println("[ENGINE] No master secret configured, generated an ephemeral one; past rounds will not be re-derivable after restart")
	}
	if cfg.GrowthRate == 0 {
		cfg.GrowthRate = GrowthRate
	}
	if bc == nil {
		bc = broadcast.Nop{}
	}
	if archiver == nil {
		archiver = NopArchiver{}
	}
	return &Engine{
		cfg:       cfg,
		chain:     NewSeedChain(cfg.MasterSecret, cfg.StartSequence),
		guard:     NewGuard(l, bc, commission, cfg.MinBet, cfg.MaxBet),
		bc:        bc,
		archiver:  archiver,
		betCh:     make(chan BetRequest, betQueueSize),
		cashoutCh: make(chan CashoutRequest, cashoutQueueSize),
		stopCh:    make(chan struct{}),
	}
}

func (e *Engine) Start() {
	go e.run()
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// CurrentState is the read-only round snapshot for state queries and new
// viewers. Secrets stay hidden until the crash reveal.
func (e *Engine) CurrentState() (RoundSnapshot, bool) {
	e.mu.RLock()
	r := e.round
	e.mu.RUnlock()
	if r == nil {
		return RoundSnapshot{}, false
	}
	return r.Snapshot(), true
}

// PlaceBet funnels a placement into the engine loop and waits for the
// verdict.
func (e *Engine) PlaceBet(ctx context.Context, req BetRequest) (BetReceipt, error) {
	req.resp = make(chan betResult, 1)

	select {
	case e.betCh <- req:
	default:
		return BetReceipt{}, ErrEngineBusy
	}

	select {
	case res := <-req.resp:
		return res.receipt, res.err
	case <-time.After(betTimeout):
		return BetReceipt{}, ErrEngineBusy
	case <-ctx.Done():
		return BetReceipt{}, ctx.Err()
	}
}

// Cashout funnels a cashout into the engine loop and waits for the verdict.
func (e *Engine) Cashout(ctx context.Context, req CashoutRequest) (Settlement, error) {
	req.resp = make(chan cashoutResult, 1)

	select {
	case e.cashoutCh <- req:
	default:
		return Settlement{}, ErrEngineBusy
	}

	select {
	case res := <-req.resp:
		return res.settlement, res.err
	case <-time.After(cashoutTimeout):
		return Settlement{}, ErrEngineBusy
	case <-ctx.Done():
		return Settlement{}, ctx.Err()
	}
}

func (e *Engine) run() {
	for {
		select {
		case <-e.stopCh:
			log.Println("[ENGINE] Round loop stopped")
			return
		default:
			e.runRound()
		}
	}
}

func (e *Engine) runRound() {
	ctx := context.Background()

	seq := e.chain.NextSequence()
	serverSeed := e.chain.RoundSeed(seq)
	clientSeed := e.cfg.ClientSeed
	if clientSeed == "" {
		clientSeed = GenerateSecret() // platform-supplied public seed
	}

	round := NewRound(seq, serverSeed, clientSeed, e.cfg.HouseEdge, e.cfg.BettingWindow)
	round.growthRate = e.cfg.GrowthRate

	e.mu.Lock()
	e.round = round
	e.mu.Unlock()
	e.guard.Reset(round)

	log.Printf("[ROUND %d] Commitment %s... (crash point hidden)", seq, round.Commitment[:16])

	e.bc.PublishRound(Event{Type: "round_waiting", Data: round.Snapshot()})

	bettingTimer := time.NewTimer(e.cfg.BettingWindow)
	defer bettingTimer.Stop()

	for waiting := true; waiting; {
		select {
		case <-bettingTimer.C:
			waiting = false
		case req := <-e.betCh:
			e.answerBet(ctx, req)
		case req := <-e.cashoutCh:
			e.answerCashout(ctx, req)
		case <-e.stopCh:
			return
		}
	}

	round.Begin()
	e.bc.PublishRound(Event{Type: "round_running", Data: round.Snapshot()})

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ticker.C:
			mult, crashed := round.Tick()
			if crashed {
				// Targets the curve passed inside this tick interval still
				// win; only then do the remaining bets lose.
				e.guard.SettleAutoCashoutsAtCrash(ctx, mult)
				lost := e.guard.SettleLosers(ctx)
				log.Printf("[ROUND %d] Crashed at %.2fx (%d bets lost)", seq, mult, lost)
				e.bc.PublishRound(Event{Type: "crash", Data: CrashEvent{
					RoundSeq:     seq,
					Multiplier:   mult,
					RevealedSeed: round.RevealSeed(),
				}})
				running = false
				break
			}
			e.bc.PublishRound(Event{Type: "tick", Data: TickEvent{RoundSeq: seq, Multiplier: mult}})
			e.guard.RunAutoCashouts(ctx, mult)
		case req := <-e.betCh:
			e.answerBet(ctx, req)
		case req := <-e.cashoutCh:
			e.answerCashout(ctx, req)
		case <-e.stopCh:
			return
		}
	}

	if err := e.archiver.ArchiveRound(ctx, round.Snapshot(), e.guard.Bets()); err != nil {
		log.Printf("[ROUND %d] Archive failed: %v", seq, err)
	}

	// Cool-down. Settlement traffic still gets authoritative answers:
	// the round is CRASHED, so late cashouts are rejected, not dropped.
	cooldown := time.NewTimer(e.cfg.Cooldown)
	defer cooldown.Stop()
	for {
		select {
		case <-cooldown.C:
			return
		case req := <-e.betCh:
			e.answerBet(ctx, req)
		case req := <-e.cashoutCh:
			e.answerCashout(ctx, req)
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) answerBet(ctx context.Context, req BetRequest) {
	receipt, err := e.guard.PlaceBet(ctx, req.UserID, req.Amount, req.Currency, req.AutoCashout)
	if req.resp != nil {
		req.resp <- betResult{receipt: receipt, err: err}
	}
}

func (e *Engine) answerCashout(ctx context.Context, req CashoutRequest) {
	s, err := e.guard.Cashout(ctx, req.BetID, req.UserID)
	if req.resp != nil {
		req.resp <- cashoutResult{settlement: s, err: err}
	}
}
