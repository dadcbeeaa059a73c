package game

import (
	"math"
	"sync"
	"time"
)

type RoundStatus string

const (
	StatusWaiting RoundStatus = "WAITING"
	StatusRunning RoundStatus = "RUNNING"
	StatusCrashed RoundStatus = "CRASHED"
)

// GrowthRate is the exponent applied per elapsed millisecond while a round
// is RUNNING: multiplier(t) = exp(GrowthRate*t). Tuned so the curve passes
// ~2.00x near 11.5s and ~10x near 38s.
const GrowthRate = 0.00006

// Round owns one round's lifecycle and its authoritative clock. The engine
// loop is the only writer (Begin, Tick). Bet validation, cashout, broadcast
// and state queries all read through it, never recomputing the multiplier
// from client-supplied data.
type Round struct {
	mu sync.RWMutex

	Sequence   int64
	serverSeed string
	Commitment string
	ClientSeed string
	HouseEdge  float64
	crashPoint float64

	status    RoundStatus
	createdAt time.Time
	opensFor  time.Duration
	startedAt time.Time
	crashedAt time.Time

	growthRate float64
	now        func() time.Time
}

// NewRound creates a WAITING round. The crash point is fixed here, at
// creation, and never recomputed.
func NewRound(seq int64, serverSeed, clientSeed string, houseEdge float64, bettingWindow time.Duration) *Round {
	r := &Round{
		Sequence:   seq,
		serverSeed: serverSeed,
		Commitment: Commitment(serverSeed),
		ClientSeed: clientSeed,
		HouseEdge:  houseEdge,
		crashPoint: CrashPoint(serverSeed, clientSeed, seq, houseEdge),
		status:     StatusWaiting,
		opensFor:   bettingWindow,
		growthRate: GrowthRate,
		now:        time.Now,
	}
	r.createdAt = r.now()
	return r
}

// Begin closes the betting window and starts the live phase.
func (r *Round) Begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusWaiting {
		return
	}
	r.status = StatusRunning
	r.startedAt = r.now()
}

// Tick advances the round clock. Called only from the engine loop; no two
// ticks execute concurrently for the same round. Returns the live
// multiplier and whether this tick crashed the round.
func (r *Round) Tick() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRunning {
		return r.liveLocked(), r.status == StatusCrashed
	}
	mult := r.liveLocked()
	if mult >= r.crashPoint {
		r.status = StatusCrashed
		r.crashedAt = r.now()
		return r.crashPoint, true
	}
	return mult, false
}

// LiveMultiplier is the authoritative multiplier right now: 1.00 while
// WAITING, the growth curve capped at the crash point while RUNNING, the
// crash point once CRASHED.
func (r *Round) LiveMultiplier() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.liveLocked()
}

func (r *Round) liveLocked() float64 {
	switch r.status {
	case StatusWaiting:
		return MinMultiplier
	case StatusCrashed:
		return r.crashPoint
	}
	elapsed := float64(r.now().Sub(r.startedAt).Milliseconds())
	mult := math.Floor(math.Exp(r.growthRate*elapsed)*100) / 100
	if mult > r.crashPoint {
		return r.crashPoint
	}
	return mult
}

func (r *Round) Status() RoundStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// CrashPointValue is internal truth; it must never reach a client before
// the round crashes.
func (r *Round) CrashPointValue() float64 {
	return r.crashPoint
}

// RevealSeed returns the server seed once the round has crashed, empty
// before that.
func (r *Round) RevealSeed() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.status != StatusCrashed {
		return ""
	}
	return r.serverSeed
}

// RoundSnapshot is the read-only view handed to broadcasts and state
// queries. Seed and crash point stay hidden until the crash reveal.
type RoundSnapshot struct {
	Sequence      int64       `json:"sequence"`
	Commitment    string      `json:"commitment"`
	ClientSeed    string      `json:"client_seed"`
	Status        RoundStatus `json:"status"`
	Multiplier    float64     `json:"multiplier"`
	TimeLeftMs    int64       `json:"time_left_ms"`
	HouseEdge     float64     `json:"house_edge"`
	StartedAt     time.Time   `json:"started_at,omitempty"`
	CrashedAt     time.Time   `json:"crashed_at,omitempty"`
	CrashPoint    float64     `json:"crash_point,omitempty"`
	RevealedSeed  string      `json:"revealed_seed,omitempty"`
}

func (r *Round) Snapshot() RoundSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := RoundSnapshot{
		Sequence:   r.Sequence,
		Commitment: r.Commitment,
		ClientSeed: r.ClientSeed,
		Status:     r.status,
		Multiplier: r.liveLocked(),
		HouseEdge:  r.HouseEdge,
		StartedAt:  r.startedAt,
	}
	if r.status == StatusWaiting {
		if left := r.opensFor - r.now().Sub(r.createdAt); left > 0 {
			snap.TimeLeftMs = left.Milliseconds()
		}
	}
	if r.status == StatusCrashed {
		snap.CrashedAt = r.crashedAt
		snap.CrashPoint = r.crashPoint
		snap.RevealedSeed = r.serverSeed
	}
	return snap
}
