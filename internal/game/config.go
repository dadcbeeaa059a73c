package game

import "time"

// Config collects the engine tunables. Constructed once at startup and
// injected; nothing in this package reads the environment directly.
type Config struct {
	HouseEdge     float64
	BettingWindow time.Duration
	Cooldown      time.Duration
	TickInterval  time.Duration
	MinBet        float64
	MaxBet        float64
	GrowthRate    float64

	// MasterSecret seeds the chain every round seed derives from.
	MasterSecret string
	// ClientSeed, when set, is the fixed platform-supplied public seed for
	// every round. Empty means a fresh random seed per round.
	ClientSeed string
	// StartSequence lets a restarted engine continue the round numbering.
	StartSequence int64
}

func DefaultConfig() Config {
	return Config{
		HouseEdge:     0.04,
		BettingWindow: 5 * time.Second,
		Cooldown:      3 * time.Second,
		TickInterval:  100 * time.Millisecond,
		MinBet:        1.0,
		MaxBet:        10000.0,
		GrowthRate:    GrowthRate,
	}
}
