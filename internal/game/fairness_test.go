package game

import (
	"math"
	"testing"
)

func TestCrashPoint_Bounds(t *testing.T) {
	tests := []struct {
		name       string
		roundSeed  string
		clientSeed string
		seq        int64
		houseEdge  float64
	}{
		{name: "Basic", roundSeed: "round_seed_123", clientSeed: "client_seed_456", seq: 1, houseEdge: 0.04},
		{name: "Different sequence", roundSeed: "round_seed_123", clientSeed: "client_seed_456", seq: 2, houseEdge: 0.04},
		{name: "Low edge", roundSeed: "another_seed", clientSeed: "another_client", seq: 99, houseEdge: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CrashPoint(tt.roundSeed, tt.clientSeed, tt.seq, tt.houseEdge)

			if got < MinMultiplier {
				t.Errorf("CrashPoint() = %v, want >= %v", got, MinMultiplier)
			}
			if got > MaxMultiplier {
				t.Errorf("CrashPoint() = %v, want <= %v", got, MaxMultiplier)
			}
			if math.IsInf(got, 0) || math.IsNaN(got) {
				t.Errorf("CrashPoint() = %v, want finite", got)
			}
			if cents := got * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
				t.Errorf("CrashPoint() = %v, want at most 2 decimal places", got)
			}
		})
	}
}

func TestCrashPoint_Deterministic(t *testing.T) {
	// Scenario: seed "abc", client "xyz", sequence 1, edge 0.04 must always
	// reproduce the same multiplier.
	first := CrashPoint("abc", "xyz", 1, 0.04)
	for i := 0; i < 10; i++ {
		if got := CrashPoint("abc", "xyz", 1, 0.04); got != first {
			t.Fatalf("CrashPoint() is not deterministic: got %v, want %v", got, first)
		}
	}
}

func TestCrashPoint_DifferentInputs(t *testing.T) {
	r1 := CrashPoint("seed", "client", 1, 0.04)
	r2 := CrashPoint("seed", "client", 2, 0.04)
	r3 := CrashPoint("seed", "client", 3, 0.04)

	if r1 == r2 && r2 == r3 {
		t.Error("CrashPoint() produces same result for different sequences (unlikely)")
	}
}

func TestCrashPointDragon_IndependentOutcome(t *testing.T) {
	base := CrashPoint("dual_seed", "client", 7, 0.04)
	dragon := CrashPointDragon("dual_seed", "client", 7, 0.04)

	if dragon < MinMultiplier || dragon > MaxMultiplier {
		t.Errorf("CrashPointDragon() = %v, out of bounds", dragon)
	}
	// Same derivation would be a fairness bug; check over several rounds
	// since a single collision is legitimate.
	same := 0
	for seq := int64(0); seq < 50; seq++ {
		if CrashPoint("dual_seed", "client", seq, 0.04) == CrashPointDragon("dual_seed", "client", seq, 0.04) {
			same++
		}
	}
	if same > 25 {
		t.Errorf("dragon outcome tracks base outcome in %d/50 rounds, expected independence (base=%v dragon=%v)", same, base, dragon)
	}
}

func TestCrashPoint_InstantCrashRate(t *testing.T) {
	// With a 4% house edge roughly 4% (±3%) of rounds crash at 1.00.
	const total = 20000
	instant := 0
	for i := int64(0); i < total; i++ {
		if CrashPoint("edge_rate_seed", "client", i, 0.04) == MinMultiplier {
			instant++
		}
	}

	rate := float64(instant) / float64(total)
	if rate < 0.01 || rate > 0.07 {
		t.Errorf("instant crash rate = %.4f, want roughly 0.04 (±0.03)", rate)
	}
}

func TestCrashPoint_HigherEdgeLowersOutcomes(t *testing.T) {
	// A higher house edge can only shrink each draw's multiplier.
	for i := int64(0); i < 200; i++ {
		low := CrashPoint("edge_cmp_seed", "client", i, 0.01)
		high := CrashPoint("edge_cmp_seed", "client", i, 0.10)
		if high > low {
			t.Fatalf("seq %d: edge 0.10 gave %v > edge 0.01 gave %v", i, high, low)
		}
	}
}

func TestCommitment(t *testing.T) {
	seed := "test_seed_12345"

	hash1 := Commitment(seed)
	hash2 := Commitment(seed)

	if hash1 != hash2 {
		t.Error("Commitment() is not deterministic")
	}
	if len(hash1) != 64 { // SHA256 = 64 hex characters
		t.Errorf("Commitment() length = %v, want 64", len(hash1))
	}
}

func TestVerifyRound(t *testing.T) {
	roundSeed := "verification_round_seed"
	clientSeed := "verification_client_seed"
	var seq int64 = 100
	edge := 0.04

	commitment := Commitment(roundSeed)
	actual := CrashPoint(roundSeed, clientSeed, seq, edge)

	tests := []struct {
		name         string
		revealedSeed string
		commitment   string
		claimed      float64
		verified     bool
		commitmentOK bool
	}{
		{
			name:         "Valid round",
			revealedSeed: roundSeed,
			commitment:   commitment,
			claimed:      actual,
			verified:     true,
			commitmentOK: true,
		},
		{
			name:         "Wrong multiplier",
			revealedSeed: roundSeed,
			commitment:   commitment,
			claimed:      actual + 1.0,
			verified:     false,
			commitmentOK: true,
		},
		{
			// A commitment mismatch means the published hash was not
			// honored: an integrity breach, reported distinctly.
			name:         "Commitment mismatch",
			revealedSeed: "some_other_seed",
			commitment:   commitment,
			claimed:      actual,
			verified:     false,
			commitmentOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyRound(tt.revealedSeed, tt.commitment, clientSeed, seq, tt.claimed, edge)
			if got.Verified != tt.verified {
				t.Errorf("Verified = %v, want %v", got.Verified, tt.verified)
			}
			if got.CommitmentOK != tt.commitmentOK {
				t.Errorf("CommitmentOK = %v, want %v", got.CommitmentOK, tt.commitmentOK)
			}
		})
	}
}

func BenchmarkCrashPoint(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CrashPoint("benchmark_round_seed", "benchmark_client_seed", int64(i), 0.04)
	}
}
