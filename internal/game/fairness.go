package game

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"math"
)

const (
	MinMultiplier = 1.00
	MaxMultiplier = 5000.00

	// DragonSuffix derives a second, independent outcome from the same
	// round seed for the dual-outcome game mode.
	DragonSuffix = ":dragon2"
)

// CrashPoint maps a round's seed triple to its crash multiplier.
//
// The first 52 bits of HMAC-SHA256(roundSeed, clientSeed+":"+seq) become a
// uniform draw r in [0,1); the multiplier is (1-houseEdge)/(1-r) floored to
// two decimals. Draws below the house edge land under 1.00 and clamp to an
// instant crash. Pure and deterministic: identical inputs always reproduce
// the identical multiplier, which is what makes the round verifiable.
func CrashPoint(roundSeed, clientSeed string, seq int64, houseEdge float64) float64 {
	return crashPoint(roundSeed, fmt.Sprintf("%s:%d", clientSeed, seq), houseEdge)
}

// CrashPointDragon is the dual-outcome variant: same derivation with the
// hash input suffixed, yielding an outcome independent of CrashPoint.
func CrashPointDragon(roundSeed, clientSeed string, seq int64, houseEdge float64) float64 {
	return crashPoint(roundSeed, fmt.Sprintf("%s:%d%s", clientSeed, seq, DragonSuffix), houseEdge)
}

func crashPoint(roundSeed, input string, houseEdge float64) float64 {
	mac := hmac.New(sha256.New, []byte(roundSeed))
	mac.Write([]byte(input))
	sum := mac.Sum(nil)

	// First 52 bits of the digest as an integer; 52 bits keeps the draw
	// exactly representable in a float64 mantissa.
	var h uint64
	for _, b := range sum[:7] {
		h = h<<8 | uint64(b)
	}
	h >>= 4 // 56 bits read, keep the top 52

	r := float64(h) / float64(uint64(1)<<52)

	raw := (1 - houseEdge) / (1 - r)
	mult := math.Floor(raw*100) / 100

	if mult < MinMultiplier {
		return MinMultiplier
	}
	if mult > MaxMultiplier {
		return MaxMultiplier
	}
	return mult
}

// VerifyResult reports the outcome of a post-round fairness audit.
// CommitmentOK false means the published hash does not match the revealed
// seed: an integrity breach, not an ordinary validation failure.
type VerifyResult struct {
	Verified     bool    `json:"verified"`
	CommitmentOK bool    `json:"commitment_ok"`
	CrashPoint   float64 `json:"crash_point"`
}

// VerifyRound recomputes both the seed commitment and the crash multiplier
// for a revealed round. Both must match for Verified.
func VerifyRound(revealedSeed, publicHash, clientSeed string, seq int64, claimed, houseEdge float64) VerifyResult {
	res := VerifyResult{
		CommitmentOK: Commitment(revealedSeed) == publicHash,
		CrashPoint:   CrashPoint(revealedSeed, clientSeed, seq, houseEdge),
	}
	res.Verified = res.CommitmentOK && res.CrashPoint == claimed
	return res
}
