package game

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// SeedChain derives every round's secret seed from a single long-lived
// master secret, so no per-round seed list has to be stored and no outside
// party can compute a future seed without the master secret.
type SeedChain struct {
	master []byte
	seq    atomic.Int64
}

func NewSeedChain(masterSecret string, startSeq int64) *SeedChain {
	sc := &SeedChain{master: []byte(masterSecret)}
	sc.seq.Store(startSeq)
	return sc
}

// NextSequence reserves and returns the next round sequence number.
func (sc *SeedChain) NextSequence() int64 {
	return sc.seq.Add(1)
}

// RoundSeed deterministically derives the secret seed for a round.
func (sc *SeedChain) RoundSeed(seq int64) string {
	h := hmac.New(sha256.New, sc.master)
	fmt.Fprintf(h, "round:%d", seq)
	return hex.EncodeToString(h.Sum(nil))
}

// Commitment is the public hash of a round seed, published before the
// betting window opens. hash(revealed seed) == commitment is the audit proof.
func Commitment(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// GenerateSecret creates a cryptographically secure random secret. Used for
// the master secret when none is configured, and for platform client seeds.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
