package server

import (
	"context"
	"log"

	"crashcore/internal/cache"
	"crashcore/internal/game"
)

// mirroredArchiver pushes each crashed round into the Redis history mirror
// before handing it to the durable archive. The mirror is best-effort; only
// the durable write's error propagates back to the engine.
type mirroredArchiver struct {
	history *cache.RoundHistory
	next    game.Archiver
}

func (a *mirroredArchiver) ArchiveRound(ctx context.Context, round game.RoundSnapshot, bets []game.Bet) error {
	if err := a.history.Push(ctx, round); err != nil {
		log.Printf("[ARCHIVE] History mirror failed for round %d: %v", round.Sequence, err)
	}
	return a.next.ArchiveRound(ctx, round, bets)
}
