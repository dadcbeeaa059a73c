package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"crashcore/internal/game"
)

// Store persists crashed rounds and their bets for audit. One transaction
// per round, written after settlement completes.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RoundRecord is what the history endpoint serves: everything an external
// auditor needs to re-run the fairness verification.
type RoundRecord struct {
	Sequence     int64     `json:"sequence"`
	ClientSeed   string    `json:"client_seed"`
	Commitment   string    `json:"commitment"`
	RevealedSeed string    `json:"revealed_seed"`
	CrashPoint   float64   `json:"crash_point"`
	HouseEdge    float64   `json:"house_edge"`
	StartedAt    time.Time `json:"started_at"`
	CrashedAt    time.Time `json:"crashed_at"`
}

func (s *Store) ArchiveRound(ctx context.Context, round game.RoundSnapshot, bets []game.Bet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive round %d: %w", round.Sequence, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO crash_rounds
			(sequence, client_seed, commitment, revealed_seed, crash_point, house_edge, started_at, crashed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sequence) DO NOTHING`,
		round.Sequence, round.ClientSeed, round.Commitment, round.RevealedSeed,
		round.CrashPoint, round.HouseEdge, round.StartedAt, round.CrashedAt)
	if err != nil {
		return fmt.Errorf("archive round %d: %w", round.Sequence, err)
	}

	for _, b := range bets {
		_, err = tx.Exec(ctx, `
			INSERT INTO crash_bets
				(id, round_sequence, user_id, currency, amount, auto_cashout, status,
				 settled_multiplier, payout, profit, placed_at, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			b.ID, b.RoundSeq, b.UserID, b.Currency, b.Amount, nullFloat(b.AutoCashout),
			string(b.Status), nullFloat(b.SettledMultiplier), b.Payout, b.Profit,
			b.PlacedAt, nullTime(b.SettledAt))
		if err != nil {
			return fmt.Errorf("archive bet %s: %w", b.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// RecentRounds returns the latest crashed rounds, newest first.
func (s *Store) RecentRounds(ctx context.Context, limit int) ([]RoundRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT sequence, client_seed, commitment, revealed_seed, crash_point, house_edge, started_at, crashed_at
		FROM crash_rounds
		ORDER BY sequence DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		if err := rows.Scan(&r.Sequence, &r.ClientSeed, &r.Commitment, &r.RevealedSeed,
			&r.CrashPoint, &r.HouseEdge, &r.StartedAt, &r.CrashedAt); err != nil {
			return nil, fmt.Errorf("recent rounds: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UserBets returns a user's bets, newest first.
func (s *Store) UserBets(ctx context.Context, userID string, limit int) ([]game.Bet, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, round_sequence, user_id, currency, amount, COALESCE(auto_cashout, 0), status,
		       COALESCE(settled_multiplier, 0), payout, profit, placed_at, COALESCE(settled_at, 'epoch'::timestamptz)
		FROM crash_bets
		WHERE user_id = $1
		ORDER BY placed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("user bets: %w", err)
	}
	defer rows.Close()

	var out []game.Bet
	for rows.Next() {
		var b game.Bet
		var status string
		if err := rows.Scan(&b.ID, &b.RoundSeq, &b.UserID, &b.Currency, &b.Amount, &b.AutoCashout,
			&status, &b.SettledMultiplier, &b.Payout, &b.Profit, &b.PlacedAt, &b.SettledAt); err != nil {
			return nil, fmt.Errorf("user bets: %w", err)
		}
		b.Status = game.BetStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
