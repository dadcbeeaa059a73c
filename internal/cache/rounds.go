package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	historyKey  = "crash:history"
	historyKeep = 50
)

// RoundHistory mirrors the most recent crashed rounds into a capped Redis
// list, so state and history queries stay off Postgres on the hot path and
// keep working when the archive database is down.
type RoundHistory struct {
	client *redis.Client
}

func NewRoundHistory(client *redis.Client) *RoundHistory {
	return &RoundHistory{client: client}
}

// Push prepends a round record and trims the list to the retention cap.
func (h *RoundHistory) Push(ctx context.Context, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("round history marshal: %w", err)
	}

	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, historyKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("round history push: %w", err)
	}
	return nil
}

// Recent returns up to limit mirrored round records, newest first.
func (h *RoundHistory) Recent(ctx context.Context, limit int) ([]json.RawMessage, error) {
	if limit <= 0 || limit > historyKeep {
		limit = historyKeep
	}
	raw, err := h.client.LRange(ctx, historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("round history read: %w", err)
	}
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out, nil
}
