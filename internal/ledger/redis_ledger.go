package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const balanceKeyPrefix = "crash:balance:"

// debitScript performs the balance check and the deduction in one script
// execution, which Redis serializes per server. That is the row-level lock
// the settlement path requires. Returns -1 when the balance is insufficient.
var debitScript = redis.NewScript(`
local bal = tonumber(redis.call('GET', KEYS[1]) or '0')
local amt = tonumber(ARGV[1])
if bal < amt then
  return '-1'
end
return redis.call('INCRBYFLOAT', KEYS[1], '-' .. ARGV[1])
`)

// RedisLedger keeps wallet balances in Redis.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func balanceKey(walletID string) string {
	return balanceKeyPrefix + walletID
}

func (l *RedisLedger) DebitIfSufficient(ctx context.Context, walletID string, amount float64) (float64, error) {
	res, err := debitScript.Run(ctx, l.client, []string{balanceKey(walletID)}, amount).Text()
	if err != nil {
		return 0, fmt.Errorf("ledger debit: %w", err)
	}
	var bal float64
	if _, err := fmt.Sscanf(res, "%f", &bal); err != nil {
		return 0, fmt.Errorf("ledger debit: bad reply %q: %w", res, err)
	}
	if bal < 0 {
		return 0, ErrInsufficientFunds
	}
	return bal, nil
}

func (l *RedisLedger) Credit(ctx context.Context, walletID string, amount float64) (float64, error) {
	bal, err := l.client.IncrByFloat(ctx, balanceKey(walletID), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("ledger credit: %w", err)
	}
	return bal, nil
}

func (l *RedisLedger) Balance(ctx context.Context, walletID string) (float64, error) {
	bal, err := l.client.Get(ctx, balanceKey(walletID)).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger balance: %w", err)
	}
	return bal, nil
}

// SetBalance overwrites a wallet balance. Admin/testing surface only.
func (l *RedisLedger) SetBalance(ctx context.Context, walletID string, amount float64) error {
	return l.client.Set(ctx, balanceKey(walletID), amount, 0).Err()
}
