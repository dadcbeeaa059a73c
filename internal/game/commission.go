package game

import "log"

// CommissionNotifier is the rakeback/affiliate collaborator. It is told
// about every settled bet exactly once; the engine never waits on it or
// consults its result.
type CommissionNotifier interface {
	NotifySettlement(userID string, wager, payout float64, gameType string)
}

type NopCommission struct{}

func (NopCommission) NotifySettlement(string, float64, float64, string) {}

// LogCommission records settlements to the process log. Stands in until a
// real commission service is attached.
type LogCommission struct{}

func (LogCommission) NotifySettlement(userID string, wager, payout float64, gameType string) {
	log.Printf("[COMMISSION] user=%s wager=%.2f payout=%.2f game=%s", userID, wager, payout, gameType)
}
