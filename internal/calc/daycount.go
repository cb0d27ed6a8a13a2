// Package calc implements the loan financial-calculation core: day counting,
// interest proration, payment-intent resolution and multi-loan aggregation.
// Every function is pure; callers fetch loan snapshots and persist results.
package calc

import "time"

const millisPerDay = 86_400_000

// ElapsedDays returns the whole calendar days between start and now.
// A partial day counts as a full day: interest accrues from the moment of
// disbursement, so the count rounds up. If now precedes start the result is
// clamped to 0 rather than going negative.
func ElapsedDays(start, now time.Time) int {
	ms := now.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	days := ms / millisPerDay
	if ms%millisPerDay != 0 {
		days++
	}
	return int(days)
}
