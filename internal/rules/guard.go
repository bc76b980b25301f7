package rules

import "time"

const (
	// StalenessWindow rejects rebroadcasts of historical events.
	StalenessWindow = 5 * time.Minute
	// MaxClockSkew tolerates remote clocks running slightly ahead.
	MaxClockSkew = time.Minute
)

// fresh is the anti-replay guard applied by every rule. created_at is set
// by the remote author and must be range-checked before use.
func fresh(createdAt int64, now time.Time) bool {
	t := time.Unix(createdAt, 0)
	if t.Before(now.Add(-StalenessWindow)) {
		return false
	}
	if t.After(now.Add(MaxClockSkew)) {
		return false
	}
	return true
}
