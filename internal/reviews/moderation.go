package reviews

import "github.com/richxcame/safari-bookings/internal/fraud"

// Automatic moderation bands
const (
	BlockAboveScore = 80
	FlagAboveScore  = 60
)

// DecideStatus maps a fraud verdict to the initial moderation status.
// A fail-safe verdict always lands in the manual queue.
func DecideStatus(verdict *fraud.FraudVerdict) ModerationStatus {
	switch {
	case verdict == nil:
		return StatusPending
	case verdict.RiskScore > BlockAboveScore:
		return StatusBlocked
	case verdict.RiskScore > FlagAboveScore, verdict.Failed():
		return StatusFlagged
	default:
		return StatusApproved
	}
}

var transitions = map[ModerationStatus][]ModerationStatus{
	StatusPending:  {StatusApproved, StatusFlagged, StatusBlocked},
	StatusFlagged:  {StatusApproved, StatusBlocked},
	StatusApproved: {StatusFlagged},
	StatusBlocked:  {StatusApproved},
}

// CanTransition reports whether a moderator may move a review from one status to another
func CanTransition(from, to ModerationStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
