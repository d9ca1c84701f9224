package models

import "time"

// ✅ Match Statuses (active is the only non-terminal status)
const (
	MatchStatusActive       = "active"
	MatchStatusRevealed     = "revealed"
	MatchStatusEndedByUser  = "ended_by_user"
	MatchStatusEndedByTimer = "ended_by_timer"
)

// ✅ Notification Kinds (consumed by the push dispatcher)
const (
	NotificationNewMatch     = "new_match"
	NotificationNewMessage   = "new_message"
	NotificationRevealed     = "match_revealed"
	NotificationTimerWarning = "timer_warning"
	NotificationReEngagement = "re_engagement"
)

// AnonymousWindow is the length of the anonymous chat phase, measured from the
// match's stored creation timestamp. Clients recompute the remaining time from
// createdAt on every attach; a client-local countdown is never trusted.
const AnonymousWindow = 120 * time.Second

// TimerWarning is the remaining time at which the "time is running out"
// notification becomes due. It is a side-effect hook, not a state transition.
const TimerWarning = 30 * time.Second
