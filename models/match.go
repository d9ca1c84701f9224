package models

import "time"

// Match represents one anonymous pairing between exactly two users.
// Every lifecycle transition (create, vote, decline, timeout) is written as a
// conditional update guarded by the current status, so concurrent transitions
// can only have one winner.
type Match struct {
	MatchID        string `dynamodbav:"matchId" json:"matchId"`               // ✅ Partition Key (UUID)
	User1ID        string `dynamodbav:"user1Id" json:"user1Id"`               // Requesting user at pairing time
	User2ID        string `dynamodbav:"user2Id" json:"user2Id"`               // Claimed candidate
	Status         string `dynamodbav:"status" json:"status"`                 // active, revealed, ended_by_user, ended_by_timer
	User1Consent   bool   `dynamodbav:"user1Consent" json:"user1Consent"`     // Set once, never retracted
	User2Consent   bool   `dynamodbav:"user2Consent" json:"user2Consent"`     // Set once, never retracted
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`           // RFC3339 UTC, authoritative timer origin
	LastActivityAt string `dynamodbav:"lastActivityAt" json:"lastActivityAt"` // Updated on every transition and message
	EndedBy        string `dynamodbav:"endedBy,omitempty" json:"endedBy,omitempty"`               // Decliner's userId when ended_by_user
	RevealedAt     string `dynamodbav:"revealedAt,omitempty" json:"revealedAt,omitempty"`         // Set by the reveal transition winner
	TimerWarningAt string `dynamodbav:"timerWarningAt,omitempty" json:"timerWarningAt,omitempty"` // Set-once marker for the 30s warning
}

// MatchesTable is the DynamoDB table name for matches
const MatchesTable = "Matches"

// GSI Index Names
const User1Index = "user1Id-index"              // PK: user1Id
const User2Index = "user2Id-index"              // PK: user2Id
const StatusCreatedAtIndex = "status-createdAt-index" // PK: status, SK: createdAt (drives the expiry sweep)

// IsTerminal reports whether the match has reached a sink status.
func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusRevealed ||
		m.Status == MatchStatusEndedByUser ||
		m.Status == MatchStatusEndedByTimer
}

// ParticipantSlot returns 1 or 2 for the given user, or 0 if the user is not
// a participant of this match.
func (m *Match) ParticipantSlot(userID string) int {
	switch userID {
	case m.User1ID:
		return 1
	case m.User2ID:
		return 2
	}
	return 0
}

// ConsentOf returns the recorded consent vote for the given slot.
func (m *Match) ConsentOf(slot int) bool {
	if slot == 1 {
		return m.User1Consent
	}
	return m.User2Consent
}

// OtherUser returns the counterpart's userId.
func (m *Match) OtherUser(userID string) string {
	if userID == m.User1ID {
		return m.User2ID
	}
	return m.User1ID
}

// CreatedAtTime parses the stored creation timestamp.
func (m *Match) CreatedAtTime() (time.Time, error) {
	return time.Parse(time.RFC3339, m.CreatedAt)
}

// MatchView is the client-facing projection of a Match for one participant:
// the caller's own consent state, the authoritative remaining window, and the
// counterpart's profile only once the match is revealed.
type MatchView struct {
	MatchID          string   `json:"matchId"`
	Status           string   `json:"status"`
	CreatedAt        string   `json:"createdAt"`
	RemainingSeconds int64    `json:"remainingSeconds"`
	YourConsent      bool     `json:"yourConsent"`
	OtherConsent     bool     `json:"otherConsent"`
	OtherProfile     *Profile `json:"otherProfile,omitempty"` // Only populated when status is revealed
}

// MatchSummary is one row of a user's match list, enriched with the latest
// message and unread state for the conversation screen.
type MatchSummary struct {
	MatchID      string   `json:"matchId"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"createdAt"`
	LastMessage  string   `json:"lastMessage,omitempty"`
	IsUnread     bool     `json:"isUnread,omitempty"`
	OtherProfile *Profile `json:"otherProfile,omitempty"` // Only populated when status is revealed
}
