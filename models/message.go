package models

// MessageTimeFormat is the sort-key timestamp layout. Fractional seconds are
// fixed-width (RFC3339Nano drops trailing zeros, which would break the
// lexicographic ordering DynamoDB sorts the key by).
const MessageTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Message belongs to exactly one Match. Messages are immutable once created
// except for the read timestamp.
type Message struct {
	MatchID   string `dynamodbav:"matchId" json:"matchId"`     // ✅ Partition Key
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"` // ✅ Sort Key (MessageTimeFormat)
	MessageID string `dynamodbav:"messageId" json:"messageId"` // Unique message ID (UUID-based)
	SenderID  string `dynamodbav:"senderId" json:"senderId"`   // Must be a participant of the match
	Content   string `dynamodbav:"content" json:"content"`
	ReadAt    string `dynamodbav:"readAt,omitempty" json:"readAt,omitempty"` // Stamped once by the recipient
}

// MessagesTable is the DynamoDB table name for chat messages
const MessagesTable = "Messages"
