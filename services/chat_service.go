package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tornado_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// ChatService stores and serves the messages of a match. Message creation is
// gated on the sender being a participant and the match being conversational:
// active inside the anonymous window, or revealed.
type ChatService struct {
	Dynamo   *DynamoService
	Sessions *SessionService
	Feed     ChangeFeed
	Notifier *NotificationService
	Now      func() time.Time // test hook, defaults to time.Now
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SendMessage validates the sender and match state, stores the message, and
// fans it out to the change feed and the counterpart's push address.
func (s *ChatService) SendMessage(ctx context.Context, matchID, senderID, content string) (*models.Message, error) {
	match, err := fetchMatch(ctx, s.Dynamo, matchID)
	if err != nil {
		return nil, err
	}

	if match.ParticipantSlot(senderID) == 0 {
		log.Printf("🚨 Suspicious message: user %s is not a participant of match %s", senderID, matchID)
		return nil, ErrUnauthorized
	}

	switch match.Status {
	case models.MatchStatusRevealed:
		// Revealed conversations have no deadline.
	case models.MatchStatusActive:
		if Remaining(match.CreatedAt, s.now()) == 0 {
			// The window elapsed under this message; declare the timeout
			// rather than letting the send slip through.
			if _, _, err := s.Sessions.ExpireIfDue(ctx, matchID); err != nil {
				return nil, err
			}
			return nil, ErrExpired
		}
	default:
		return nil, terminalError(match)
	}

	message := &models.Message{
		MatchID:   matchID,
		CreatedAt: s.now().UTC().Format(models.MessageTimeFormat),
		MessageID: uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
	}

	// The (matchId, createdAt) key plus this guard gives duplicate detection
	// for retried sends landing on the same instant.
	if err := s.Dynamo.PutItemWithCondition(ctx, models.MessagesTable, message,
		"attribute_not_exists(matchId)", nil); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return nil, fmt.Errorf("%w: duplicate message timestamp for match %s", ErrStoreUnavailable, matchID)
		}
		return nil, err
	}

	if _, err := s.Dynamo.UpdateItem(ctx, models.MatchesTable,
		"SET lastActivityAt = :now", matchKey(matchID),
		map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: message.CreatedAt},
		}, nil,
	); err != nil {
		log.Printf("⚠️ Failed to bump lastActivityAt for match %s: %v", matchID, err)
	}

	if s.Feed != nil {
		s.Feed.MessageCreated(*message)
	}
	if s.Notifier != nil {
		recipient := match.OtherUser(senderID)
		err := s.Notifier.Send(ctx, []string{recipient},
			models.NotificationNewMessage,
			"New Message", content,
			map[string]interface{}{"matchId": matchID})
		if err != nil {
			log.Printf("⚠️ Failed to send new-message notification for match %s: %v", matchID, err)
		}
	}
	return message, nil
}

// GetMessages fetches the latest messages for a match sorted newest-first,
// then reverses the page so the latest message lands at the bottom in the UI.
func (s *ChatService) GetMessages(ctx context.Context, matchID string, limit int) ([]models.Message, error) {
	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable,
		"#matchId = :matchId",
		map[string]types.AttributeValue{
			":matchId": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]string{"#matchId": "matchId"},
		int32(limit), true,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkMessagesAsRead stamps readAt on the counterpart's unread messages.
// Messages are immutable except for this timestamp, and the guard makes the
// stamp set-once so a re-read never rewrites history.
func (s *ChatService) MarkMessagesAsRead(ctx context.Context, matchID, userID string) (int, error) {
	match, err := fetchMatch(ctx, s.Dynamo, matchID)
	if err != nil {
		return 0, err
	}
	if match.ParticipantSlot(userID) == 0 {
		return 0, ErrUnauthorized
	}

	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable,
		"#matchId = :matchId",
		map[string]types.AttributeValue{
			":matchId": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]string{"#matchId": "matchId"},
		100, false,
	)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	marked := 0
	for _, item := range items {
		var message models.Message
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			continue
		}
		if message.SenderID == userID || message.ReadAt != "" {
			continue
		}

		key := map[string]types.AttributeValue{
			"matchId":   &types.AttributeValueMemberS{Value: message.MatchID},
			"createdAt": &types.AttributeValueMemberS{Value: message.CreatedAt},
		}
		_, err := s.Dynamo.UpdateItemWithCondition(ctx, models.MessagesTable, key,
			"SET readAt = :now",
			"attribute_not_exists(readAt)",
			map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberS{Value: now},
			}, nil,
		)
		if errors.Is(err, ErrConditionFailed) {
			continue
		}
		if err != nil {
			log.Printf("⚠️ Failed to mark message %s as read: %v", message.MessageID, err)
			continue
		}
		marked++
	}
	return marked, nil
}
