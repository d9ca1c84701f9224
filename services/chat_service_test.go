package services

import (
	"context"
	"testing"
	"time"

	"tornado_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatService(fd *fakeDynamo, feed *fakeFeed) *ChatService {
	dynamo := &DynamoService{Client: fd}
	return &ChatService{
		Dynamo:   dynamo,
		Sessions: &SessionService{Dynamo: dynamo, Now: fixedNow(testInstant)},
		Feed:     feed,
		Now:      fixedNow(testInstant),
	}
}

func TestSendMessageOnActiveMatch(t *testing.T) {
	fd := &fakeDynamo{}
	feed := &fakeFeed{}
	match := testMatch(testInstant, 30*time.Second)

	fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
	}

	cs := newChatService(fd, feed)
	message, err := cs.SendMessage(context.Background(), match.MatchID, "user-a", "hey there")

	require.NoError(t, err)
	assert.Equal(t, match.MatchID, message.MatchID)
	assert.Equal(t, "user-a", message.SenderID)
	assert.Equal(t, "hey there", message.Content)
	assert.NotEmpty(t, message.MessageID)
	assert.Empty(t, message.ReadAt)

	require.Len(t, fd.putCalls, 1)
	assert.Equal(t, "attribute_not_exists(matchId)", aws.ToString(fd.putCalls[0].ConditionExpression))
	require.Len(t, feed.messages, 1)
	assert.Equal(t, message.MessageID, feed.messages[0].MessageID)

	// The match row records the new activity.
	require.Len(t, fd.updateCalls, 1)
	assert.Contains(t, aws.ToString(fd.updateCalls[0].UpdateExpression), "lastActivityAt")
}

func TestSendMessageOnRevealedMatchHasNoDeadline(t *testing.T) {
	fd := &fakeDynamo{}
	match := testMatch(testInstant, time.Hour)
	match.Status = models.MatchStatusRevealed

	fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
	}

	cs := newChatService(fd, &fakeFeed{})
	_, err := cs.SendMessage(context.Background(), match.MatchID, "user-b", "still here")
	assert.NoError(t, err)
}

func TestSendMessageAfterWindowDeclaresExpiry(t *testing.T) {
	fd := &fakeDynamo{}
	match := testMatch(testInstant, 121*time.Second)

	fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
	}
	fd.updateItem = func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		if aws.ToString(in.TableName) == models.MatchesTable {
			ended := match
			ended.Status = models.MatchStatusEndedByTimer
			return &dynamodb.UpdateItemOutput{Attributes: mustItem(t, ended)}, nil
		}
		return &dynamodb.UpdateItemOutput{}, nil
	}

	cs := newChatService(fd, &fakeFeed{})
	_, err := cs.SendMessage(context.Background(), match.MatchID, "user-a", "too late")

	assert.ErrorIs(t, err, ErrExpired)
	assert.Empty(t, fd.putCalls, "the late message is never stored")
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	fd := &fakeDynamo{}
	match := testMatch(testInstant, 30*time.Second)
	fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
	}

	cs := newChatService(fd, &fakeFeed{})
	_, err := cs.SendMessage(context.Background(), match.MatchID, "user-z", "let me in")

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, fd.putCalls)
}

func TestSendMessageOnSettledMatch(t *testing.T) {
	tests := []struct {
		status  string
		wantErr error
	}{
		{models.MatchStatusEndedByUser, ErrAlreadyTerminal},
		{models.MatchStatusEndedByTimer, ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			fd := &fakeDynamo{}
			match := testMatch(testInstant, 30*time.Second)
			match.Status = tt.status
			fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
			}

			cs := newChatService(fd, &fakeFeed{})
			_, err := cs.SendMessage(context.Background(), match.MatchID, "user-a", "hello?")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMessageTimestampsSortLexicographically(t *testing.T) {
	fd := &fakeDynamo{}
	match := testMatch(testInstant, 10*time.Second)
	fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
	}
	cs := newChatService(fd, &fakeFeed{})

	// A send landing exactly on a second boundary must not sort after one
	// landing mid-second; the sort key's fractional part is fixed-width.
	cs.Now = fixedNow(testInstant)
	onBoundary, err := cs.SendMessage(context.Background(), match.MatchID, "user-a", "first")
	require.NoError(t, err)

	cs.Now = fixedNow(testInstant.Add(500 * time.Millisecond))
	midSecond, err := cs.SendMessage(context.Background(), match.MatchID, "user-b", "second")
	require.NoError(t, err)

	assert.Equal(t, "2026-02-14T12:00:00.000000000Z", onBoundary.CreatedAt)
	assert.Len(t, midSecond.CreatedAt, len(onBoundary.CreatedAt))
	assert.Less(t, onBoundary.CreatedAt, midSecond.CreatedAt,
		"string order must match chronological order")
}

func TestGetMessagesReturnsOldestFirst(t *testing.T) {
	fd := &fakeDynamo{}
	newest := models.Message{MatchID: "match-1", MessageID: "m3", CreatedAt: "2026-02-14T12:00:03Z"}
	middle := models.Message{MatchID: "match-1", MessageID: "m2", CreatedAt: "2026-02-14T12:00:02Z"}
	oldest := models.Message{MatchID: "match-1", MessageID: "m1", CreatedAt: "2026-02-14T12:00:01Z"}

	fd.query = func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		require.NotNil(t, in.ScanIndexForward)
		assert.False(t, *in.ScanIndexForward, "the page is fetched newest-first")
		return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
			mustItem(t, newest), mustItem(t, middle), mustItem(t, oldest),
		}}, nil
	}

	cs := newChatService(fd, &fakeFeed{})
	messages, err := cs.GetMessages(context.Background(), "match-1", 50)

	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "m1", messages[0].MessageID)
	assert.Equal(t, "m3", messages[2].MessageID)
}

func TestMarkMessagesAsReadStampsCounterpartUnreadOnly(t *testing.T) {
	fd := &fakeDynamo{}
	match := testMatch(testInstant, 30*time.Second)

	fromCounterpart := models.Message{MatchID: match.MatchID, MessageID: "m1", SenderID: "user-b", CreatedAt: "2026-02-14T11:59:01Z"}
	ownMessage := models.Message{MatchID: match.MatchID, MessageID: "m2", SenderID: "user-a", CreatedAt: "2026-02-14T11:59:02Z"}
	alreadyRead := models.Message{MatchID: match.MatchID, MessageID: "m3", SenderID: "user-b", CreatedAt: "2026-02-14T11:59:03Z", ReadAt: "2026-02-14T11:59:30Z"}

	fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
	}
	fd.query = func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
			mustItem(t, fromCounterpart), mustItem(t, ownMessage), mustItem(t, alreadyRead),
		}}, nil
	}

	cs := newChatService(fd, &fakeFeed{})
	marked, err := cs.MarkMessagesAsRead(context.Background(), match.MatchID, "user-a")

	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	require.Len(t, fd.updateCalls, 1)
	assert.Equal(t, "attribute_not_exists(readAt)", aws.ToString(fd.updateCalls[0].ConditionExpression))
}

func TestMarkMessagesAsReadLosesRaceQuietly(t *testing.T) {
	fd := &fakeDynamo{}
	match := testMatch(testInstant, 30*time.Second)
	unread := models.Message{MatchID: match.MatchID, MessageID: "m1", SenderID: "user-b", CreatedAt: "2026-02-14T11:59:01Z"}

	fd.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: mustItem(t, match)}, nil
	}
	fd.query = func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{mustItem(t, unread)}}, nil
	}
	fd.updateItem = func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return nil, conditionFailed()
	}

	cs := newChatService(fd, &fakeFeed{})
	marked, err := cs.MarkMessagesAsRead(context.Background(), match.MatchID, "user-a")

	require.NoError(t, err)
	assert.Equal(t, 0, marked)
}
