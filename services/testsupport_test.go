package services

import (
	"context"
	"testing"
	"time"

	"tornado_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is a scriptable DynamoAPI stub. Tests assign the call hooks they
// need; unassigned hooks return empty outputs. Every input is recorded so
// tests can assert on the exact expressions the services wrote.
type fakeDynamo struct {
	getItem    func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putItem    func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateItem func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	query      func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)

	getCalls    []*dynamodb.GetItemInput
	putCalls    []*dynamodb.PutItemInput
	updateCalls []*dynamodb.UpdateItemInput
	queryCalls  []*dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getCalls = append(f.getCalls, params)
	if f.getItem != nil {
		return f.getItem(params)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putCalls = append(f.putCalls, params)
	if f.putItem != nil {
		return f.putItem(params)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateCalls = append(f.updateCalls, params)
	if f.updateItem != nil {
		return f.updateItem(params)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryCalls = append(f.queryCalls, params)
	if f.query != nil {
		return f.query(params)
	}
	return &dynamodb.QueryOutput{}, nil
}

// fakeFeed records change-feed emissions for assertions.
type fakeFeed struct {
	matches  []models.Match
	messages []models.Message
}

func (f *fakeFeed) MatchUpdated(match models.Match)       { f.matches = append(f.matches, match) }
func (f *fakeFeed) MessageCreated(message models.Message) { f.messages = append(f.messages, message) }

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func mustItem(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return item
}

// fixedNow returns a deterministic clock for services' Now hooks.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// testMatch builds an active match created age before the fixed test instant.
func testMatch(now time.Time, age time.Duration) models.Match {
	created := now.Add(-age).UTC().Format(time.RFC3339)
	return models.Match{
		MatchID:        "match-1",
		User1ID:        "user-a",
		User2ID:        "user-b",
		Status:         models.MatchStatusActive,
		CreatedAt:      created,
		LastActivityAt: created,
	}
}
