package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tornado_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Shared row access for the lifecycle services.

func matchKey(matchID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"matchId": &types.AttributeValueMemberS{Value: matchID},
	}
}

func profileKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
}

func fetchMatch(ctx context.Context, dynamo *DynamoService, matchID string) (*models.Match, error) {
	item, err := dynamo.GetItem(ctx, models.MatchesTable, matchKey(matchID))
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	var match models.Match
	if err := attributevalue.UnmarshalMap(item, &match); err != nil {
		return nil, fmt.Errorf("failed to parse match %s: %w", matchID, err)
	}
	return &match, nil
}

func fetchProfile(ctx context.Context, dynamo *DynamoService, userID string) (*models.Profile, error) {
	item, err := dynamo.GetItem(ctx, models.ProfilesTable, profileKey(userID))
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var profile models.Profile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", userID, err)
	}
	return &profile, nil
}

// releaseActiveMatch clears the active-match guard on one participant, but
// only while it still points at this match. Losing the condition is benign:
// the guard was already cleared or reassigned by a later pairing.
func releaseActiveMatch(ctx context.Context, dynamo *DynamoService, userID, matchID string) {
	_, err := dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(userID),
		"REMOVE activeMatchId",
		"activeMatchId = :matchId",
		map[string]types.AttributeValue{
			":matchId": &types.AttributeValueMemberS{Value: matchID},
		}, nil,
	)
	if err != nil && !errors.Is(err, ErrConditionFailed) {
		log.Printf("⚠️ Failed to release active match %s for user %s: %v", matchID, userID, err)
	}
}

// releaseParticipants frees both users for re-matching after a terminal transition.
func releaseParticipants(ctx context.Context, dynamo *DynamoService, match *models.Match) {
	releaseActiveMatch(ctx, dynamo, match.User1ID, match.MatchID)
	releaseActiveMatch(ctx, dynamo, match.User2ID, match.MatchID)
}

// terminalError maps a terminal match status onto the caller-facing sentinel:
// a match the timer closed reads as "time's up", everything else as a stale
// view of an already-settled match.
func terminalError(match *models.Match) error {
	if match.Status == models.MatchStatusEndedByTimer {
		return ErrExpired
	}
	return ErrAlreadyTerminal
}
