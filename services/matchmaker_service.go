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

// MatchmakerService pairs two searching users. The pairing race is closed at
// the store: a candidate is claimed by a single conditional update that both
// checks the searching flag and reassigns it, so two requesters selecting the
// same candidate can never both win. The activeMatchId guard on the profile
// row keeps any user out of two simultaneous active matches.
type MatchmakerService struct {
	Dynamo        *DynamoService
	Feed          ChangeFeed
	Notifier      *NotificationService
	SearchTimeout time.Duration    // how long a searching flag may linger before the sweeper clears it
	Now           func() time.Time // test hook, defaults to time.Now
}

const candidateBatchSize = 10

func (ms *MatchmakerService) now() time.Time {
	if ms.Now != nil {
		return ms.Now()
	}
	return time.Now()
}

// RequestMatch marks the user as searching and tries to pair them with
// another currently-searching user. On success both searching flags are
// cleared as part of the claim and a new active Match is returned. With no
// candidate available it returns ErrNoCandidate and leaves the requester
// searching for a later attempt; the stale-searcher sweep eventually clears
// the flag if the client never comes back.
func (ms *MatchmakerService) RequestMatch(ctx context.Context, userID string) (*models.Match, error) {
	profile, err := fetchProfile(ctx, ms.Dynamo, userID)
	if err != nil {
		return nil, err
	}

	// A duplicate request while a match is already running returns the
	// running match instead of creating a second one.
	if profile.ActiveMatchID != "" {
		existing, err := fetchMatch(ctx, ms.Dynamo, profile.ActiveMatchID)
		if err == nil && !existing.IsTerminal() {
			return existing, nil
		}
		if err != nil && !errors.Is(err, ErrMatchNotFound) {
			return nil, err
		}
		// Stale guard left by a crash mid-transition; clear it and continue.
		releaseActiveMatch(ctx, ms.Dynamo, userID, profile.ActiveMatchID)
	}

	if err := ms.markSearching(ctx, userID); err != nil {
		if !errors.Is(err, ErrConditionFailed) {
			return nil, err
		}
		// Someone paired us between the guard check and the flag write.
		refreshed, readErr := fetchProfile(ctx, ms.Dynamo, userID)
		if readErr != nil {
			return nil, readErr
		}
		if refreshed.ActiveMatchID != "" {
			return fetchMatch(ctx, ms.Dynamo, refreshed.ActiveMatchID)
		}
		return nil, ErrNoCandidate
	}

	candidates, err := ms.findCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		matchID := uuid.NewString()
		if err := ms.claimCandidate(ctx, candidate.UserID, matchID); err != nil {
			if errors.Is(err, ErrConditionFailed) {
				// Lost the claim to a concurrent requester; try the next one.
				continue
			}
			return nil, err
		}

		match, err := ms.createMatch(ctx, matchID, userID, candidate.UserID)
		if err != nil {
			ms.revertClaim(ctx, candidate.UserID, matchID)
			return nil, err
		}

		log.Printf("🌪️ Paired %s with %s (match %s)", userID, candidate.UserID, matchID)
		if ms.Feed != nil {
			ms.Feed.MatchUpdated(*match)
		}
		if ms.Notifier != nil {
			err := ms.Notifier.Send(ctx, []string{match.User1ID, match.User2ID},
				models.NotificationNewMatch,
				"You're matched!",
				"A stranger is waiting. You have 2 minutes — make them count.",
				map[string]interface{}{"matchId": match.MatchID})
			if err != nil {
				log.Printf("⚠️ Failed to send new-match notification for %s: %v", matchID, err)
			}
		}
		return match, nil
	}

	return nil, ErrNoCandidate
}

// markSearching raises the sparse searching flag, guarded against users who
// are already in an active match.
func (ms *MatchmakerService) markSearching(ctx context.Context, userID string) error {
	_, err := ms.Dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(userID),
		"SET searchStatus = :searching, searchingSince = :now",
		"attribute_not_exists(activeMatchId)",
		map[string]types.AttributeValue{
			":searching": &types.AttributeValueMemberS{Value: models.SearchStatusSearching},
			":now":       &types.AttributeValueMemberS{Value: ms.now().UTC().Format(time.RFC3339)},
		}, nil,
	)
	return err
}

// findCandidates queries the sparse search GSI for waiting users, oldest first.
func (ms *MatchmakerService) findCandidates(ctx context.Context, requesterID string) ([]models.Profile, error) {
	items, err := ms.Dynamo.QueryItemsWithIndex(ctx, models.ProfilesTable, models.SearchStatusIndex,
		"searchStatus = :searching",
		map[string]types.AttributeValue{
			":searching": &types.AttributeValueMemberS{Value: models.SearchStatusSearching},
		}, nil, candidateBatchSize,
	)
	if err != nil {
		return nil, err
	}

	var candidates []models.Profile
	for _, item := range items {
		var profile models.Profile
		if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
			log.Printf("⚠️ Skipping unparseable searching profile: %v", err)
			continue
		}
		if profile.UserID == requesterID {
			continue
		}
		candidates = append(candidates, profile)
	}
	return candidates, nil
}

// claimCandidate atomically takes a waiting user out of the queue and into
// this match. The condition re-checks the searching flag and the active-match
// guard in the same store operation that rewrites them, which is what makes
// concurrent pairing attempts lose cleanly instead of double-matching.
func (ms *MatchmakerService) claimCandidate(ctx context.Context, candidateID, matchID string) error {
	_, err := ms.Dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(candidateID),
		"SET activeMatchId = :matchId REMOVE searchStatus, searchingSince",
		"searchStatus = :searching AND attribute_not_exists(activeMatchId)",
		map[string]types.AttributeValue{
			":matchId":   &types.AttributeValueMemberS{Value: matchID},
			":searching": &types.AttributeValueMemberS{Value: models.SearchStatusSearching},
		}, nil,
	)
	return err
}

// revertClaim puts a claimed candidate back in the queue after a failed match
// insert. Best effort: the stale-guard path in RequestMatch covers a crash here.
func (ms *MatchmakerService) revertClaim(ctx context.Context, candidateID, matchID string) {
	_, err := ms.Dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(candidateID),
		"SET searchStatus = :searching, searchingSince = :now REMOVE activeMatchId",
		"activeMatchId = :matchId",
		map[string]types.AttributeValue{
			":searching": &types.AttributeValueMemberS{Value: models.SearchStatusSearching},
			":now":       &types.AttributeValueMemberS{Value: ms.now().UTC().Format(time.RFC3339)},
			":matchId":   &types.AttributeValueMemberS{Value: matchID},
		}, nil,
	)
	if err != nil && !errors.Is(err, ErrConditionFailed) {
		log.Printf("⚠️ Failed to revert claim on %s for match %s: %v", candidateID, matchID, err)
	}
}

// createMatch inserts the new active match row and finalizes the requester's
// profile. The insert is guarded against matchId collisions.
func (ms *MatchmakerService) createMatch(ctx context.Context, matchID, requesterID, candidateID string) (*models.Match, error) {
	now := ms.now().UTC().Format(time.RFC3339)
	match := &models.Match{
		MatchID:        matchID,
		User1ID:        requesterID,
		User2ID:        candidateID,
		Status:         models.MatchStatusActive,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := ms.Dynamo.PutItemWithCondition(ctx, models.MatchesTable, match,
		"attribute_not_exists(matchId)", nil); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	_, err := ms.Dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(requesterID),
		"SET activeMatchId = :matchId REMOVE searchStatus, searchingSince",
		"attribute_exists(userId)",
		map[string]types.AttributeValue{
			":matchId": &types.AttributeValueMemberS{Value: matchID},
		}, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize requester %s: %w", requesterID, err)
	}
	return match, nil
}

// CancelSearch explicitly clears the caller's searching flag. Cancelling a
// search that is no longer pending is a no-op, not an error.
func (ms *MatchmakerService) CancelSearch(ctx context.Context, userID string) error {
	_, err := ms.Dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(userID),
		"REMOVE searchStatus, searchingSince",
		"searchStatus = :searching",
		map[string]types.AttributeValue{
			":searching": &types.AttributeValueMemberS{Value: models.SearchStatusSearching},
		}, nil,
	)
	if errors.Is(err, ErrConditionFailed) {
		return nil
	}
	return err
}

// ReleaseStaleSearchers clears searching flags older than SearchTimeout so an
// abandoned search never leaves a user stuck. Each release is conditioned on
// the observed searchingSince, so a search the user just refreshed survives.
func (ms *MatchmakerService) ReleaseStaleSearchers(ctx context.Context) (int, error) {
	cutoff := ms.now().Add(-ms.SearchTimeout).UTC().Format(time.RFC3339)

	items, err := ms.Dynamo.QueryItemsWithIndex(ctx, models.ProfilesTable, models.SearchStatusIndex,
		"searchStatus = :searching AND searchingSince < :cutoff",
		map[string]types.AttributeValue{
			":searching": &types.AttributeValueMemberS{Value: models.SearchStatusSearching},
			":cutoff":    &types.AttributeValueMemberS{Value: cutoff},
		}, nil, 50,
	)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, item := range items {
		var profile models.Profile
		if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
			continue
		}

		_, err := ms.Dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(profile.UserID),
			"REMOVE searchStatus, searchingSince",
			"searchStatus = :searching AND searchingSince = :since",
			map[string]types.AttributeValue{
				":searching": &types.AttributeValueMemberS{Value: models.SearchStatusSearching},
				":since":     &types.AttributeValueMemberS{Value: profile.SearchingSince},
			}, nil,
		)
		if errors.Is(err, ErrConditionFailed) {
			continue
		}
		if err != nil {
			log.Printf("⚠️ Failed to release stale searcher %s: %v", profile.UserID, err)
			continue
		}
		released++
	}
	return released, nil
}
