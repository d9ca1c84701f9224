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
)

// ConsentService decides, from independent per-user votes, whether a match
// reveals or ends. Votes are recorded by conditional updates whose expiry and
// status guards are evaluated by the store, and the reveal transition is a
// second guarded write that exactly one of two racing voters can win.
type ConsentService struct {
	Dynamo   *DynamoService
	Sessions *SessionService
	Feed     ChangeFeed
	Notifier *NotificationService
	Now      func() time.Time // test hook, defaults to time.Now
}

func (cs *ConsentService) now() time.Time {
	if cs.Now != nil {
		return cs.Now()
	}
	return time.Now()
}

// SubmitConsent records the caller's reveal vote for a match. consent = true
// is idempotent and triggers the reveal once both votes are in; consent =
// false ends the match unilaterally and finally. Votes after the anonymous
// window fail with ErrExpired; votes on settled matches with ErrAlreadyTerminal.
func (cs *ConsentService) SubmitConsent(ctx context.Context, matchID, userID string, consent bool) (*models.Match, error) {
	match, err := fetchMatch(ctx, cs.Dynamo, matchID)
	if err != nil {
		return nil, err
	}

	slot := match.ParticipantSlot(userID)
	if slot == 0 {
		log.Printf("🚨 Suspicious consent call: user %s is not a participant of match %s", userID, matchID)
		return nil, ErrUnauthorized
	}

	if match.IsTerminal() {
		return nil, terminalError(match)
	}

	if Remaining(match.CreatedAt, cs.now()) == 0 {
		// The window elapsed but nobody declared it yet; this call does.
		if _, _, err := cs.Sessions.ExpireIfDue(ctx, matchID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	if !consent {
		return cs.decline(ctx, matchID, userID)
	}
	return cs.recordVote(ctx, matchID, slot)
}

// decline ends the match immediately regardless of the other participant's
// vote. Declining is unilateral and final; there is no waiting period.
func (cs *ConsentService) decline(ctx context.Context, matchID, userID string) (*models.Match, error) {
	now := cs.now().UTC().Format(time.RFC3339)
	cutoff := cs.now().Add(-models.AnonymousWindow).UTC().Format(time.RFC3339)

	attrs, err := cs.Dynamo.UpdateItemWithCondition(ctx, models.MatchesTable, matchKey(matchID),
		"SET #status = :ended, endedBy = :user, lastActivityAt = :now",
		"#status = :active AND createdAt >= :cutoff",
		map[string]types.AttributeValue{
			":ended":  &types.AttributeValueMemberS{Value: models.MatchStatusEndedByUser},
			":active": &types.AttributeValueMemberS{Value: models.MatchStatusActive},
			":user":   &types.AttributeValueMemberS{Value: userID},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
			":now":    &types.AttributeValueMemberS{Value: now},
		},
		map[string]string{"#status": "status"},
	)
	if errors.Is(err, ErrConditionFailed) {
		return nil, cs.classifyLostWrite(ctx, matchID)
	}
	if err != nil {
		return nil, err
	}

	var updated models.Match
	if err := attributevalue.UnmarshalMap(attrs, &updated); err != nil {
		return nil, fmt.Errorf("failed to parse declined match %s: %w", matchID, err)
	}

	log.Printf("💔 Match %s ended by user %s", matchID, userID)
	releaseParticipants(ctx, cs.Dynamo, &updated)
	if cs.Feed != nil {
		cs.Feed.MatchUpdated(updated)
	}
	return &updated, nil
}

// recordVote durably sets the caller's consent flag, then attempts the reveal
// transition if the returned row shows both votes in. Re-submitting an
// already-true vote is a no-op that succeeds.
func (cs *ConsentService) recordVote(ctx context.Context, matchID string, slot int) (*models.Match, error) {
	now := cs.now().UTC().Format(time.RFC3339)
	cutoff := cs.now().Add(-models.AnonymousWindow).UTC().Format(time.RFC3339)

	consentField := "user1Consent"
	if slot == 2 {
		consentField = "user2Consent"
	}

	attrs, err := cs.Dynamo.UpdateItemWithCondition(ctx, models.MatchesTable, matchKey(matchID),
		fmt.Sprintf("SET %s = :true, lastActivityAt = :now", consentField),
		"#status = :active AND createdAt >= :cutoff",
		map[string]types.AttributeValue{
			":true":   &types.AttributeValueMemberBOOL{Value: true},
			":active": &types.AttributeValueMemberS{Value: models.MatchStatusActive},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
			":now":    &types.AttributeValueMemberS{Value: now},
		},
		map[string]string{"#status": "status"},
	)
	if errors.Is(err, ErrConditionFailed) {
		return nil, cs.classifyLostWrite(ctx, matchID)
	}
	if err != nil {
		return nil, err
	}

	var updated models.Match
	if err := attributevalue.UnmarshalMap(attrs, &updated); err != nil {
		return nil, fmt.Errorf("failed to parse match %s after vote: %w", matchID, err)
	}

	if updated.User1Consent && updated.User2Consent {
		return cs.reveal(ctx, matchID)
	}

	// A lone vote is still a visible transition: the counterpart's client
	// shows "the other person said yes" in real time.
	if cs.Feed != nil {
		cs.Feed.MatchUpdated(updated)
	}
	return &updated, nil
}

// reveal flips the match to revealed. The guard re-checks both votes and the
// active status in the store, so of two voters arriving at nearly the same
// instant exactly one performs the transition and emits its events; the other
// observes the already-revealed row and reports success without side effects.
func (cs *ConsentService) reveal(ctx context.Context, matchID string) (*models.Match, error) {
	now := cs.now().UTC().Format(time.RFC3339)

	attrs, err := cs.Dynamo.UpdateItemWithCondition(ctx, models.MatchesTable, matchKey(matchID),
		"SET #status = :revealed, revealedAt = :now, lastActivityAt = :now",
		"#status = :active AND user1Consent = :true AND user2Consent = :true",
		map[string]types.AttributeValue{
			":revealed": &types.AttributeValueMemberS{Value: models.MatchStatusRevealed},
			":active":   &types.AttributeValueMemberS{Value: models.MatchStatusActive},
			":true":     &types.AttributeValueMemberBOOL{Value: true},
			":now":      &types.AttributeValueMemberS{Value: now},
		},
		map[string]string{"#status": "status"},
	)
	if errors.Is(err, ErrConditionFailed) {
		current, readErr := fetchMatch(ctx, cs.Dynamo, matchID)
		if readErr != nil {
			return nil, readErr
		}
		if current.Status == models.MatchStatusRevealed {
			// The counterpart's vote performed the transition.
			return current, nil
		}
		return nil, terminalError(current)
	}
	if err != nil {
		return nil, err
	}

	var revealed models.Match
	if err := attributevalue.UnmarshalMap(attrs, &revealed); err != nil {
		return nil, fmt.Errorf("failed to parse revealed match %s: %w", matchID, err)
	}

	log.Printf("✨ Match %s revealed", matchID)
	releaseParticipants(ctx, cs.Dynamo, &revealed)
	if cs.Feed != nil {
		cs.Feed.MatchUpdated(revealed)
	}
	if cs.Notifier != nil {
		err := cs.Notifier.Send(ctx, []string{revealed.User1ID, revealed.User2ID},
			models.NotificationRevealed,
			"Profiles revealed!",
			"You both said yes. Go see who you've been talking to.",
			map[string]interface{}{"matchId": revealed.MatchID})
		if err != nil {
			log.Printf("⚠️ Failed to send reveal notification for match %s: %v", matchID, err)
		}
	}
	return &revealed, nil
}

// classifyLostWrite decides why a guarded vote or decline lost its condition:
// a terminal row maps through terminalError, and a still-active row with an
// elapsed window is declared expired on the spot.
func (cs *ConsentService) classifyLostWrite(ctx context.Context, matchID string) error {
	match, err := fetchMatch(ctx, cs.Dynamo, matchID)
	if err != nil {
		return err
	}
	if match.IsTerminal() {
		return terminalError(match)
	}
	if Remaining(match.CreatedAt, cs.now()) == 0 {
		if _, _, err := cs.Sessions.ExpireIfDue(ctx, matchID); err != nil {
			return err
		}
		return ErrExpired
	}
	// The row moved but is still active and in-window; the caller's view was stale.
	return ErrAlreadyTerminal
}
