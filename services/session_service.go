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

// SessionService owns the anonymous-window deadline of a match. The deadline
// is a pure function of the stored creation timestamp; the timeout transition
// is a conditional write that any number of clients (or the sweeper) may race
// for with exactly one winner.
type SessionService struct {
	Dynamo   *DynamoService
	Feed     ChangeFeed
	Notifier *NotificationService
	Now      func() time.Time // test hook, defaults to time.Now
}

func (ss *SessionService) now() time.Time {
	if ss.Now != nil {
		return ss.Now()
	}
	return time.Now()
}

// Remaining computes the authoritative remaining anonymous window from the
// stored creation timestamp, clamped to [0, AnonymousWindow]. An unparseable
// timestamp counts as expired rather than leaving the window open forever.
func Remaining(createdAt string, now time.Time) time.Duration {
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return 0
	}
	remaining := models.AnonymousWindow - now.Sub(created)
	if remaining < 0 {
		return 0
	}
	if remaining > models.AnonymousWindow {
		return models.AnonymousWindow
	}
	return remaining
}

// Remaining reports the remaining window for a match at the current instant.
func (ss *SessionService) Remaining(match *models.Match) time.Duration {
	return Remaining(match.CreatedAt, ss.now())
}

// ExpireIfDue transitions an overdue active match to ended_by_timer. It is
// idempotent: callers racing to declare the timeout all converge on the same
// terminal row, and only the writer whose conditional update landed emits the
// change event. The bool reports whether this call performed the transition.
func (ss *SessionService) ExpireIfDue(ctx context.Context, matchID string) (*models.Match, bool, error) {
	match, err := fetchMatch(ctx, ss.Dynamo, matchID)
	if err != nil {
		return nil, false, err
	}
	if match.IsTerminal() {
		return match, false, nil
	}
	if Remaining(match.CreatedAt, ss.now()) > 0 {
		return match, false, nil
	}

	now := ss.now().UTC().Format(time.RFC3339)
	cutoff := ss.now().Add(-models.AnonymousWindow).UTC().Format(time.RFC3339)

	attrs, err := ss.Dynamo.UpdateItemWithCondition(ctx, models.MatchesTable, matchKey(matchID),
		"SET #status = :ended, lastActivityAt = :now",
		"#status = :active AND createdAt < :cutoff",
		map[string]types.AttributeValue{
			":ended":  &types.AttributeValueMemberS{Value: models.MatchStatusEndedByTimer},
			":active": &types.AttributeValueMemberS{Value: models.MatchStatusActive},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
			":now":    &types.AttributeValueMemberS{Value: now},
		},
		map[string]string{"#status": "status"},
	)
	if errors.Is(err, ErrConditionFailed) {
		// Another declarer or a consent transition won; the current row is the answer.
		current, readErr := fetchMatch(ctx, ss.Dynamo, matchID)
		if readErr != nil {
			return nil, false, readErr
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var updated models.Match
	if err := attributevalue.UnmarshalMap(attrs, &updated); err != nil {
		return nil, false, fmt.Errorf("failed to parse expired match %s: %w", matchID, err)
	}

	log.Printf("⏰ Match %s ended by timer", matchID)
	releaseParticipants(ctx, ss.Dynamo, &updated)
	if ss.Feed != nil {
		ss.Feed.MatchUpdated(updated)
	}
	if ss.Notifier != nil {
		err := ss.Notifier.Send(ctx, []string{updated.User1ID, updated.User2ID},
			models.NotificationReEngagement,
			"Time's up!",
			"Your anonymous chat has ended. Ready for another tornado?",
			map[string]interface{}{"matchId": updated.MatchID})
		if err != nil {
			log.Printf("⚠️ Failed to send re-engagement notification for match %s: %v", matchID, err)
		}
	}
	return &updated, true, nil
}

// SweepExpired expires every overdue active match via the status GSI. It is
// the server-side driver of the timeout transition; clients declaring expiry
// through the API race it harmlessly.
func (ss *SessionService) SweepExpired(ctx context.Context) (int, error) {
	cutoff := ss.now().Add(-models.AnonymousWindow).UTC().Format(time.RFC3339)

	items, err := ss.Dynamo.QueryItemsWithIndex(ctx, models.MatchesTable, models.StatusCreatedAtIndex,
		"#status = :active AND createdAt < :cutoff",
		map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: models.MatchStatusActive},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
		},
		map[string]string{"#status": "status"},
		50,
	)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, item := range items {
		var match models.Match
		if err := attributevalue.UnmarshalMap(item, &match); err != nil {
			log.Printf("⚠️ Skipping unparseable match in expiry sweep: %v", err)
			continue
		}
		_, transitioned, err := ss.ExpireIfDue(ctx, match.MatchID)
		if err != nil {
			log.Printf("⚠️ Failed to expire match %s: %v", match.MatchID, err)
			continue
		}
		if transitioned {
			expired++
		}
	}
	return expired, nil
}

// SweepWarnings dispatches the 30-seconds-left notification for matches that
// entered the warning band. The timerWarningAt marker is claimed with a
// conditional write, so concurrent sweeps send each warning at most once.
func (ss *SessionService) SweepWarnings(ctx context.Context) (int, error) {
	now := ss.now()
	// Warning band: older than window-warning (30s left), younger than the full window.
	lower := now.Add(-models.AnonymousWindow).UTC().Format(time.RFC3339)
	upper := now.Add(-(models.AnonymousWindow - models.TimerWarning)).UTC().Format(time.RFC3339)

	items, err := ss.Dynamo.QueryItemsWithIndex(ctx, models.MatchesTable, models.StatusCreatedAtIndex,
		"#status = :active AND createdAt BETWEEN :lower AND :upper",
		map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: models.MatchStatusActive},
			":lower":  &types.AttributeValueMemberS{Value: lower},
			":upper":  &types.AttributeValueMemberS{Value: upper},
		},
		map[string]string{"#status": "status"},
		50,
	)
	if err != nil {
		return 0, err
	}

	warned := 0
	for _, item := range items {
		var match models.Match
		if err := attributevalue.UnmarshalMap(item, &match); err != nil {
			continue
		}
		if match.TimerWarningAt != "" {
			continue
		}

		_, err := ss.Dynamo.UpdateItemWithCondition(ctx, models.MatchesTable, matchKey(match.MatchID),
			"SET timerWarningAt = :now",
			"#status = :active AND attribute_not_exists(timerWarningAt)",
			map[string]types.AttributeValue{
				":now":    &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
				":active": &types.AttributeValueMemberS{Value: models.MatchStatusActive},
			},
			map[string]string{"#status": "status"},
		)
		if errors.Is(err, ErrConditionFailed) {
			continue
		}
		if err != nil {
			log.Printf("⚠️ Failed to mark timer warning for match %s: %v", match.MatchID, err)
			continue
		}

		warned++
		if ss.Notifier != nil {
			err := ss.Notifier.Send(ctx, []string{match.User1ID, match.User2ID},
				models.NotificationTimerWarning,
				"⏰ 30 Seconds Left!",
				"Time is running out! Decide if you want to reveal profiles.",
				map[string]interface{}{"matchId": match.MatchID})
			if err != nil {
				log.Printf("⚠️ Failed to send timer warning for match %s: %v", match.MatchID, err)
			}
		}
	}
	return warned, nil
}
