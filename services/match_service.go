package services

import (
	"context"
	"errors"
	"log"
	"time"

	"tornado_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MatchService is the read side of the match lifecycle: per-participant match
// views and the match list for the conversations screen. Counterpart profiles
// are attached only once a match is revealed; during the anonymous phase the
// other user stays a stranger.
type MatchService struct {
	Dynamo *DynamoService
	Now    func() time.Time // test hook, defaults to time.Now
}

func (s *MatchService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// GetMatchView returns one participant's view of a match: status, the
// authoritative remaining window recomputed from createdAt, both consent
// flags from the caller's perspective, and the counterpart's public profile
// iff the match is revealed.
func (s *MatchService) GetMatchView(ctx context.Context, matchID, userID string) (*models.MatchView, error) {
	match, err := fetchMatch(ctx, s.Dynamo, matchID)
	if err != nil {
		return nil, err
	}

	slot := match.ParticipantSlot(userID)
	if slot == 0 {
		log.Printf("🚨 Suspicious match fetch: user %s is not a participant of match %s", userID, matchID)
		return nil, ErrUnauthorized
	}

	view := &models.MatchView{
		MatchID:          match.MatchID,
		Status:           match.Status,
		CreatedAt:        match.CreatedAt,
		RemainingSeconds: int64(Remaining(match.CreatedAt, s.now()) / time.Second),
		YourConsent:      match.ConsentOf(slot),
		OtherConsent:     match.ConsentOf(3 - slot),
	}

	if match.Status == models.MatchStatusRevealed {
		other, err := fetchProfile(ctx, s.Dynamo, match.OtherUser(userID))
		if err != nil && !errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		if other != nil {
			view.OtherProfile = other.Public()
		}
	}
	return view, nil
}

// ListMatches fetches every match the user participates in, from both GSIs,
// enriched with the latest message and unread state.
func (s *MatchService) ListMatches(ctx context.Context, userID string) ([]models.MatchSummary, error) {
	matches, err := s.fetchMatchesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.MatchSummary, 0, len(matches))
	for _, match := range matches {
		summary := models.MatchSummary{
			MatchID:   match.MatchID,
			Status:    match.Status,
			CreatedAt: match.CreatedAt,
		}

		lastMessage, isUnread, err := s.fetchLastMessageAndUnread(ctx, match.MatchID, userID)
		if err != nil {
			log.Printf("⚠️ Failed to fetch last message for match %s: %v", match.MatchID, err)
		} else {
			summary.LastMessage = lastMessage
			summary.IsUnread = isUnread
		}

		if match.Status == models.MatchStatusRevealed {
			other, err := fetchProfile(ctx, s.Dynamo, match.OtherUser(userID))
			if err == nil {
				summary.OtherProfile = other.Public()
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// fetchMatchesForUser queries both participant GSIs; a user can sit on either
// side of a match depending on who requested the pairing.
func (s *MatchService) fetchMatchesForUser(ctx context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match

	queries := []struct {
		index     string
		condition string
	}{
		{models.User1Index, "user1Id = :userId"},
		{models.User2Index, "user2Id = :userId"},
	}

	for _, q := range queries {
		items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.MatchesTable, q.index, q.condition,
			map[string]types.AttributeValue{
				":userId": &types.AttributeValueMemberS{Value: userID},
			}, nil, 100,
		)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var match models.Match
			if err := attributevalue.UnmarshalMap(item, &match); err != nil {
				log.Printf("⚠️ Skipping unparseable match for user %s: %v", userID, err)
				continue
			}
			matches = append(matches, match)
		}
	}
	return matches, nil
}

// fetchLastMessageAndUnread returns the newest message of a match and whether
// it is an unread message from the counterpart.
func (s *MatchService) fetchLastMessageAndUnread(ctx context.Context, matchID, userID string) (string, bool, error) {
	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable,
		"#matchId = :matchId",
		map[string]types.AttributeValue{
			":matchId": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]string{"#matchId": "matchId"},
		1, true,
	)
	if err != nil {
		return "", false, err
	}
	if len(items) == 0 {
		return "", false, nil
	}

	var lastMessage models.Message
	if err := attributevalue.UnmarshalMap(items[0], &lastMessage); err != nil {
		return "", false, err
	}

	isUnread := lastMessage.ReadAt == "" && lastMessage.SenderID != userID
	return lastMessage.Content, isUnread, nil
}
