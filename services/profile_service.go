package services

import (
	"context"
	"errors"

	"tornado_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ProfileService exposes the slice of the profile row the lifecycle cares
// about. Profile creation and editing belong to external flows.
type ProfileService struct {
	Dynamo *DynamoService
}

// GetProfile retrieves a user profile by ID.
func (ps *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return fetchProfile(ctx, ps.Dynamo, userID)
}

// UpdatePushToken registers the user's push address. Guarded on the profile
// existing so a typo'd userId doesn't create a ghost row.
func (ps *ProfileService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	_, err := ps.Dynamo.UpdateItemWithCondition(ctx, models.ProfilesTable, profileKey(userID),
		"SET pushToken = :token",
		"attribute_exists(userId)",
		map[string]types.AttributeValue{
			":token": &types.AttributeValueMemberS{Value: pushToken},
		}, nil,
	)
	if err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return ErrProfileNotFound
		}
		return err
	}
	return nil
}
