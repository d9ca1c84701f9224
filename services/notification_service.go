package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tornado_server/models"
	"tornado_server/utils"
)

// NotificationService is the push dispatcher: it resolves recipients' Expo
// push tokens from their profiles and posts the batch to the Expo push API.
// Delivery is best effort; lifecycle transitions never depend on it.
type NotificationService struct {
	Dynamo     *DynamoService
	HTTPClient *http.Client
	PushURL    string
}

func NewNotificationService(dynamo *DynamoService, pushURL string) *NotificationService {
	return &NotificationService{
		Dynamo:     dynamo,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		PushURL:    pushURL,
	}
}

// expoPushMessage is the Expo push API payload shape.
type expoPushMessage struct {
	To        string                 `json:"to"`
	Sound     string                 `json:"sound"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	ChannelID string                 `json:"channelId"`
}

// Send looks up each recipient's push token and delivers one notification of
// the given kind to everyone who has a token registered. Recipients without
// a token are skipped silently.
func (ns *NotificationService) Send(ctx context.Context, recipientIDs []string, kind, title, body string, data map[string]interface{}) error {
	var notifications []expoPushMessage

	for _, recipientID := range recipientIDs {
		item, err := ns.Dynamo.GetItem(ctx, models.ProfilesTable, profileKey(recipientID))
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				continue
			}
			return err
		}

		pushToken := utils.ExtractString(item, "pushToken")
		if pushToken == "" {
			continue
		}

		payload := map[string]interface{}{
			"type":        kind,
			"recipientId": recipientID,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}
		for k, v := range data {
			payload[k] = v
		}

		notifications = append(notifications, expoPushMessage{
			To:        pushToken,
			Sound:     "default",
			Title:     title,
			Body:      body,
			Data:      payload,
			ChannelID: "default",
		})
	}

	if len(notifications) == 0 {
		log.Printf("📭 No valid push tokens for %s notification", kind)
		return nil
	}

	encoded, err := json.Marshal(notifications)
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ns.PushURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := ns.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach push service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}

	log.Printf("📣 Sent %d %s notification(s)", len(notifications), kind)
	return nil
}
