package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tornado_server/models"
	"tornado_server/services"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore is a minimal services.DynamoAPI for driving handlers through the
// real service layer.
type stubStore struct {
	getItem    func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	updateItem func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
}

func (s *stubStore) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if s.getItem != nil {
		return s.getItem(params)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (s *stubStore) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (s *stubStore) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if s.updateItem != nil {
		return s.updateItem(params)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (s *stubStore) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

var controllerInstant = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return controllerInstant }

func newTestController(store *stubStore) *MatchController {
	dynamo := &services.DynamoService{Client: store}
	sessions := &services.SessionService{Dynamo: dynamo, Now: fixedClock}
	return NewMatchController(
		&services.MatchmakerService{Dynamo: dynamo, Now: fixedClock},
		&services.ConsentService{Dynamo: dynamo, Sessions: sessions, Now: fixedClock},
		sessions,
		&services.MatchService{Dynamo: dynamo, Now: fixedClock},
	)
}

func storedMatch(t *testing.T, status string, age time.Duration) map[string]types.AttributeValue {
	t.Helper()
	created := controllerInstant.Add(-age).Format(time.RFC3339)
	item, err := attributevalue.MarshalMap(models.Match{
		MatchID: "match-1", User1ID: "user-a", User2ID: "user-b",
		Status: status, CreatedAt: created, LastActivityAt: created,
	})
	require.NoError(t, err)
	return item
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(encoded))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleSubmitConsentValidation(t *testing.T) {
	mc := newTestController(&stubStore{})

	rec := postJSON(t, mc.HandleSubmitConsent, map[string]string{"matchId": "match-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// consent must be an explicit boolean, absent is not false
	rec = postJSON(t, mc.HandleSubmitConsent, map[string]string{"matchId": "match-1", "userId": "user-a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	mc.HandleSubmitConsent(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitConsentErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		store    *stubStore
		userID   string
		wantCode int
	}{
		{
			name:     "unknown match maps to 404",
			store:    &stubStore{},
			userID:   "user-a",
			wantCode: http.StatusNotFound,
		},
		{
			name: "outsider maps to 403",
			store: &stubStore{getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: storedMatch(t, models.MatchStatusActive, 30*time.Second)}, nil
			}},
			userID:   "user-z",
			wantCode: http.StatusForbidden,
		},
		{
			name: "timer-ended match maps to 410",
			store: &stubStore{getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: storedMatch(t, models.MatchStatusEndedByTimer, 200*time.Second)}, nil
			}},
			userID:   "user-a",
			wantCode: http.StatusGone,
		},
		{
			name: "revealed match maps to 409",
			store: &stubStore{getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: storedMatch(t, models.MatchStatusRevealed, 60*time.Second)}, nil
			}},
			userID:   "user-a",
			wantCode: http.StatusConflict,
		},
		{
			name: "store outage maps to 503",
			store: &stubStore{getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return nil, errors.New("connection reset")
			}},
			userID:   "user-a",
			wantCode: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := newTestController(tt.store)
			rec := postJSON(t, mc.HandleSubmitConsent, map[string]interface{}{
				"matchId": "match-1", "userId": tt.userID, "consent": true,
			})
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHandleSubmitConsentDecline(t *testing.T) {
	store := &stubStore{
		getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: storedMatch(t, models.MatchStatusActive, 30*time.Second)}, nil
		},
		updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			return &dynamodb.UpdateItemOutput{Attributes: storedMatch(t, models.MatchStatusEndedByUser, 30*time.Second)}, nil
		},
	}
	mc := newTestController(store)

	rec := postJSON(t, mc.HandleSubmitConsent, map[string]interface{}{
		"matchId": "match-1", "userId": "user-a", "consent": false,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, models.MatchStatusEndedByUser, response["status"])
}

func TestHandleRequestMatchNoCandidate(t *testing.T) {
	store := &stubStore{
		getItem: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			profile, err := attributevalue.MarshalMap(models.Profile{UserID: "user-a"})
			require.NoError(t, err)
			return &dynamodb.GetItemOutput{Item: profile}, nil
		},
	}
	mc := newTestController(store)

	rec := postJSON(t, mc.HandleRequestMatch, map[string]string{"userId": "user-a"})

	require.Equal(t, http.StatusNotFound, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "not_found", response["status"])
}

func TestHandleGetMatchView(t *testing.T) {
	store := &stubStore{
		getItem: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: storedMatch(t, models.MatchStatusActive, 45*time.Second)}, nil
		},
	}
	mc := newTestController(store)

	r := mux.NewRouter()
	r.HandleFunc("/api/match/{matchId}", mc.HandleGetMatch).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/api/match/match-1?userId=user-a", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view models.MatchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "match-1", view.MatchID)
	assert.Equal(t, int64(75), view.RemainingSeconds)
	assert.Nil(t, view.OtherProfile)
}

func TestHandleListMatchesRequiresUserID(t *testing.T) {
	mc := newTestController(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/match/list", nil)
	rec := httptest.NewRecorder()
	mc.HandleListMatches(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
