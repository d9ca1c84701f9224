package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tornado_server/services"

	"github.com/go-playground/validator/v10"
)

// ChatController handles HTTP requests for messages within a match.
type ChatController struct {
	Chat     *services.ChatService
	validate *validator.Validate
}

// NewChatController initializes the chat controller
func NewChatController(chat *services.ChatService) *ChatController {
	return &ChatController{Chat: chat, validate: validator.New()}
}

// HandleSendMessage creates a message in a match the sender participates in.
func (cc *ChatController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MatchID  string `json:"matchId" validate:"required"`
		SenderID string `json:"senderId" validate:"required"`
		Content  string `json:"content" validate:"required,max=2000"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := cc.validate.Struct(request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "matchId, senderId and content are required"})
		return
	}

	message, err := cc.Chat.SendMessage(r.Context(), request.MatchID, request.SenderID, request.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, message)
}

// HandleGetMessages fetches messages for a match, oldest first.
func (cc *ChatController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	if matchID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "matchId is required"})
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	messages, err := cc.Chat.GetMessages(r.Context(), matchID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// HandleMarkMessagesAsRead stamps the counterpart's messages as read.
func (cc *ChatController) HandleMarkMessagesAsRead(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MatchID string `json:"matchId" validate:"required"`
		UserID  string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := cc.validate.Struct(request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "matchId and userId are required"})
		return
	}

	marked, err := cc.Chat.MarkMessagesAsRead(r.Context(), request.MatchID, request.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "marked": marked})
}
