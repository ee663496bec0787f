package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/models"
	"chat-backend/pkg/logger"
)

type ChatHandlers struct {
	roomService *chat.RoomService
	messageLog  *chat.MessageLog
	authService *auth.Service
}

func NewChatHandlers(roomService *chat.RoomService, messageLog *chat.MessageLog, authService *auth.Service) *ChatHandlers {
	return &ChatHandlers{
		roomService: roomService,
		messageLog:  messageLog,
		authService: authService,
	}
}

func (h *ChatHandlers) CreateChat(w http.ResponseWriter, r *http.Request) {
	if _, err := h.getUserFromToken(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.CreateChat(r.Context(), &req)
	if err != nil {
		logger.Error("Create chat error: %v", err)
		writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"chatId": room.ChatID})
}

func (h *ChatHandlers) ListChats(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rooms, err := h.roomService.ListUserChats(r.Context(), user.Username)
	if err != nil {
		logger.Error("List chats error: %v", err)
		writeChatError(w, err)
		return
	}
	if rooms == nil {
		rooms = []*models.ChatRoom{}
	}

	writeJSON(w, http.StatusOK, rooms)
}

// GetChat serves GET /chats/{chatId}.
func (h *ChatHandlers) GetChat(w http.ResponseWriter, r *http.Request, chatID string) {
	if _, err := h.getUserFromToken(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	room, err := h.roomService.GetChat(r.Context(), chatID)
	if err != nil {
		http.Error(w, "chat not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// GetChatMessages serves GET /chats/{chatId}/messages. The page comes back
// oldest first with lastEvaluatedKey as the continuation token for the next
// (older) page; clients resume by echoing both lastTimestamp and
// lastMessageId from it.
func (h *ChatHandlers) GetChatMessages(w http.ResponseWriter, r *http.Request, chatID string) {
	if _, err := h.getUserFromToken(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// A missing or malformed limit falls back to the default rather than
	// failing the whole request.
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	var beforeTS int64
	if raw := r.URL.Query().Get("lastTimestamp"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid lastTimestamp", http.StatusBadRequest)
			return
		}
		beforeTS = parsed
	}
	beforeID := r.URL.Query().Get("lastMessageId")

	messages, next, err := h.messageLog.ReadPage(r.Context(), chatID, limit, beforeTS, beforeID)
	if err != nil {
		logger.Error("Read messages error: %v", err)
		writeChatError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, models.MessagePage{
		Messages:         messages,
		LastEvaluatedKey: next,
	})
}

func (h *ChatHandlers) getUserFromToken(r *http.Request) (*models.User, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	return h.authService.GetUserFromToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, chat.ErrConnectionNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, chat.ErrStoreUnavailable):
		http.Error(w, "internal server error", http.StatusInternalServerError)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
