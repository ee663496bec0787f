package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/delivery"
	"chat-backend/internal/models"
	"chat-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketHandlers terminates client sockets and routes their events into
// the registry and dispatcher. Each inbound frame is handled as an
// independent invocation; the only shared state is the store.
type WebSocketHandlers struct {
	authService *auth.Service
	registry    *chat.Registry
	dispatcher  *chat.Dispatcher
	roomService *chat.RoomService
	hub         *delivery.Hub
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, registry *chat.Registry, dispatcher *chat.Dispatcher, roomService *chat.RoomService, hub *delivery.Hub) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		registry:    registry,
		dispatcher:  dispatcher,
		roomService: roomService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.GetUserFromToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	// The connection token is issued here and identifies the socket for its
	// whole lifetime, in the registry and in the hub alike.
	connectionID := uuid.NewString()
	if err := h.registry.Register(r.Context(), connectionID, user.Username); err != nil {
		logger.Error("Registering connection for %s: %v", user.Username, err)
		conn.Close()
		return
	}

	client := delivery.NewClient(conn, connectionID, user.Username)
	h.hub.Attach(client)
	logger.Info("User %s connected as %s", user.Username, connectionID)

	go client.WritePump()
	go client.ReadPump(
		func(raw []byte) { h.handleEvent(client, raw) },
		func() {
			h.hub.Detach(connectionID)
			if err := h.registry.Unregister(context.Background(), connectionID); err != nil {
				logger.Error("Unregistering connection %s: %v", connectionID, err)
			}
			logger.Info("User %s disconnected (%s)", user.Username, connectionID)
		},
	)
}

func (h *WebSocketHandlers) handleEvent(client *delivery.Client, raw []byte) {
	ctx := context.Background()

	var event models.ClientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.sendError(client, "malformed event")
		return
	}

	switch event.Action {
	case models.ActionJoinChat:
		if err := h.registry.Join(ctx, client.ConnectionID, event.ChatID, client.UserID); err != nil {
			logger.Error("Join chat %s for %s: %v", event.ChatID, client.ConnectionID, err)
			h.sendError(client, errorMessage(err))
			return
		}
		logger.Info("Connection %s joined chat %s", client.ConnectionID, event.ChatID)

	case models.ActionSendMessage:
		if _, err := h.dispatcher.Send(ctx, event.ChatID, client.UserID, event.Message); err != nil {
			logger.Error("Send to chat %s from %s: %v", event.ChatID, client.UserID, err)
			h.sendError(client, errorMessage(err))
			return
		}
		// Activity bump is best effort; the message is already durable.
		if err := h.roomService.TouchActivity(ctx, event.ChatID); err != nil {
			logger.Debug("Touching chat %s activity: %v", event.ChatID, err)
		}

	default:
		h.sendError(client, "unknown action")
	}
}

func (h *WebSocketHandlers) sendError(client *delivery.Client, msg string) {
	payload, err := json.Marshal(models.ErrorFrame{Type: "error", Error: msg})
	if err != nil {
		return
	}
	client.Enqueue(payload)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return err.Error()
	case errors.Is(err, chat.ErrConnectionNotFound):
		return "connection not found"
	default:
		return "internal server error"
	}
}
