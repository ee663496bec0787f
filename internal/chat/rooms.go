package chat

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"chat-backend/internal/database"
	"chat-backend/internal/models"
)

const chatIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RoomService owns chat-room creation and listing. The fan-out core never
// consults rooms; membership there is derived from subscribed connections.
type RoomService struct {
	store database.RoomRepository
}

func NewRoomService(store database.RoomRepository) *RoomService {
	return &RoomService{store: store}
}

func (s *RoomService) CreateChat(ctx context.Context, req *models.CreateChatRequest) (*models.ChatRoom, error) {
	if len(req.Participants) < 2 {
		return nil, fmt.Errorf("%w: at least 2 participants required", ErrValidation)
	}

	chatType := req.ChatType
	if chatType == "" {
		chatType = "direct"
	}

	now := time.Now().UTC()
	room := &models.ChatRoom{
		ChatID:       newChatID(now),
		Participants: req.Participants,
		ChatName:     req.ChatName,
		ChatType:     chatType,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.store.CreateChat(ctx, room); err != nil {
		return nil, fmt.Errorf("%w: creating chat: %v", ErrStoreUnavailable, err)
	}
	return room, nil
}

func (s *RoomService) GetChat(ctx context.Context, chatID string) (*models.ChatRoom, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: chatId is required", ErrValidation)
	}

	room, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("chat %s not found: %w", chatID, err)
	}
	return room, nil
}

func (s *RoomService) ListUserChats(ctx context.Context, userID string) ([]*models.ChatRoom, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}

	rooms, err := s.store.ListUserChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing chats: %v", ErrStoreUnavailable, err)
	}
	return rooms, nil
}

// TouchActivity bumps the chat's last-activity timestamp. Best effort; the
// caller treats failures as non-fatal.
func (s *RoomService) TouchActivity(ctx context.Context, chatID string) error {
	return s.store.TouchChatActivity(ctx, chatID, time.Now().UTC())
}

func newChatID(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = chatIDAlphabet[rand.Intn(len(chatIDAlphabet))]
	}
	return fmt.Sprintf("chat-%d-%s", now.UnixMilli(), suffix)
}
