package database

import (
	"context"
	"time"

	"chat-backend/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type ConnectionRepository interface {
	PutConnection(ctx context.Context, conn *models.Connection) error
	DeleteConnection(ctx context.Context, connectionID string) error
	// SetConnectionChat tags an existing row with a chat. Returns false when
	// no row exists for the token.
	SetConnectionChat(ctx context.Context, connectionID, chatID, userID string) (bool, error)
	ListChatConnections(ctx context.Context, chatID string) ([]*models.Connection, error)
	DeleteExpiredConnections(ctx context.Context, now time.Time) (int64, error)
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	// QueryMessages returns up to limit messages for the chat, newest first,
	// restricted to rows strictly before the exclusive start key when
	// beforeTS > 0. An empty beforeID excludes the whole beforeTS
	// millisecond; a non-empty one resumes inside it.
	QueryMessages(ctx context.Context, chatID string, limit int, beforeTS int64, beforeID string) ([]*models.Message, error)
}

type RoomRepository interface {
	CreateChat(ctx context.Context, room *models.ChatRoom) error
	GetChat(ctx context.Context, chatID string) (*models.ChatRoom, error)
	ListUserChats(ctx context.Context, userID string) ([]*models.ChatRoom, error)
	TouchChatActivity(ctx context.Context, chatID string, at time.Time) error
}

type Store interface {
	UserRepository
	ConnectionRepository
	MessageRepository
	RoomRepository
	Close() error
}
