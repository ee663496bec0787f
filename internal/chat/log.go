package chat

import (
	"context"
	"fmt"
	"time"

	"chat-backend/internal/database"
	"chat-backend/internal/models"
)

const DefaultPageSize = 50

// MessageLog is the per-chat ordered log. Messages are keyed by
// (chatId, timestamp); within one chat the timestamp is the total order.
type MessageLog struct {
	store    database.MessageRepository
	pageSize int
}

func NewMessageLog(store database.MessageRepository, pageSize int) *MessageLog {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MessageLog{store: store, pageSize: pageSize}
}

// Append writes one message. The timestamp is the current time in
// milliseconds and the message id is derived from sender and timestamp, so
// two sends inside the same millisecond stay distinguishable. Persistence
// always precedes delivery; a failed append means nothing gets pushed.
func (l *MessageLog) Append(ctx context.Context, chatID, userID, body string) (*models.Message, error) {
	now := time.Now()
	msg := &models.Message{
		ChatID:    chatID,
		Timestamp: now.UnixMilli(),
		UserID:    userID,
		Body:      body,
		CreatedAt: now.UTC(),
		Delivered: false,
		Read:      false,
	}
	msg.MessageID = fmt.Sprintf("%s-%d", userID, msg.Timestamp)

	if err := l.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: appending message to chat %s: %v", ErrStoreUnavailable, chatID, err)
	}
	return msg, nil
}

// ReadPage reads at most limit messages strictly older than the exclusive
// start key (or the newest messages when beforeTS <= 0) and returns them
// oldest first. The returned key is the opaque continuation token for the
// next page; nil means the chat has no older messages. The token carries the
// full sort key, so two messages sharing a millisecond both survive a page
// boundary between them. A non-positive limit falls back to the configured
// page size.
func (l *MessageLog) ReadPage(ctx context.Context, chatID string, limit int, beforeTS int64, beforeID string) ([]*models.Message, *models.PageKey, error) {
	if chatID == "" {
		return nil, nil, fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	if limit <= 0 {
		limit = l.pageSize
	}

	// Fetch one extra row to learn whether an older page exists.
	rows, err := l.store.QueryMessages(ctx, chatID, limit+1, beforeTS, beforeID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading chat %s: %v", ErrStoreUnavailable, chatID, err)
	}

	var next *models.PageKey
	if len(rows) > limit {
		rows = rows[:limit]
		oldest := rows[len(rows)-1]
		next = &models.PageKey{Timestamp: oldest.Timestamp, MessageID: oldest.MessageID}
	}

	// Store order is newest first; callers see chronological order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	return rows, next, nil
}
