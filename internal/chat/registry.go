package chat

import (
	"context"
	"fmt"
	"time"

	"chat-backend/internal/database"
	"chat-backend/internal/models"
	"chat-backend/pkg/logger"
)

// Registry tracks live connections, their owning user and their current chat
// subscription. All state lives in the store; the registry holds no caches,
// so concurrent events synchronize only through single-row writes.
type Registry struct {
	store database.ConnectionRepository
	ttl   time.Duration
}

func NewRegistry(store database.ConnectionRepository, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl}
}

// Register creates the registry row for a freshly accepted connection. The
// row carries an expiry so that rooms with no traffic do not accumulate dead
// connections forever; correctness never depends on the expiry firing.
func (r *Registry) Register(ctx context.Context, connectionID, userID string) error {
	if connectionID == "" || userID == "" {
		return fmt.Errorf("%w: connectionId and userId are required", ErrValidation)
	}

	now := time.Now()
	conn := &models.Connection{
		ConnectionID: connectionID,
		UserID:       userID,
		ConnectedAt:  now.UnixMilli(),
		ExpiresAt:    now.Add(r.ttl),
	}

	if err := r.store.PutConnection(ctx, conn); err != nil {
		return fmt.Errorf("%w: registering connection %s: %v", ErrStoreUnavailable, connectionID, err)
	}
	return nil
}

// Unregister removes the row. Deleting an absent token is not an error, so
// disconnect handling and stale-connection pruning can race safely.
func (r *Registry) Unregister(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return fmt.Errorf("%w: connectionId is required", ErrValidation)
	}

	if err := r.store.DeleteConnection(ctx, connectionID); err != nil {
		return fmt.Errorf("%w: unregistering connection %s: %v", ErrStoreUnavailable, connectionID, err)
	}
	return nil
}

// Join subscribes the connection to a chat, replacing any previous
// subscription. A connection listens to at most one chat at a time;
// concurrent joins for the same token are last-write-wins.
func (r *Registry) Join(ctx context.Context, connectionID, chatID, userID string) error {
	if connectionID == "" || chatID == "" || userID == "" {
		return fmt.Errorf("%w: connectionId, chatId and userId are required", ErrValidation)
	}

	found, err := r.store.SetConnectionChat(ctx, connectionID, chatID, userID)
	if err != nil {
		return fmt.Errorf("%w: joining chat %s: %v", ErrStoreUnavailable, chatID, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}
	return nil
}

// ListLive returns a point-in-time snapshot of the connections subscribed to
// the chat. Connections may join or leave between snapshot and use, and a
// not-yet-reclaimed expired row may still show up; the dispatcher's failure
// handling tolerates both.
func (r *Registry) ListLive(ctx context.Context, chatID string) ([]*models.Connection, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: chatId is required", ErrValidation)
	}

	conns, err := r.store.ListChatConnections(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing connections for chat %s: %v", ErrStoreUnavailable, chatID, err)
	}
	return conns, nil
}

// RunSweeper reclaims expired rows in the background until ctx is cancelled.
// This is bounded cleanup only; stale connections in active chats are pruned
// lazily by the dispatcher long before their expiry.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.store.DeleteExpiredConnections(ctx, time.Now())
			if err != nil {
				logger.Error("Sweeping expired connections: %v", err)
				continue
			}
			if removed > 0 {
				logger.Debug("Swept %d expired connections", removed)
			}
		}
	}
}
