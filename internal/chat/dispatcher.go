package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chat-backend/internal/delivery"
	"chat-backend/internal/models"
	"chat-backend/pkg/logger"
)

const DefaultPushTimeout = 5 * time.Second

// Dispatcher is the fan-out path for new messages: persist first, then push
// the envelope to every live connection in the chat. Delivery is best effort
// per recipient and never rolls back persistence.
type Dispatcher struct {
	registry    *Registry
	log         *MessageLog
	channel     delivery.Channel
	pushTimeout time.Duration
}

func NewDispatcher(registry *Registry, log *MessageLog, channel delivery.Channel, pushTimeout time.Duration) *Dispatcher {
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	return &Dispatcher{
		registry:    registry,
		log:         log,
		channel:     channel,
		pushTimeout: pushTimeout,
	}
}

// Send validates the event, appends the message to the chat's log and fans
// it out. A store failure aborts the send; delivery failures do not — the
// caller learns whether the message was durably recorded, never whether
// every recipient got the push. A recipient that misses the push recovers
// the message through the history read on reconnect.
func (d *Dispatcher) Send(ctx context.Context, chatID, userID, body string) (*models.Message, error) {
	if chatID == "" || userID == "" || strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: chatId, userId and message are required", ErrValidation)
	}

	msg, err := d.log.Append(ctx, chatID, userID, body)
	if err != nil {
		return nil, err
	}

	d.fanOut(ctx, msg)
	return msg, nil
}

func (d *Dispatcher) fanOut(ctx context.Context, msg *models.Message) {
	conns, err := d.registry.ListLive(ctx, msg.ChatID)
	if err != nil {
		// The message is already durable; recipients catch up via history.
		logger.Error("Fan-out aborted for chat %s: %v", msg.ChatID, err)
		return
	}
	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(models.Envelope{
		Type:      models.EnvelopeTypeNewMessage,
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
		UserID:    msg.UserID,
		Message:   msg.Body,
		Timestamp: msg.Timestamp,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("Marshaling envelope for %s: %v", msg.MessageID, err)
		return
	}

	// No ordering is promised across recipients, so pushes run concurrently.
	// Each push is individually bounded so one unreachable recipient cannot
	// stall the rest.
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(connectionID string) {
			defer wg.Done()
			d.pushOne(ctx, connectionID, payload)
		}(conn.ConnectionID)
	}
	wg.Wait()
}

func (d *Dispatcher) pushOne(ctx context.Context, connectionID string, payload []byte) {
	pctx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()

	err := d.channel.Push(pctx, connectionID, payload)
	switch {
	case err == nil:

	case errors.Is(err, delivery.ErrGone):
		// Stale row: the transport no longer knows this connection. Prune it
		// so the next snapshot is clean.
		if uerr := d.registry.Unregister(context.Background(), connectionID); uerr != nil {
			logger.Error("Pruning stale connection %s: %v", connectionID, uerr)
		} else {
			logger.Debug("Pruned stale connection %s", connectionID)
		}

	default:
		// Transient: log and move on, no retry within this pass.
		logger.Error("Delivery to %s failed: %v", connectionID, err)
	}
}
