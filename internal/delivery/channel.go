// Package delivery pushes serialized envelopes to live WebSocket
// connections. It knows nothing about chats or messages; the dispatcher
// hands it an opaque payload and a connection token.
package delivery

import (
	"context"
	"errors"
)

// ErrGone reports that the target connection no longer exists. The caller is
// expected to prune the connection from the registry. Any other push error
// is transient and must not abort the caller's fan-out.
var ErrGone = errors.New("connection gone")

type Channel interface {
	Push(ctx context.Context, connectionID string, payload []byte) error
}
