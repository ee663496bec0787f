package models

import "time"

// Connection is one live registry row. The token is issued when the socket is
// accepted and never changes for the lifetime of the connection. ChatID stays
// empty until the client joins a chat.
type Connection struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	ChatID       string    `json:"chatId,omitempty"`
	ConnectedAt  int64     `json:"connectedAt"`
	ExpiresAt    time.Time `json:"-"`
}

type ChatRoom struct {
	ChatID       string    `json:"chatId"`
	Participants []string  `json:"participants"`
	ChatName     string    `json:"chatName"`
	ChatType     string    `json:"chatType"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Message keys on (chatId, timestamp); MessageID disambiguates two sends that
// land on the same millisecond and is only used for display and tie-breaking.
// Delivered and Read are written false and reserved for read receipts.
type Message struct {
	ChatID    string    `json:"chatId"`
	Timestamp int64     `json:"timestamp"`
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Delivered bool      `json:"delivered"`
	Read      bool      `json:"read"`
}

type CreateChatRequest struct {
	Participants []string `json:"participants"`
	ChatName     string   `json:"chatName"`
	ChatType     string   `json:"chatType"`
}

// PageKey is the continuation token for paginated history reads. It is the
// full sort key of the last returned row; paging on the timestamp alone
// would drop a same-millisecond sibling split across a page boundary.
type PageKey struct {
	Timestamp int64  `json:"timestamp"`
	MessageID string `json:"messageId"`
}

type MessagePage struct {
	Messages         []*Message `json:"messages"`
	LastEvaluatedKey *PageKey   `json:"lastEvaluatedKey,omitempty"`
}
