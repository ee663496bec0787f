package models

const EnvelopeTypeNewMessage = "newMessage"

// Envelope is the payload pushed to every live connection in a chat when a
// message is persisted. Field names are the wire contract with clients.
type Envelope struct {
	Type      string `json:"type"`
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	CreatedAt string `json:"createdAt"`
}

// ClientEvent is one inbound frame on the WebSocket.
type ClientEvent struct {
	Action  string `json:"action"`
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

const (
	ActionJoinChat    = "joinChat"
	ActionSendMessage = "sendMessage"
)

// ErrorFrame is sent back on a rejected event instead of dropping the socket.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
