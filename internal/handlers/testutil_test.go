package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-backend/internal/auth"
	"chat-backend/internal/chat"
	"chat-backend/internal/config"
	"chat-backend/internal/delivery"
	"chat-backend/internal/models"
)

// fakeStore is an in-memory store for handler tests, duplicated from the
// chat package tests since test helpers do not cross packages.
type fakeStore struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*models.User
	conns  map[string]*models.Connection
	msgs   []*models.Message
	rooms  map[string]*models.ChatRoom
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*models.User),
		conns: make(map[string]*models.Connection),
		rooms: make(map[string]*models.ChatRoom),
	}
}

func (s *fakeStore) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return nil, errors.New("username taken")
	}
	s.nextID++
	user := &models.User{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[username] = user
	cp := *user
	return &cp, nil
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, errors.New("user not found")
	}
	cp := *user
	return &cp, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			cp := *user
			return &cp, nil
		}
	}
	return nil, errors.New("user not found")
}

func (s *fakeStore) PutConnection(_ context.Context, conn *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *conn
	s.conns[conn.ConnectionID] = &cp
	return nil
}

func (s *fakeStore) DeleteConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connectionID)
	return nil
}

func (s *fakeStore) SetConnectionChat(_ context.Context, connectionID, chatID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[connectionID]
	if !ok {
		return false, nil
	}
	conn.ChatID = chatID
	conn.UserID = userID
	return true, nil
}

func (s *fakeStore) ListChatConnections(_ context.Context, chatID string) ([]*models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Connection
	for _, conn := range s.conns {
		if conn.ChatID == chatID {
			cp := *conn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteExpiredConnections(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, conn := range s.conns {
		if conn.ExpiresAt.Before(now) {
			delete(s.conns, id)
			removed++
		}
	}
	return removed, nil
}

func (s *fakeStore) InsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *fakeStore) QueryMessages(_ context.Context, chatID string, limit int, beforeTS int64, beforeID string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, msg := range s.msgs {
		if msg.ChatID != chatID {
			continue
		}
		if beforeTS > 0 {
			if msg.Timestamp > beforeTS {
				continue
			}
			if msg.Timestamp == beforeTS && (beforeID == "" || msg.MessageID >= beforeID) {
				continue
			}
		}
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].MessageID > out[j].MessageID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) CreateChat(_ context.Context, room *models.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *room
	s.rooms[room.ChatID] = &cp
	return nil
}

func (s *fakeStore) GetChat(_ context.Context, chatID string) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[chatID]
	if !ok {
		return nil, errors.New("chat not found")
	}
	cp := *room
	return &cp, nil
}

func (s *fakeStore) ListUserChats(_ context.Context, userID string) ([]*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ChatRoom
	for _, room := range s.rooms {
		for _, p := range room.Participants {
			if p == userID {
				cp := *room
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) TouchChatActivity(_ context.Context, chatID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[chatID]; ok {
		room.LastActivity = at
	}
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) seedMessage(chatID, userID, body string, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, &models.Message{
		ChatID:    chatID,
		Timestamp: ts,
		MessageID: fmt.Sprintf("%s-%d", userID, ts),
		UserID:    userID,
		Body:      body,
		CreatedAt: time.UnixMilli(ts).UTC(),
	})
}

func (s *fakeStore) chatOf(connectionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[connectionID]
	if !ok {
		return "", false
	}
	return conn.ChatID, true
}

func (s *fakeStore) connectionsInChat(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, conn := range s.conns {
		if conn.ChatID == chatID {
			count++
		}
	}
	return count
}

// testEnv wires the full handler stack over a fakeStore, mirroring the
// wiring done by cmd/server.
type testEnv struct {
	store       *fakeStore
	authService *auth.Service
	server      *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:    []byte("test-secret-0123456789abcdef"),
			ExpiresIn: time.Hour,
		},
		Chat: config.ChatConfig{
			ConnectionTTL:   24 * time.Hour,
			PushTimeout:     time.Second,
			HistoryPageSize: 50,
		},
	}

	authService := auth.NewService(store, cfg)
	registry := chat.NewRegistry(store, cfg.Chat.ConnectionTTL)
	messageLog := chat.NewMessageLog(store, cfg.Chat.HistoryPageSize)
	roomService := chat.NewRoomService(store)
	hub := delivery.NewHub()
	dispatcher := chat.NewDispatcher(registry, messageLog, hub, cfg.Chat.PushTimeout)

	authHandlers := NewAuthHandlers(authService)
	chatHandlers := NewChatHandlers(roomService, messageLog, authService)
	wsHandlers := NewWebSocketHandlers(authService, registry, dispatcher, roomService, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/register", authHandlers.Register)
	mux.HandleFunc("/chats", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			chatHandlers.ListChats(w, r)
		case http.MethodPost:
			chatHandlers.CreateChat(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/chats/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) == 4 && parts[3] == "messages" && r.Method == http.MethodGet {
			chatHandlers.GetChatMessages(w, r, parts[2])
			return
		}
		if len(parts) == 3 && r.Method == http.MethodGet {
			chatHandlers.GetChat(w, r, parts[2])
			return
		}
		http.Error(w, "endpoint not found", http.StatusNotFound)
	})
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:       store,
		authService: authService,
		server:      server,
	}
}

// registerUser creates an account and returns its JWT.
func (e *testEnv) registerUser(t *testing.T, username string) string {
	t.Helper()
	resp, err := e.authService.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("registering %s failed: %v", username, err)
	}
	return resp.Token
}
