package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"chat-backend/internal/models"
)

// memStore is an in-memory stand-in for the Postgres store, shared by the
// tests in this package. Error fields inject store failures.
type memStore struct {
	mu    sync.Mutex
	conns map[string]*models.Connection
	msgs  []*models.Message
	rooms map[string]*models.ChatRoom

	connErr error
	msgErr  error
	roomErr error
}

func newMemStore() *memStore {
	return &memStore{
		conns: make(map[string]*models.Connection),
		rooms: make(map[string]*models.ChatRoom),
	}
}

func (s *memStore) PutConnection(_ context.Context, conn *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connErr != nil {
		return s.connErr
	}
	cp := *conn
	s.conns[conn.ConnectionID] = &cp
	return nil
}

func (s *memStore) DeleteConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connErr != nil {
		return s.connErr
	}
	delete(s.conns, connectionID)
	return nil
}

func (s *memStore) SetConnectionChat(_ context.Context, connectionID, chatID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connErr != nil {
		return false, s.connErr
	}
	conn, ok := s.conns[connectionID]
	if !ok {
		return false, nil
	}
	conn.ChatID = chatID
	conn.UserID = userID
	return true, nil
}

func (s *memStore) ListChatConnections(_ context.Context, chatID string) ([]*models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connErr != nil {
		return nil, s.connErr
	}
	var out []*models.Connection
	for _, conn := range s.conns {
		if conn.ChatID == chatID {
			cp := *conn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) DeleteExpiredConnections(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connErr != nil {
		return 0, s.connErr
	}
	var removed int64
	for id, conn := range s.conns {
		if conn.ExpiresAt.Before(now) {
			delete(s.conns, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) InsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.msgErr != nil {
		return s.msgErr
	}
	cp := *msg
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *memStore) QueryMessages(_ context.Context, chatID string, limit int, beforeTS int64, beforeID string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.msgErr != nil {
		return nil, s.msgErr
	}
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

func (s *memStore) CreateChat(_ context.Context, room *models.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomErr != nil {
		return s.roomErr
	}
	cp := *room
	s.rooms[room.ChatID] = &cp
	return nil
}

func (s *memStore) GetChat(_ context.Context, chatID string) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomErr != nil {
		return nil, s.roomErr
	}
	room, ok := s.rooms[chatID]
	if !ok {
		return nil, errors.New("chat not found")
	}
	cp := *room
	return &cp, nil
}

func (s *memStore) ListUserChats(_ context.Context, userID string) ([]*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomErr != nil {
		return nil, s.roomErr
	}
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

func (s *memStore) TouchChatActivity(_ context.Context, chatID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomErr != nil {
		return s.roomErr
	}
	if room, ok := s.rooms[chatID]; ok {
		room.LastActivity = at
	}
	return nil
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func (s *memStore) addMessage(chatID, userID, body string, ts int64) {
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
