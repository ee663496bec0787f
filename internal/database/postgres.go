package database

import (
	"context"
	"fmt"
	"time"

	"chat-backend/internal/models"
	"chat-backend/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Connected to database successfully")
	return db, nil
}

func (db *PostgresDB) initSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS connections (
			connection_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			chat_id TEXT,
			connected_at BIGINT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_rooms (
			chat_id TEXT PRIMARY KEY,
			participants TEXT[] NOT NULL,
			chat_name TEXT NOT NULL,
			chat_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			last_activity TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			chat_id TEXT NOT NULL,
			ts BIGINT NOT NULL,
			message_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			delivered BOOLEAN NOT NULL DEFAULT FALSE,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (chat_id, ts, message_id)
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation
func (db *PostgresDB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, username, created_at`

	user := &models.User{PasswordHash: passwordHash}
	err := db.pool.QueryRow(ctx, query, username, passwordHash).Scan(
		&user.ID, &user.Username, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Connection Repository Implementation
func (db *PostgresDB) PutConnection(ctx context.Context, conn *models.Connection) error {
	query := `
		INSERT INTO connections (connection_id, user_id, connected_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (connection_id)
		DO UPDATE SET user_id = EXCLUDED.user_id, connected_at = EXCLUDED.connected_at, expires_at = EXCLUDED.expires_at`

	_, err := db.pool.Exec(ctx, query, conn.ConnectionID, conn.UserID, conn.ConnectedAt, conn.ExpiresAt)
	return err
}

func (db *PostgresDB) DeleteConnection(ctx context.Context, connectionID string) error {
	query := `DELETE FROM connections WHERE connection_id = $1`
	_, err := db.pool.Exec(ctx, query, connectionID)
	return err
}

func (db *PostgresDB) SetConnectionChat(ctx context.Context, connectionID, chatID, userID string) (bool, error) {
	query := `UPDATE connections SET chat_id = $2, user_id = $3 WHERE connection_id = $1`

	tag, err := db.pool.Exec(ctx, query, connectionID, chatID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (db *PostgresDB) ListChatConnections(ctx context.Context, chatID string) ([]*models.Connection, error) {
	query := `
		SELECT connection_id, user_id, COALESCE(chat_id, ''), connected_at, expires_at
		FROM connections
		WHERE chat_id = $1`

	rows, err := db.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		conn := &models.Connection{}
		if err := rows.Scan(&conn.ConnectionID, &conn.UserID, &conn.ChatID, &conn.ConnectedAt, &conn.ExpiresAt); err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

func (db *PostgresDB) DeleteExpiredConnections(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM connections WHERE expires_at < $1`

	tag, err := db.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Message Repository Implementation
func (db *PostgresDB) InsertMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (chat_id, ts, message_id, user_id, body, created_at, delivered, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := db.pool.Exec(ctx, query,
		msg.ChatID, msg.Timestamp, msg.MessageID, msg.UserID, msg.Body, msg.CreatedAt, msg.Delivered, msg.Read,
	)
	return err
}

func (db *PostgresDB) QueryMessages(ctx context.Context, chatID string, limit int, beforeTS int64, beforeID string) ([]*models.Message, error) {
	query := `
		SELECT chat_id, ts, message_id, user_id, body, created_at, delivered, read
		FROM messages
		WHERE chat_id = $1
		  AND ($2::BIGINT <= 0 OR ts < $2 OR (ts = $2 AND $3::TEXT <> '' AND message_id < $3))
		ORDER BY ts DESC, message_id DESC
		LIMIT $4`

	rows, err := db.pool.Query(ctx, query, chatID, beforeTS, beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ChatID, &msg.Timestamp, &msg.MessageID, &msg.UserID, &msg.Body, &msg.CreatedAt, &msg.Delivered, &msg.Read); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// Room Repository Implementation
func (db *PostgresDB) CreateChat(ctx context.Context, room *models.ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (chat_id, participants, chat_name, chat_type, created_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := db.pool.Exec(ctx, query,
		room.ChatID, room.Participants, room.ChatName, room.ChatType, room.CreatedAt, room.LastActivity,
	)
	return err
}

func (db *PostgresDB) GetChat(ctx context.Context, chatID string) (*models.ChatRoom, error) {
	query := `
		SELECT chat_id, participants, chat_name, chat_type, created_at, last_activity
		FROM chat_rooms WHERE chat_id = $1`

	room := &models.ChatRoom{}
	err := db.pool.QueryRow(ctx, query, chatID).Scan(
		&room.ChatID, &room.Participants, &room.ChatName, &room.ChatType, &room.CreatedAt, &room.LastActivity,
	)
	if err != nil {
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) ListUserChats(ctx context.Context, userID string) ([]*models.ChatRoom, error) {
	query := `
		SELECT chat_id, participants, chat_name, chat_type, created_at, last_activity
		FROM chat_rooms
		WHERE $1 = ANY(participants)
		ORDER BY last_activity DESC`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.ChatRoom
	for rows.Next() {
		room := &models.ChatRoom{}
		if err := rows.Scan(&room.ChatID, &room.Participants, &room.ChatName, &room.ChatType, &room.CreatedAt, &room.LastActivity); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PostgresDB) TouchChatActivity(ctx context.Context, chatID string, at time.Time) error {
	query := `UPDATE chat_rooms SET last_activity = $2 WHERE chat_id = $1`
	_, err := db.pool.Exec(ctx, query, chatID, at)
	return err
}
