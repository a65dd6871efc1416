package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avoronin/relaychat/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		online INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL UNIQUE,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		body TEXT NOT NULL,
		sent_at INTEGER NOT NULL,
		read INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_pair_fwd ON messages(sender_id, receiver_id, sent_at);
	CREATE INDEX IF NOT EXISTS idx_messages_pair_rev ON messages(receiver_id, sender_id, sent_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, password_hash, online, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.PasswordHash, boolToInt(user.Online),
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `user_id, username, password_hash, online, last_seen_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	var online int
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &user.PasswordHash,
		&online, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Online = online != 0
	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

// ListUsers returns all registered users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`
	return s.queryUsers(ctx, query)
}

// ListOnlineUsers returns users whose durable online flag is set.
func (s *SQLiteStore) ListOnlineUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE online = 1 ORDER BY username`
	return s.queryUsers(ctx, query)
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// SetPresence updates the durable online flag and last-seen timestamp.
func (s *SQLiteStore) SetPresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	query := `UPDATE users SET online = ?, last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, boolToInt(online), lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update presence: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateMessage persists a new message record.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	query := `
	INSERT INTO messages (message_id, sender_id, receiver_id, body, sent_at, read)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		msg.MessageID, msg.SenderID, msg.ReceiverID, msg.Body,
		msg.SentAt.UnixMilli(), boolToInt(msg.Read),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

const messageColumns = `m.message_id, m.sender_id, m.receiver_id, m.body, m.sent_at, m.read,
	       COALESCE(su.username, ''), COALESCE(ru.username, '')`

const messageJoins = `
	FROM messages m
	LEFT JOIN users su ON su.user_id = m.sender_id
	LEFT JOIN users ru ON ru.user_id = m.receiver_id`

func scanMessage(row interface{ Scan(...any) error }) (*domain.Message, error) {
	var msg domain.Message
	var read int
	var sentAt int64

	err := row.Scan(
		&msg.MessageID, &msg.SenderID, &msg.ReceiverID, &msg.Body,
		&sentAt, &read, &msg.SenderName, &msg.ReceiverName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message row: %w", err)
	}

	msg.Read = read != 0
	msg.SentAt = time.UnixMilli(sentAt)
	return &msg, nil
}

// GetMessage retrieves a message by id.
func (s *SQLiteStore) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + messageJoins + ` WHERE m.message_id = ?`
	return scanMessage(s.db.QueryRowContext(ctx, query, messageID))
}

// ListConversation returns all messages between the two users, oldest first.
// The seq column breaks ties between messages stored at the same millisecond.
func (s *SQLiteStore) ListConversation(ctx context.Context, userID, otherUserID string) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + messageJoins + `
	WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
	ORDER BY m.sent_at, m.seq`

	rows, err := s.db.QueryContext(ctx, query, userID, otherUserID, otherUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}
	return messages, nil
}

// MarkMessageRead sets the read flag on a message.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, messageID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteMessage permanently removes a message record.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, messageID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
