package bot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Session is one chat's conversation state between turns.
type Session struct {
	ChatID    int64
	State     State
	Payload   Payload
	UpdatedAt time.Time
}

// SessionStore persists conversation state between turns. Get returns a
// fresh idle session when the chat has none yet.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Put(ctx context.Context, session *Session) error
}

// SQLiteSessionStore stores sessions in the bot_sessions table.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore creates a session store backed by SQLite.
func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// Get loads a chat's session, or a fresh idle one when none exists.
func (s *SQLiteSessionStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	query := `SELECT state, payload, updated_at FROM bot_sessions WHERE chat_id = ?`

	var (
		state      string
		rawPayload string
		updatedAt  string
	)
	err := s.db.QueryRowContext(ctx, query, chatID).Scan(&state, &rawPayload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &Session{ChatID: chatID, State: StateIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session for chat %d: %w", chatID, err)
	}

	session := &Session{ChatID: chatID, State: State(state)}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		session.UpdatedAt = ts
	}
	if rawPayload != "" {
		if err := json.Unmarshal([]byte(rawPayload), &session.Payload); err != nil {
			// A corrupt payload should not wedge the chat forever.
			session.State = StateIdle
			session.Payload = Payload{}
		}
	}
	return session, nil
}

// Put rewrites a chat's session.
func (s *SQLiteSessionStore) Put(ctx context.Context, session *Session) error {
	rawPayload, err := json.Marshal(session.Payload)
	if err != nil {
		return fmt.Errorf("encoding session payload: %w", err)
	}

	query := `
		INSERT INTO bot_sessions (chat_id, state, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			state = excluded.state,
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, session.ChatID, string(session.State), string(rawPayload),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving session for chat %d: %w", session.ChatID, err)
	}
	return nil
}
