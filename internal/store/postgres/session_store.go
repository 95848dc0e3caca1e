// Package postgres persists the durable session record: chat transcripts
// and the participant roster that outlive any room instance.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tutorlink/live/internal/domain"
)

type Config struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	PingTimeout  time.Duration `mapstructure:"ping_timeout"`
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pingTimeout := cfg.PingTimeout
	if pingTimeout == 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) AppendChatMessage(ctx context.Context, msg domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO session_chat_messages (
            session_id, sender_id, display_name, body, sent_at
        ) VALUES ($1, $2, $3, $4, $5)
    `,
		string(msg.RoomID),
		string(msg.FromUserID),
		msg.DisplayName,
		msg.Text,
		msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

func (s *SessionStore) DurableParticipants(ctx context.Context, room domain.RoomID) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT user_id, display_name
        FROM session_participants
        WHERE session_id = $1
        ORDER BY joined_at
    `, string(room))
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return out, nil
}
