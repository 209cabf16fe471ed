package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"med-assistant/internal/conversation"
)

// PostgresStore shares sessions across replicas. Rows are deleted when the session ends.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewPostgres(dsn string, ttl time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db, ttl: ttl}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps concurrently starting replicas from racing on DDL.
	const lockID = 482915307

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another replica is migrating; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chat_turns (
			seq BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			speaker TEXT NOT NULL CHECK (speaker IN ('user', 'assistant')),
			text TEXT NOT NULL,
			at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS chat_turns_session_idx ON chat_turns (session_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context) (Session, error) {
	id := uuid.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO chat_sessions(id, created_at, expires_at) VALUES($1,$2,$3)`,
		id, now, now.Add(s.ttl))
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return Session{ID: id, CreatedAt: now, Log: conversation.NewLog(nil)}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM chat_sessions WHERE id=$1 AND expires_at > now()`, id).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT speaker, text, at FROM chat_turns WHERE session_id=$1 ORDER BY seq`, id)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		var t conversation.Turn
		var speaker string
		if err := rows.Scan(&speaker, &t.Text, &t.At); err != nil {
			return Session{}, err
		}
		t.Speaker = conversation.Speaker(speaker)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return Session{}, err
	}
	return Session{ID: id, CreatedAt: createdAt, Log: conversation.NewLog(turns)}, nil
}

func (s *PostgresStore) Append(ctx context.Context, id uuid.UUID, turns ...conversation.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET expires_at=$2 WHERE id=$1 AND expires_at > now()`,
		id, time.Now().UTC().Add(s.ttl))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	for _, t := range turns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_turns(session_id, speaker, text, at) VALUES($1,$2,$3,$4)`,
			id, string(t.Speaker), t.Text, t.At)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep deletes expired sessions; their turns go with them via ON DELETE CASCADE.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
