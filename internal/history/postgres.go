package history

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store on a login_history table.
type PostgresStore struct {
	db *sql.DB
}

// Connect opens a PostgreSQL connection and verifies it.
func Connect(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewPostgresStore creates the store and bootstraps its schema.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS login_history (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_login_history_user_time
			ON login_history (username, created_at DESC, id DESC);
	`)
	return err
}

// Append inserts one attempt. Rows are never updated or deleted.
func (s *PostgresStore) Append(ctx context.Context, attempt LoginAttempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO login_history (username, status, message, created_at)
		 VALUES ($1, $2, $3, $4)`,
		attempt.Username,
		attempt.Status,
		attempt.Message,
		attempt.Timestamp,
	)
	return err
}

// RecentByUsername returns up to limit attempts for the user, newest
// first. Equal timestamps fall back to insertion order via the id.
func (s *PostgresStore) RecentByUsername(ctx context.Context, username string, limit int) ([]LoginAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, status, message, created_at
		 FROM login_history
		 WHERE username = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		username, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []LoginAttempt
	for rows.Next() {
		var a LoginAttempt
		if err := rows.Scan(&a.ID, &a.Username, &a.Status, &a.Message, &a.Timestamp); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
