package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Migrate creates the schema when it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT UNIQUE NOT NULL,
		role        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS lectures (
		id          TEXT PRIMARY KEY,
		teacher_id  TEXT NOT NULL,
		subject     TEXT NOT NULL,
		qr_token    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lectures_qr_token ON lectures(qr_token);

	CREATE TABLE IF NOT EXISTS attendance_records (
		lecture_id  TEXT NOT NULL REFERENCES lectures(id),
		student_id  TEXT NOT NULL,
		marked_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (lecture_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id);

	CREATE TABLE IF NOT EXISTS passkey_credentials (
		user_id        TEXT PRIMARY KEY REFERENCES users(id),
		credential_id  TEXT NOT NULL,
		credential     JSONB NOT NULL,
		sign_count     BIGINT NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}
