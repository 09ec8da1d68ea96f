package lecture

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists lectures in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new lecture row.
func (r *Repository) Insert(ctx context.Context, lec Lecture) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lectures (id, teacher_id, subject, qr_token, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, lec.ID, lec.TeacherID, lec.Subject, lec.QRToken, lec.CreatedAt, lec.ExpiresAt)
	return err
}

// Get returns a single lecture by id.
func (r *Repository) Get(ctx context.Context, id string) (Lecture, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, subject, qr_token, created_at, expires_at
		FROM lectures WHERE id = $1
	`, id)
	return scanLecture(row)
}

// GetByToken returns the lecture carrying the given QR token.
func (r *Repository) GetByToken(ctx context.Context, qrToken string) (Lecture, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, subject, qr_token, created_at, expires_at
		FROM lectures WHERE qr_token = $1
	`, qrToken)
	return scanLecture(row)
}

func scanLecture(row *sql.Row) (Lecture, error) {
	var lec Lecture
	err := row.Scan(&lec.ID, &lec.TeacherID, &lec.Subject, &lec.QRToken, &lec.CreatedAt, &lec.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Lecture{}, ErrNotFound
	}
	if err != nil {
		return Lecture{}, err
	}
	return lec, nil
}
