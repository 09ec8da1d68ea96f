package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code raised by the
// (lecture_id, student_id) unique index.
const uniqueViolation = "23505"

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a record. The unique index makes the duplicate check atomic;
// a violation surfaces as ErrDuplicateMark.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (lecture_id, student_id, marked_at)
		VALUES ($1,$2,$3)
	`, rec.LectureID, rec.StudentID, rec.MarkedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateMark
		}
		return err
	}
	return nil
}

// ListByLecture returns all records for a lecture, newest first.
func (r *Repository) ListByLecture(ctx context.Context, lectureID string) ([]Record, error) {
	return r.list(ctx, `
		SELECT lecture_id, student_id, marked_at
		FROM attendance_records WHERE lecture_id = $1
		ORDER BY marked_at DESC
	`, lectureID)
}

// ListByStudent returns all records for a student, newest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	return r.list(ctx, `
		SELECT lecture_id, student_id, marked_at
		FROM attendance_records WHERE student_id = $1
		ORDER BY marked_at DESC
	`, studentID)
}

func (r *Repository) list(ctx context.Context, query, arg string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.LectureID, &rec.StudentID, &rec.MarkedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
