package attendance

import (
	"context"
	"errors"
	"time"

	"rollcall/internal/lecture"
	"rollcall/internal/token"
)

var (
	// ErrDuplicateMark means this student already marked this lecture. The
	// earlier record stands; no second row is written.
	ErrDuplicateMark = errors.New("attendance already marked")

	// ErrNotLectureToken means the token verified but is not a lecture QR
	// token. Foreign tokens are rejected even when validly signed.
	ErrNotLectureToken = errors.New("not a lecture token")
)

// Record is one attendance entry, unique per (lecture, student).
type Record struct {
	LectureID string    `json:"lecture_id"`
	StudentID string    `json:"student_id"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Store persists attendance records. Insert must enforce the
// (lecture, student) uniqueness atomically; the service never does a
// check-then-insert.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	ListByLecture(ctx context.Context, lectureID string) ([]Record, error)
	ListByStudent(ctx context.Context, studentID string) ([]Record, error)
}

// Service verifies scanned tokens and commits attendance records.
type Service struct {
	tokens   *token.Service
	lectures *lecture.Service
	store    Store
	now      func() time.Time
}

// NewService creates a ledger service.
func NewService(tokens *token.Service, lectures *lecture.Service, store Store) *Service {
	return &Service{tokens: tokens, lectures: lectures, store: store, now: time.Now}
}

// Mark verifies a scanned QR token and records attendance for the student.
// Failures are typed: token.ErrExpired, token.ErrSignatureInvalid,
// token.ErrMalformed, ErrNotLectureToken, lecture.ErrNotFound and
// ErrDuplicateMark.
func (s *Service) Mark(ctx context.Context, qrToken, studentID string) (Record, error) {
	if studentID == "" {
		return Record{}, errors.New("student id required")
	}

	claims, err := s.tokens.Verify(qrToken)
	if err != nil {
		return Record{}, err
	}
	if !claims.Lecture {
		return Record{}, ErrNotLectureToken
	}

	lec, err := s.lectures.GetByToken(ctx, qrToken)
	if err != nil {
		return Record{}, err
	}

	// Verify checked the token's embedded expiry; the stored instant is the
	// same value, checked against the service clock.
	if s.now().After(lec.ExpiresAt) {
		return Record{}, token.ErrExpired
	}

	rec := Record{
		LectureID: lec.ID,
		StudentID: studentID,
		MarkedAt:  s.now().UTC(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListByLecture returns every record for a lecture. Ownership is checked by
// the HTTP layer.
func (s *Service) ListByLecture(ctx context.Context, lectureID string) ([]Record, error) {
	return s.store.ListByLecture(ctx, lectureID)
}

// ListByStudent returns a student's own attendance history.
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	return s.store.ListByStudent(ctx, studentID)
}
