package lecture

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/token"
)

// ErrNotFound is returned when no lecture matches the id or token.
var ErrNotFound = errors.New("lecture not found")

// Lecture is a QR attendance session. It is never mutated after creation;
// a teacher wanting more time creates a new one.
type Lecture struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	Subject   string    `json:"subject"`
	QRToken   string    `json:"qr_token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists lectures.
type Store interface {
	Insert(ctx context.Context, lec Lecture) error
	Get(ctx context.Context, id string) (Lecture, error)
	GetByToken(ctx context.Context, qrToken string) (Lecture, error)
}

// Service creates and looks up lectures.
type Service struct {
	tokens     *token.Service
	store      Store
	defaultTTL time.Duration
}

// NewService creates a service backed by a store.
func NewService(tokens *token.Service, store Store, defaultTTL time.Duration) *Service {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &Service{tokens: tokens, store: store, defaultTTL: defaultTTL}
}

// Create issues a lecture-tagged token and persists the session. The stored
// expiry is the token's own embedded expiry, so the two can never disagree.
func (s *Service) Create(ctx context.Context, teacherID, subject string, ttl time.Duration) (Lecture, error) {
	if teacherID == "" || subject == "" {
		return Lecture{}, errors.New("teacher and subject required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	qrToken, expiresAt, err := s.tokens.Issue(token.Claims{
		Lecture:   true,
		TeacherID: teacherID,
		Subject:   subject,
	}, ttl)
	if err != nil {
		return Lecture{}, err
	}

	lec := Lecture{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		Subject:   subject,
		QRToken:   qrToken,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := s.store.Insert(ctx, lec); err != nil {
		return Lecture{}, err
	}
	return lec, nil
}

// Get returns a lecture by id.
func (s *Service) Get(ctx context.Context, id string) (Lecture, error) {
	return s.store.Get(ctx, id)
}

// GetByToken resolves a scanned QR token to its lecture.
func (s *Service) GetByToken(ctx context.Context, qrToken string) (Lecture, error) {
	return s.store.GetByToken(ctx, qrToken)
}
