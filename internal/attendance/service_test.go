package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/lecture"
	"rollcall/internal/token"
)

func newTestServices(t *testing.T) (*token.Service, *lecture.Service, *Service) {
	t.Helper()
	tokens := token.NewService("test-secret", "rollcall-test")
	lectures := lecture.NewService(tokens, lecture.NewMemoryStore(), 10*time.Minute)
	ledger := NewService(tokens, lectures, NewMemoryStore())
	return tokens, lectures, ledger
}

// seedExpiredLecture stores a lecture whose token expiry already passed.
func seedExpiredLecture(t *testing.T, tokens *token.Service, store *lecture.MemoryStore) lecture.Lecture {
	t.Helper()
	qrToken, expiresAt, err := tokens.Issue(token.Claims{Lecture: true, TeacherID: "teacher-1", Subject: "History"}, -2*time.Second)
	require.NoError(t, err)
	lec := lecture.Lecture{
		ID:        "lec-expired",
		TeacherID: "teacher-1",
		Subject:   "History",
		QRToken:   qrToken,
		CreatedAt: expiresAt.Add(-time.Minute),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, store.Insert(context.Background(), lec))
	return lec
}

func TestMarkLifecycle(t *testing.T) {
	ctx := context.Background()
	_, lectures, ledger := newTestServices(t)

	lec, err := lectures.Create(ctx, "teacher-1", "Math", 10*time.Minute)
	require.NoError(t, err)
	require.True(t, lec.ExpiresAt.After(lec.CreatedAt))

	base := time.Now()

	// Student A marks one minute in.
	ledger.now = func() time.Time { return base.Add(1 * time.Minute) }
	rec, err := ledger.Mark(ctx, lec.QRToken, "student-a")
	require.NoError(t, err)
	assert.Equal(t, lec.ID, rec.LectureID)
	assert.Equal(t, "student-a", rec.StudentID)

	// Second scan by the same student a minute later.
	ledger.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = ledger.Mark(ctx, lec.QRToken, "student-a")
	assert.ErrorIs(t, err, ErrDuplicateMark)

	records, err := ledger.ListByLecture(ctx, lec.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// A different student past the stored expiry.
	ledger.now = func() time.Time { return base.Add(11 * time.Minute) }
	_, err = ledger.Mark(ctx, lec.QRToken, "student-b")
	assert.ErrorIs(t, err, token.ErrExpired)

	records, err = ledger.ListByLecture(ctx, lec.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMarkExpiredToken(t *testing.T) {
	ctx := context.Background()
	tokens := token.NewService("test-secret", "rollcall-test")
	store := lecture.NewMemoryStore()
	lectures := lecture.NewService(tokens, store, 10*time.Minute)
	ledger := NewService(tokens, lectures, NewMemoryStore())

	lec := seedExpiredLecture(t, tokens, store)

	_, err := ledger.Mark(ctx, lec.QRToken, "student-a")
	assert.ErrorIs(t, err, token.ErrExpired)
}

func TestMarkRejectsForeignToken(t *testing.T) {
	ctx := context.Background()
	tokens, _, ledger := newTestServices(t)

	// Validly signed, but not a lecture token.
	foreign, _, err := tokens.Issue(token.Claims{Lecture: false, Subject: "Math"}, time.Minute)
	require.NoError(t, err)

	_, err = ledger.Mark(ctx, foreign, "student-a")
	assert.ErrorIs(t, err, ErrNotLectureToken)
}

func TestMarkUnknownLecture(t *testing.T) {
	ctx := context.Background()
	tokens, _, ledger := newTestServices(t)

	// Lecture-tagged token that was never bound to a stored session.
	orphan, _, err := tokens.Issue(token.Claims{Lecture: true, TeacherID: "t-1"}, time.Minute)
	require.NoError(t, err)

	_, err = ledger.Mark(ctx, orphan, "student-a")
	assert.ErrorIs(t, err, lecture.ErrNotFound)
}

func TestMarkTamperedToken(t *testing.T) {
	ctx := context.Background()
	_, lectures, ledger := newTestServices(t)

	lec, err := lectures.Create(ctx, "teacher-1", "Math", time.Minute)
	require.NoError(t, err)

	_, err = ledger.Mark(ctx, lec.QRToken+"x", "student-a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateMark)
	assert.NotErrorIs(t, err, token.ErrExpired)
}

func TestMarkConcurrentSameStudent(t *testing.T) {
	ctx := context.Background()
	_, lectures, ledger := newTestServices(t)

	lec, err := lectures.Create(ctx, "teacher-1", "Physics", 10*time.Minute)
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Mark(ctx, lec.QRToken, "student-a")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateMark)
		}
	}
	assert.Equal(t, 1, succeeded)

	records, err := ledger.ListByLecture(ctx, lec.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListByStudent(t *testing.T) {
	ctx := context.Background()
	_, lectures, ledger := newTestServices(t)

	first, err := lectures.Create(ctx, "teacher-1", "Math", time.Minute)
	require.NoError(t, err)
	second, err := lectures.Create(ctx, "teacher-2", "History", time.Minute)
	require.NoError(t, err)

	_, err = ledger.Mark(ctx, first.QRToken, "student-a")
	require.NoError(t, err)
	_, err = ledger.Mark(ctx, second.QRToken, "student-a")
	require.NoError(t, err)
	_, err = ledger.Mark(ctx, first.QRToken, "student-b")
	require.NoError(t, err)

	mine, err := ledger.ListByStudent(ctx, "student-a")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
