package attendance

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Store for dev and testing. The single mutex
// makes Insert's existence check and write one atomic step.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record // key: lectureID + "\x00" + studentID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func key(lectureID, studentID string) string {
	return lectureID + "\x00" + studentID
}

// Insert stores a record, refusing duplicates for the same (lecture, student).
func (s *MemoryStore) Insert(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.LectureID, rec.StudentID)
	if _, ok := s.recs[k]; ok {
		return ErrDuplicateMark
	}
	s.recs[k] = rec
	return nil
}

// ListByLecture returns all records for a lecture.
func (s *MemoryStore) ListByLecture(ctx context.Context, lectureID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, rec := range s.recs {
		if rec.LectureID == lectureID {
			res = append(res, rec)
		}
	}
	return res, nil
}

// ListByStudent returns all records for a student.
func (s *MemoryStore) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, rec := range s.recs {
		if rec.StudentID == studentID {
			res = append(res, rec)
		}
	}
	return res, nil
}
