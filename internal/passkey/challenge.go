package passkey

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// ChallengeStore holds the in-flight ceremony state keyed by subject. At most
// one challenge is outstanding per subject; Put overwrites. Take must
// atomically read-and-remove so two concurrent finish attempts cannot both
// observe the same challenge.
type ChallengeStore interface {
	Put(ctx context.Context, subjectID string, data *webauthn.SessionData) error
	Take(ctx context.Context, subjectID string) (*webauthn.SessionData, error)
}

type challengeEntry struct {
	data      *webauthn.SessionData
	createdAt time.Time
}

// MemoryChallengeStore is a mutex-guarded map with TTL eviction.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	entries map[string]challengeEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryChallengeStore creates a store whose entries expire after ttl.
func NewMemoryChallengeStore(ttl time.Duration) *MemoryChallengeStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryChallengeStore{
		entries: make(map[string]challengeEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a challenge, invalidating any prior one for the subject.
func (s *MemoryChallengeStore) Put(ctx context.Context, subjectID string, data *webauthn.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[subjectID] = challengeEntry{data: data, createdAt: s.now()}
	return nil
}

// Take removes and returns the subject's challenge. Expired entries count as
// absent. The lookup and delete happen under one lock.
func (s *MemoryChallengeStore) Take(ctx context.Context, subjectID string) (*webauthn.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[subjectID]
	if !ok {
		return nil, ErrNoPendingChallenge
	}
	delete(s.entries, subjectID)
	if s.now().Sub(entry.createdAt) > s.ttl {
		return nil, ErrNoPendingChallenge
	}
	return entry.data, nil
}

// Cleanup sweeps expired entries and returns how many were removed.
func (s *MemoryChallengeStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.Sub(entry.createdAt) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of outstanding challenges.
func (s *MemoryChallengeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisChallengeStore keeps challenges in Redis so multiple API nodes share
// one outstanding challenge per subject. GETDEL makes Take atomic; expiry is
// Redis-native.
type RedisChallengeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChallengeStore creates a Redis-backed store.
func NewRedisChallengeStore(client *redis.Client, ttl time.Duration) *RedisChallengeStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisChallengeStore{client: client, ttl: ttl}
}

func challengeKey(subjectID string) string {
	return "rollcall:challenge:" + subjectID
}

// Put stores a challenge with the store's TTL, overwriting any prior one.
func (s *RedisChallengeStore) Put(ctx context.Context, subjectID string, data *webauthn.SessionData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, challengeKey(subjectID), payload, s.ttl).Err()
}

// Take atomically removes and returns the subject's challenge.
func (s *RedisChallengeStore) Take(ctx context.Context, subjectID string) (*webauthn.SessionData, error) {
	payload, err := s.client.GetDel(ctx, challengeKey(subjectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingChallenge
	}
	if err != nil {
		return nil, err
	}
	var data webauthn.SessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
