package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-verify-nosql/internal/domain"
)

// VerificationStore keeps verification codes in a mutex-guarded map. It is
// meant for tests and single-node deployments; the lock is what makes
// DeleteAndReturn atomic.
type VerificationStore struct {
	mu    sync.Mutex
	codes map[string]domain.VerificationCode
}

func NewVerificationStore() *VerificationStore {
	return &VerificationStore{codes: make(map[string]domain.VerificationCode)}
}

func (s *VerificationStore) Put(_ context.Context, v *domain.VerificationCode, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[v.ID]; ok {
		return fmt.Errorf("verification code %s exists: %w", v.ID, domain.ErrConflict)
	}
	s.codes[v.ID] = *v
	return nil
}

func (s *VerificationStore) DeleteAndReturn(_ context.Context, id string) (*domain.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.codes[id]
	if !ok {
		return nil, nil
	}
	delete(s.codes, id)
	return &v, nil
}

// PurgeExpired removes every code whose expiry is at or before now.
func (s *VerificationStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.codes {
		if v.ExpiredAt(now) {
			delete(s.codes, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored codes, expired or not.
func (s *VerificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}
