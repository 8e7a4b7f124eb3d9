package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore tracks token ids that were invalidated before their natural
// expiry. A matching record means the token must be rejected even though it
// is still cryptographically valid. Records past their expiry are useless
// (the token no longer verifies anyway), so implementations may drop them.
//
// Revoke is idempotent. Implementations must be safe for concurrent use;
// only operations on the same token id need to be serialized.
type RevocationStore interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	PurgeExpired(ctx context.Context) error
}

// MemoryRevocationStore is a process-local RevocationStore for single-node
// deployments and tests.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // tokenID -> expiresAt
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiresAt, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return s.now().Before(expiresAt), nil
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[tokenID]; !ok {
		s.revoked[tokenID] = expiresAt
	}
	return nil
}

func (s *MemoryRevocationStore) PurgeExpired(_ context.Context) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, expiresAt := range s.revoked {
		if !now.Before(expiresAt) {
			delete(s.revoked, id)
		}
	}
	return nil
}

// StartPurgeLoop runs PurgeExpired on the given interval until ctx is done.
// The sweep only bounds storage growth; a delayed run is harmless.
func StartPurgeLoop(ctx context.Context, store RevocationStore, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := store.PurgeExpired(ctx); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
}
