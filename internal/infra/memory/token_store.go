package memory

import (
	"context"
	"sync"
	"time"

	"history-stairs/internal/domain"
)

// TokenStore keeps bearer tokens in memory until they expire.
type TokenStore struct {
	clock func() time.Time

	mu     sync.Mutex
	tokens map[string]tokenEntry
}

type tokenEntry struct {
	identity  domain.Identity
	expiresAt time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		clock:  time.Now,
		tokens: make(map[string]tokenEntry),
	}
}

func (s *TokenStore) Put(_ context.Context, token string, identity domain.Identity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := tokenEntry{identity: identity}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.tokens[token] = entry
	return nil
}

func (s *TokenStore) Get(_ context.Context, token string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		delete(s.tokens, token)
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return entry.identity, nil
}

func (s *TokenStore) Delete(_ context.Context, token string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	delete(s.tokens, token)
	return entry.identity, nil
}
