package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"history-stairs/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps bearer tokens as JSON identities with a TTL.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Put(ctx context.Context, token string, identity domain.Identity, ttl time.Duration) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, token string) (domain.Identity, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	return decodeIdentity(data, err)
}

func (s *TokenStore) Delete(ctx context.Context, token string) (domain.Identity, error) {
	data, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	return decodeIdentity(data, err)
}

func (s *TokenStore) key(token string) string {
	return "stairs:token:" + token
}

func decodeIdentity(data []byte, err error) (domain.Identity, error) {
	if errors.Is(err, redis.Nil) {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("read token: %w", err)
	}
	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return domain.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return identity, nil
}
