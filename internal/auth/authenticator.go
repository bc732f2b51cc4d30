package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"history-stairs/internal/domain"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long a sign-in stays valid.
const DefaultTokenTTL = 24 * time.Hour

// userNamespace seeds the stable user ids derived from provider subjects.
var userNamespace = uuid.MustParse("6f1c1f0e-3c55-4b8e-9d6a-2f4c0b7e8a11")

// TokenStore persists issued tokens (in-memory, Redis).
type TokenStore interface {
	Put(ctx context.Context, token string, identity domain.Identity, ttl time.Duration) error
	Get(ctx context.Context, token string) (domain.Identity, error)
	Delete(ctx context.Context, token string) (domain.Identity, error)
}

// TokenAuthenticator trusts the credentials its providers hand over and
// exchanges them for opaque bearer tokens.
type TokenAuthenticator struct {
	tokens    TokenStore
	ttl       time.Duration
	providers map[string]struct{}
	newToken  func() string

	mu          sync.Mutex
	subscribers map[chan domain.AuthEvent]struct{}
}

// NewTokenAuthenticator accepts sign-ins from the listed providers only.
func NewTokenAuthenticator(tokens TokenStore, ttl time.Duration, providers []string) *TokenAuthenticator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		allowed[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &TokenAuthenticator{
		tokens:      tokens,
		ttl:         ttl,
		providers:   allowed,
		newToken:    uuid.NewString,
		subscribers: make(map[chan domain.AuthEvent]struct{}),
	}
}

// UserID derives the stable id of a provider account.
func UserID(provider, subject string) string {
	name := strings.ToLower(strings.TrimSpace(provider)) + ":" + strings.TrimSpace(subject)
	return uuid.NewSHA1(userNamespace, []byte(name)).String()
}

func (a *TokenAuthenticator) SignIn(ctx context.Context, creds domain.Credentials) (string, domain.Identity, error) {
	provider := strings.ToLower(strings.TrimSpace(creds.Provider))
	if _, ok := a.providers[provider]; !ok {
		return "", domain.Identity{}, fmt.Errorf("%w: provider %q not allowed", domain.ErrAuthFailed, creds.Provider)
	}
	if strings.TrimSpace(creds.Subject) == "" {
		return "", domain.Identity{}, fmt.Errorf("%w: missing subject", domain.ErrAuthFailed)
	}

	identity := domain.Identity{
		UserID:      UserID(provider, creds.Subject),
		DisplayName: strings.TrimSpace(creds.DisplayName),
		AvatarURL:   strings.TrimSpace(creds.AvatarURL),
	}
	if identity.DisplayName == "" {
		identity.DisplayName = domain.AnonymousName
	}

	token := a.newToken()
	if err := a.tokens.Put(ctx, token, identity, a.ttl); err != nil {
		return "", domain.Identity{}, fmt.Errorf("%w: store token: %v", domain.ErrAuthFailed, err)
	}
	a.publish(domain.AuthEvent{Identity: identity, SignedIn: true})
	return token, identity, nil
}

func (a *TokenAuthenticator) SignOut(ctx context.Context, token string) error {
	identity, err := a.tokens.Delete(ctx, token)
	if errors.Is(err, domain.ErrUnauthenticated) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	a.publish(domain.AuthEvent{Identity: identity, SignedIn: false})
	return nil
}

func (a *TokenAuthenticator) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return a.tokens.Get(ctx, token)
}

// Subscribe returns a channel of identity changes.
// The caller must invoke the returned cancel function to avoid leaks.
func (a *TokenAuthenticator) Subscribe() (<-chan domain.AuthEvent, func()) {
	ch := make(chan domain.AuthEvent, 16)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *TokenAuthenticator) publish(event domain.AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.subscribers {
		select {
		case ch <- event:
		default:
			enqueueDroppingSignIn(ch, event)
		}
	}
}

// enqueueDroppingSignIn makes room in a full subscriber buffer without blocking.
// The oldest pending sign-in goes first, then the incoming event if it is a
// sign-in. A sign-out is only lost when the buffer holds nothing but sign-outs.
func enqueueDroppingSignIn(ch chan domain.AuthEvent, event domain.AuthEvent) {
	pending := make([]domain.AuthEvent, 0, cap(ch)+1)
drain:
	for {
		select {
		case e := <-ch:
			pending = append(pending, e)
		default:
			break drain
		}
	}
	pending = append(pending, event)
	if len(pending) > cap(ch) {
		victim := 0
		for i, e := range pending {
			if e.SignedIn {
				victim = i
				break
			}
		}
		pending = append(pending[:victim], pending[victim+1:]...)
	}
	for _, e := range pending {
		select {
		case ch <- e:
		default:
		}
	}
}
