package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"history-stairs/internal/domain"
)

// MaxRankingLimit caps how many players the ranking returns.
const MaxRankingLimit = 100

// ProfileRepository abstracts where profiles live (in-memory, Redis, Postgres).
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	// UpsertProfile creates the profile with a zero high score, or refreshes
	// display name and avatar of an existing one while keeping its high score.
	UpsertProfile(ctx context.Context, identity domain.Identity) (domain.Profile, error)
	// UpdateHighScoreIfGreater must write atomically and only when score is greater.
	// The boolean reports whether it wrote.
	UpdateHighScoreIfGreater(ctx context.Context, userID string, score int) (domain.Profile, bool, error)
}

// RankingRepository returns profiles ordered by high score, best first.
type RankingRepository interface {
	TopScores(ctx context.Context, limit int) ([]domain.Profile, error)
}

// RankingInvalidator is implemented by ranking caches that can be flushed.
type RankingInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Authenticator issues and resolves bearer tokens.
type Authenticator interface {
	SignIn(ctx context.Context, creds domain.Credentials) (string, domain.Identity, error)
	SignOut(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// SignedIn is the result of a successful sign-in.
type SignedIn struct {
	Token   string         `json:"token"`
	Profile domain.Profile `json:"profile"`
}

// AccountService covers sign-in, profiles and the ranking.
type AccountService struct {
	auth     Authenticator
	profiles ProfileRepository
	rankings RankingRepository
}

func NewAccountService(auth Authenticator, profiles ProfileRepository, rankings RankingRepository) *AccountService {
	return &AccountService{auth: auth, profiles: profiles, rankings: rankings}
}

// SignIn authenticates and makes sure the player has a profile.
func (s *AccountService) SignIn(ctx context.Context, creds domain.Credentials) (SignedIn, error) {
	token, identity, err := s.auth.SignIn(ctx, creds)
	if err != nil {
		return SignedIn{}, err
	}
	profile, err := s.profiles.UpsertProfile(ctx, identity)
	if err != nil {
		log.Printf("profile upsert failed for %s: %v", identity.UserID, err)
		_ = s.auth.SignOut(ctx, token)
		return SignedIn{}, fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}
	return SignedIn{Token: token, Profile: profile}, nil
}

// SignOut revokes the token.
func (s *AccountService) SignOut(ctx context.Context, token string) error {
	return s.auth.SignOut(ctx, token)
}

// Authenticate resolves a bearer token.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return s.auth.Resolve(ctx, token)
}

// CurrentProfile fetches the player's profile. A missing profile, or a store
// that cannot answer, falls back to creating one.
func (s *AccountService) CurrentProfile(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, identity.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		log.Printf("profile fetch failed for %s: %v", identity.UserID, err)
	}
	profile, err = s.profiles.UpsertProfile(ctx, identity)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// UpdateHighScoreIfGreater stores score when it beats the persisted high score.
// A stored record flushes a cached ranking so the new score shows up at once.
func (s *AccountService) UpdateHighScoreIfGreater(ctx context.Context, userID string, score int) (domain.Profile, error) {
	profile, written, err := s.profiles.UpdateHighScoreIfGreater(ctx, userID, score)
	if err != nil {
		return profile, err
	}
	if inv, ok := s.rankings.(RankingInvalidator); ok && written {
		if err := inv.Invalidate(ctx); err != nil {
			log.Printf("ranking invalidate failed: %v", err)
		}
	}
	return profile, nil
}

// Rankings returns the leaderboard. Failures yield an empty list.
func (s *AccountService) Rankings(ctx context.Context, limit int) []domain.RankingEntry {
	if limit <= 0 || limit > MaxRankingLimit {
		limit = MaxRankingLimit
	}
	profiles, err := s.rankings.TopScores(ctx, limit)
	if err != nil {
		log.Printf("ranking query failed: %v", err)
		return []domain.RankingEntry{}
	}
	if len(profiles) > limit {
		profiles = profiles[:limit]
	}
	entries := make([]domain.RankingEntry, 0, len(profiles))
	for i, p := range profiles {
		entries = append(entries, domain.RankingEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			HighScore:   p.HighScore,
		})
	}
	return entries
}
