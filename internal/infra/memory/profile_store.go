package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"history-stairs/internal/domain"
)

// ProfileStore keeps profiles in a map. Every write happens under one lock,
// so set-if-greater is atomic.
type ProfileStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileStore() *ProfileStore {
	return NewProfileStoreWithClock(time.Now)
}

// NewProfileStoreWithClock allows deterministic timestamps in tests.
func NewProfileStoreWithClock(now func() time.Time) *ProfileStore {
	return &ProfileStore{
		clock:    now,
		profiles: make(map[string]domain.Profile),
	}
}

func (s *ProfileStore) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *ProfileStore) UpsertProfile(_ context.Context, identity domain.Identity) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	fresh := domain.NewProfile(identity, now)
	profile, ok := s.profiles[identity.UserID]
	if !ok {
		s.profiles[identity.UserID] = fresh
		return fresh, nil
	}
	profile.DisplayName = fresh.DisplayName
	profile.AvatarURL = fresh.AvatarURL
	s.profiles[identity.UserID] = profile
	return profile, nil
}

// UpdateHighScoreIfGreater reports whether score was written.
func (s *ProfileStore) UpdateHighScoreIfGreater(_ context.Context, userID string, score int) (domain.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, false, domain.ErrProfileNotFound
	}
	if score <= profile.HighScore {
		return profile, false, nil
	}
	profile.HighScore = score
	profile.UpdatedAt = s.clock()
	s.profiles[userID] = profile
	return profile, true, nil
}

// TopScores orders by high score, then by who reached it first, then by name.
func (s *ProfileStore) TopScores(_ context.Context, limit int) ([]domain.Profile, error) {
	s.mu.RLock()
	profiles := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	s.mu.RUnlock()

	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].HighScore != profiles[j].HighScore {
			return profiles[i].HighScore > profiles[j].HighScore
		}
		if !profiles[i].UpdatedAt.Equal(profiles[j].UpdatedAt) {
			return profiles[i].UpdatedAt.Before(profiles[j].UpdatedAt)
		}
		return profiles[i].DisplayName < profiles[j].DisplayName
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}
