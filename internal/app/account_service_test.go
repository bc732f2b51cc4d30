package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"history-stairs/internal/app"
	"history-stairs/internal/auth"
	"history-stairs/internal/domain"
	"history-stairs/internal/infra/memory"
)

func TestSignInCreatesThenMergesProfile(t *testing.T) {
	ctx := context.Background()
	accounts, profiles := newTestAccounts()

	first, err := accounts.SignIn(ctx, domain.Credentials{Provider: "google", Subject: "s1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if first.Token == "" || first.Profile.HighScore != 0 || first.Profile.DisplayName != "Alice" {
		t.Fatalf("unexpected first sign-in %+v", first)
	}
	if _, _, err := profiles.UpdateHighScoreIfGreater(ctx, first.Profile.UserID, 12); err != nil {
		t.Fatalf("update: %v", err)
	}

	second, err := accounts.SignIn(ctx, domain.Credentials{Provider: "google", Subject: "s1", DisplayName: "Alice Kim", AvatarURL: "https://img/a.png"})
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if second.Profile.UserID != first.Profile.UserID {
		t.Fatalf("same account must map to the same user")
	}
	if second.Profile.HighScore != 12 || second.Profile.DisplayName != "Alice Kim" || second.Profile.AvatarURL != "https://img/a.png" {
		t.Fatalf("expected merged profile, got %+v", second.Profile)
	}
}

func TestSignInRejectedProvider(t *testing.T) {
	accounts, _ := newTestAccounts()
	_, err := accounts.SignIn(context.Background(), domain.Credentials{Provider: "myspace", Subject: "s1"})
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestSignInFailsWhenProfileCannotBeStored(t *testing.T) {
	tokens := memory.NewTokenStore()
	authn := auth.NewTokenAuthenticator(tokens, time.Hour, []string{"google"})
	accounts := app.NewAccountService(authn, failingProfiles{}, memory.NewProfileStore())

	_, err := accounts.SignIn(context.Background(), domain.Credentials{Provider: "google", Subject: "s1"})
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestAuthenticateAndSignOut(t *testing.T) {
	ctx := context.Background()
	accounts, _ := newTestAccounts()
	signed, err := accounts.SignIn(ctx, domain.Credentials{Provider: "guest", Subject: "d1"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	identity, err := accounts.Authenticate(ctx, signed.Token)
	if err != nil || identity.UserID != signed.Profile.UserID {
		t.Fatalf("authenticate: %+v %v", identity, err)
	}
	if err := accounts.SignOut(ctx, signed.Token); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := accounts.Authenticate(ctx, signed.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := accounts.Authenticate(ctx, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
	}
}

func TestCurrentProfileFallsBackToCreate(t *testing.T) {
	ctx := context.Background()
	accounts, profiles := newTestAccounts()
	identity := domain.Identity{UserID: "u-new", DisplayName: "Bob"}

	profile, err := accounts.CurrentProfile(ctx, identity)
	if err != nil {
		t.Fatalf("current profile: %v", err)
	}
	if profile.UserID != "u-new" || profile.HighScore != 0 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if _, err := profiles.GetProfile(ctx, "u-new"); err != nil {
		t.Fatalf("expected profile created, got %v", err)
	}
}

func TestCurrentProfileRecoversFromFetchFailure(t *testing.T) {
	store := &flakyGetProfiles{ProfileStore: memory.NewProfileStore()}
	accounts := app.NewAccountService(nil, store, store)

	profile, err := accounts.CurrentProfile(context.Background(), domain.Identity{UserID: "u1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("expected fallback creation, got %v", err)
	}
	if profile.UserID != "u1" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestRankingsAssignsRanksAndCapsLimit(t *testing.T) {
	ctx := context.Background()
	accounts, profiles := newTestAccounts()
	for i, id := range []string{"a", "b", "c"} {
		_, _ = profiles.UpsertProfile(ctx, domain.Identity{UserID: id, DisplayName: id})
		_, _, _ = profiles.UpdateHighScoreIfGreater(ctx, id, (i+1)*10)
	}

	entries := accounts.Rankings(ctx, 2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Rank != 1 || entries[0].UserID != "c" || entries[0].HighScore != 30 {
		t.Fatalf("unexpected leader %+v", entries[0])
	}
	if entries[1].Rank != 2 || entries[1].UserID != "b" {
		t.Fatalf("unexpected runner-up %+v", entries[1])
	}

	capped := &limitRecorder{}
	app.NewAccountService(nil, profiles, capped).Rankings(ctx, 5000)
	if capped.limit != app.MaxRankingLimit {
		t.Fatalf("expected limit capped at %d, got %d", app.MaxRankingLimit, capped.limit)
	}
}

func TestRankingsFailureYieldsEmptyList(t *testing.T) {
	accounts := app.NewAccountService(nil, memory.NewProfileStore(), failingProfiles{})
	entries := accounts.Rankings(context.Background(), 10)
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", entries)
	}
}

func TestNewRecordFlushesRankingCache(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	cache := memory.NewRankingCache(profiles, time.Hour)
	accounts := app.NewAccountService(nil, profiles, cache)
	if _, err := profiles.UpsertProfile(ctx, domain.Identity{UserID: "u1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if entries := accounts.Rankings(ctx, 10); len(entries) != 1 || entries[0].HighScore != 0 {
		t.Fatalf("unexpected ranking %+v", entries)
	}
	if _, err := accounts.UpdateHighScoreIfGreater(ctx, "u1", 4); err != nil {
		t.Fatalf("update: %v", err)
	}
	if entries := accounts.Rankings(ctx, 10); entries[0].HighScore != 4 {
		t.Fatalf("expected fresh ranking after a record, got %+v", entries)
	}
}

func TestEqualScoreKeepsRankingCache(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	cache := &countingInvalidator{RankingCache: memory.NewRankingCache(profiles, time.Hour)}
	accounts := app.NewAccountService(nil, profiles, cache)
	if _, err := profiles.UpsertProfile(ctx, domain.Identity{UserID: "u1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for _, score := range []int{4, 4, 2} {
		if _, err := accounts.UpdateHighScoreIfGreater(ctx, "u1", score); err != nil {
			t.Fatalf("update %d: %v", score, err)
		}
	}
	if cache.flushes != 1 {
		t.Fatalf("expected one flush for one stored record, got %d", cache.flushes)
	}
}

type countingInvalidator struct {
	*memory.RankingCache
	flushes int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.flushes++
	return c.RankingCache.Invalidate(ctx)
}

func newTestAccounts() (*app.AccountService, *memory.ProfileStore) {
	profiles := memory.NewProfileStore()
	authn := auth.NewTokenAuthenticator(memory.NewTokenStore(), time.Hour, []string{"google", "guest"})
	return app.NewAccountService(authn, profiles, profiles), profiles
}

var errStoreDown = errors.New("store unavailable")

type failingProfiles struct{}

func (failingProfiles) GetProfile(context.Context, string) (domain.Profile, error) {
	return domain.Profile{}, errStoreDown
}

func (failingProfiles) UpsertProfile(context.Context, domain.Identity) (domain.Profile, error) {
	return domain.Profile{}, errStoreDown
}

func (failingProfiles) UpdateHighScoreIfGreater(context.Context, string, int) (domain.Profile, bool, error) {
	return domain.Profile{}, false, errStoreDown
}

func (failingProfiles) TopScores(context.Context, int) ([]domain.Profile, error) {
	return nil, errStoreDown
}

type flakyGetProfiles struct {
	*memory.ProfileStore
}

func (flakyGetProfiles) GetProfile(context.Context, string) (domain.Profile, error) {
	return domain.Profile{}, errStoreDown
}

type limitRecorder struct {
	limit int
}

func (r *limitRecorder) TopScores(_ context.Context, limit int) ([]domain.Profile, error) {
	r.limit = limit
	return nil, nil
}
