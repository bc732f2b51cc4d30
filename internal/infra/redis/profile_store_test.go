package redis

import (
	"context"
	"errors"
	"testing"

	"history-stairs/internal/domain"
)

func TestProfileStoreUpsertMergesAndKeepsScore(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	store := NewProfileStore(client)

	created, err := store.UpsertProfile(ctx, domain.Identity{UserID: "u1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created.UserID != "u1" || created.HighScore != 0 || created.DisplayName != "Alice" {
		t.Fatalf("unexpected profile %+v", created)
	}
	if !mr.Exists("stairs:profile:u1") {
		t.Fatalf("expected profile hash")
	}

	if _, _, err := store.UpdateHighScoreIfGreater(ctx, "u1", 6); err != nil {
		t.Fatalf("update: %v", err)
	}
	merged, err := store.UpsertProfile(ctx, domain.Identity{UserID: "u1", DisplayName: "Alice Kim", AvatarURL: "https://img/a.png"})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if merged.HighScore != 6 || merged.DisplayName != "Alice Kim" || merged.AvatarURL != "https://img/a.png" {
		t.Fatalf("expected merged profile with score kept, got %+v", merged)
	}
}

func TestProfileStoreAnonymousName(t *testing.T) {
	_, client := newMiniredis(t)
	profile, err := NewProfileStore(client).UpsertProfile(context.Background(), domain.Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if profile.DisplayName != domain.AnonymousName {
		t.Fatalf("expected anonymous name, got %q", profile.DisplayName)
	}
}

func TestProfileStoreSetIfGreater(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	store := NewProfileStore(client)
	_, _ = store.UpsertProfile(ctx, domain.Identity{UserID: "u1", DisplayName: "Alice"})

	for _, score := range []int{4, 2, 9, 9, 1} {
		if _, _, err := store.UpdateHighScoreIfGreater(ctx, "u1", score); err != nil {
			t.Fatalf("update %d: %v", score, err)
		}
	}
	profile, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if profile.HighScore != 9 {
		t.Fatalf("expected 9, got %d", profile.HighScore)
	}

	before := profile.UpdatedAt
	same, written, _ := store.UpdateHighScoreIfGreater(ctx, "u1", 9)
	if written || !same.UpdatedAt.Equal(before) || same.HighScore != 9 {
		t.Fatalf("repeating the same score must not write, got %+v", same)
	}
}

func TestProfileStoreNotFound(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	store := NewProfileStore(client)

	if _, err := store.GetProfile(ctx, "ghost"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if _, _, err := store.UpdateHighScoreIfGreater(ctx, "ghost", 3); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestProfileStoreTopScores(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	store := NewProfileStore(client)
	scores := map[string]int{"a": 3, "b": 12, "c": 7}
	for id, score := range scores {
		_, _ = store.UpsertProfile(ctx, domain.Identity{UserID: id, DisplayName: id})
		_, _, _ = store.UpdateHighScoreIfGreater(ctx, id, score)
	}

	top, err := store.TopScores(ctx, 2)
	if err != nil {
		t.Fatalf("top scores: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "b" || top[1].UserID != "c" {
		t.Fatalf("unexpected ranking %+v", top)
	}
	if top[0].HighScore != 12 {
		t.Fatalf("expected 12, got %d", top[0].HighScore)
	}
}
