package memory

import (
	"testing"

	"history-stairs/internal/app"
	"history-stairs/internal/bank"
	"history-stairs/internal/domain"
)

func TestGameStoreLifecycle(t *testing.T) {
	store := NewGameStore()
	calls := 0
	create := func() *app.Game {
		calls++
		return newTestGame(t)
	}

	game, created := store.GetOrCreate("u1", create)
	if game == nil || !created {
		t.Fatalf("expected a created game")
	}
	again, created := store.GetOrCreate("u1", create)
	if again != game || created || calls != 1 {
		t.Fatalf("expected the existing game to be reused")
	}
	if _, ok := store.Get("u1"); !ok {
		t.Fatalf("expected game present")
	}

	if removed, ok := store.Delete("u1"); !ok || removed != game {
		t.Fatalf("expected delete to return the game")
	}
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("expected game removed")
	}
}

func newTestGame(t *testing.T) *app.Game {
	t.Helper()
	b, err := bank.New([]domain.Question{{ID: "q1", Prompt: "Q1", Options: []string{"a", "b"}, Answer: "a"}})
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	return app.NewGame(domain.Profile{UserID: "u1"}, bank.NewSelector(b), app.NewAccountService(nil, NewProfileStore(), nil), app.GameConfig{})
}
