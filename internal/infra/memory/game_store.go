package memory

import (
	"sync"

	"history-stairs/internal/app"
)

// GameStore is an in-memory implementation of app.GameRepository.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*app.Game
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*app.Game),
	}
}

func (s *GameStore) GetOrCreate(userID string, create func() *app.Game) (*app.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game, ok := s.games[userID]; ok {
		return game, false
	}
	game := create()
	s.games[userID] = game
	return game, true
}

func (s *GameStore) Get(userID string) (*app.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[userID]
	return game, ok
}

func (s *GameStore) Delete(userID string) (*app.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[userID]
	if ok {
		delete(s.games, userID)
	}
	return game, ok
}
