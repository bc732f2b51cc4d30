package app

import (
	"context"
	"log"

	"history-stairs/internal/bank"
	"history-stairs/internal/domain"
)

// GameRepository abstracts where live games are kept (in-memory, Redis-marked).
type GameRepository interface {
	// GetOrCreate returns the user's game, building it with create when absent.
	// The boolean reports whether create was used.
	GetOrCreate(userID string, create func() *Game) (*Game, bool)
	Get(userID string) (*Game, bool)
	Delete(userID string) (*Game, bool)
}

// ProfileProvider is the slice of AccountService a game needs.
type ProfileProvider interface {
	HighScoreUpdater
	CurrentProfile(ctx context.Context, identity domain.Identity) (domain.Profile, error)
}

// GameService owns one game per signed-in player.
type GameService struct {
	games    GameRepository
	accounts ProfileProvider
	selector *bank.Selector
	cfg      GameConfig
}

func NewGameService(games GameRepository, accounts ProfileProvider, selector *bank.Selector, cfg GameConfig) *GameService {
	return &GameService{games: games, accounts: accounts, selector: selector, cfg: cfg}
}

// Play returns the player's running game, starting a new one if needed.
func (s *GameService) Play(ctx context.Context, identity domain.Identity) (*Game, error) {
	if game, ok := s.games.Get(identity.UserID); ok {
		return game, nil
	}

	profile, err := s.accounts.CurrentProfile(ctx, identity)
	if err != nil {
		return nil, err
	}

	game, created := s.games.GetOrCreate(identity.UserID, func() *Game {
		return NewGame(profile, s.selector, s.accounts, s.cfg)
	})
	if created {
		game.Start()
	}
	return game, nil
}

// Restart resets the player's run.
func (s *GameService) Restart(userID string) (domain.GameSnapshot, error) {
	game, ok := s.games.Get(userID)
	if !ok {
		return domain.GameSnapshot{}, domain.ErrGameNotFound
	}
	return game.Restart(), nil
}

// Submit answers the current question of the player's game.
func (s *GameService) Submit(ctx context.Context, userID, option string) (domain.GameSnapshot, error) {
	game, ok := s.games.Get(userID)
	if !ok {
		return domain.GameSnapshot{}, domain.ErrGameNotFound
	}
	return game.Submit(ctx, option)
}

// Snapshot returns the observable state of the player's game.
func (s *GameService) Snapshot(userID string) (domain.GameSnapshot, error) {
	game, ok := s.games.Get(userID)
	if !ok {
		return domain.GameSnapshot{}, domain.ErrGameNotFound
	}
	return game.Snapshot(), nil
}

// End closes and forgets the player's game.
func (s *GameService) End(userID string) {
	if game, ok := s.games.Delete(userID); ok {
		game.Close()
	}
}

// WatchAuth ends games of players who sign out. It returns when events is
// closed or ctx is done.
func (s *GameService) WatchAuth(ctx context.Context, events <-chan domain.AuthEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.SignedIn {
				continue
			}
			log.Printf("player %s signed out, ending game", event.Identity.UserID)
			s.End(event.Identity.UserID)
		}
	}
}
