package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"history-stairs/internal/app"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const gameKeyPrefix = "stairs:game:"

// releaseScript deletes a game marker only if this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// GameStore keeps games in process (they own timers and subscribers) and claims
// each player in Redis:
//
//	SET stairs:game:{userID} {instance} EX ttl
//
// The claim is refreshed whenever the game is used, so it expires only after
// ttl of inactivity. Claiming a player another instance holds is logged.
type GameStore struct {
	client   *redis.Client
	ttl      time.Duration
	instance string

	mu    sync.RWMutex
	games map[string]*app.Game
}

// LiveGame is a player claim as seen in Redis.
type LiveGame struct {
	UserID   string
	Instance string
	TTL      time.Duration
}

func NewGameStore(client *redis.Client, ttl time.Duration) *GameStore {
	return &GameStore{
		client:   client,
		ttl:      ttl,
		instance: uuid.NewString(),
		games:    make(map[string]*app.Game),
	}
}

// Instance identifies this process in game claims.
func (s *GameStore) Instance() string {
	return s.instance
}

func (s *GameStore) GetOrCreate(userID string, create func() *app.Game) (*app.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game, ok := s.games[userID]; ok {
		s.touch(userID)
		return game, false
	}
	game := create()
	s.games[userID] = game
	s.claim(userID)
	return game, true
}

func (s *GameStore) Get(userID string) (*app.Game, bool) {
	s.mu.RLock()
	game, ok := s.games[userID]
	s.mu.RUnlock()
	if ok {
		s.touch(userID)
	}
	return game, ok
}

func (s *GameStore) Delete(userID string) (*app.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[userID]
	if !ok {
		return nil, false
	}
	delete(s.games, userID)
	if err := releaseScript.Run(context.Background(), s.client, []string{gameKey(userID)}, s.instance).Err(); err != nil {
		log.Printf("release game claim for %s: %v", userID, err)
	}
	return game, true
}

// LiveGames lists every claimed player across instances.
func (s *GameStore) LiveGames(ctx context.Context) ([]LiveGame, error) {
	return ListLiveGames(ctx, s.client)
}

func (s *GameStore) claim(userID string) {
	ctx := context.Background()
	prev, err := s.client.SetArgs(ctx, gameKey(userID), s.instance, redis.SetArgs{TTL: s.ttl, Get: true}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("claim game for %s: %v", userID, err)
		return
	}
	if prev != "" && prev != s.instance {
		log.Printf("player %s was playing on instance %s, now on %s", userID, prev, s.instance)
	}
}

func (s *GameStore) touch(userID string) {
	ctx := context.Background()
	ok, err := s.client.Expire(ctx, gameKey(userID), s.ttl).Result()
	if err != nil {
		log.Printf("refresh game claim for %s: %v", userID, err)
		return
	}
	if !ok {
		// expired while idle
		s.claim(userID)
	}
}

// ListLiveGames scans the game claims without needing a local store.
func ListLiveGames(ctx context.Context, client *redis.Client) ([]LiveGame, error) {
	var keys []string
	iter := client.Scan(ctx, 0, gameKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan games: %w", err)
	}
	if len(keys) == 0 {
		return []LiveGame{}, nil
	}

	pipe := client.Pipeline()
	owners := make([]*redis.StringCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	for i, key := range keys {
		owners[i] = pipe.Get(ctx, key)
		ttls[i] = pipe.TTL(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read games: %w", err)
	}

	games := make([]LiveGame, 0, len(keys))
	for i, key := range keys {
		owner, err := owners[i].Result()
		if err != nil {
			// released between scan and read
			continue
		}
		games = append(games, LiveGame{
			UserID:   strings.TrimPrefix(key, gameKeyPrefix),
			Instance: owner,
			TTL:      ttls[i].Val(),
		})
	}
	return games, nil
}

func gameKey(userID string) string {
	return gameKeyPrefix + userID
}
