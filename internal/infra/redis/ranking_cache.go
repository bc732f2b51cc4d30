package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"history-stairs/internal/app"
	"history-stairs/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	rankingGenKey     = "stairs:ranking:gen"
	rankingPagePrefix = "stairs:ranking:top:"
)

// RankingCache caches top-score results in Redis so every instance shares them.
// Pages live at stairs:ranking:top:{gen}:{limit} as JSON; Invalidate bumps
// stairs:ranking:gen, which retires every page at once, including pages that
// a load started before the bump writes afterwards.
type RankingCache struct {
	client *redis.Client
	source app.RankingRepository
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewRankingCache(client *redis.Client, source app.RankingRepository, ttl time.Duration) *RankingCache {
	return &RankingCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RankingCache) TopScores(ctx context.Context, limit int) ([]domain.Profile, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		log.Printf("ranking cache unavailable: %v", err)
		return r.source.TopScores(ctx, limit)
	}

	key := r.key(gen, limit)
	if profiles, ok := r.cached(ctx, key); ok {
		return profiles, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if profiles, ok := r.cached(ctx, key); ok {
			return profiles, nil
		}

		profiles, err := r.source.TopScores(ctx, limit)
		if err != nil {
			return nil, err
		}
		r.store(ctx, gen, key, profiles)
		return profiles, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Profile), nil
}

// store writes a loaded page unless the cache was invalidated during the load.
func (r *RankingCache) store(ctx context.Context, gen int64, key string, profiles []domain.Profile) {
	ttl := r.ttlWithJitter()
	if ttl <= 0 {
		return
	}
	if current, err := r.generation(ctx); err != nil || current != gen {
		return
	}
	data, err := json.Marshal(profiles)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("ranking cache write failed: %v", err)
	}
}

// Invalidate retires every cached ranking page.
func (r *RankingCache) Invalidate(ctx context.Context) error {
	return r.client.Incr(ctx, rankingGenKey).Err()
}

func (r *RankingCache) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, rankingGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RankingCache) cached(ctx context.Context, key string) ([]domain.Profile, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var profiles []domain.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, false
	}
	return profiles, true
}

func (r *RankingCache) key(gen int64, limit int) string {
	return rankingPagePrefix + strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(limit)
}

func (r *RankingCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
