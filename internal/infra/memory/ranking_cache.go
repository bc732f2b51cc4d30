package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"history-stairs/internal/app"
	"history-stairs/internal/domain"
	"golang.org/x/sync/singleflight"
)

// RankingCache keeps ranking pages per limit for a jittered TTL. Invalidate bumps
// a generation; a load that started under an older generation is returned to
// its callers but never cached.
type RankingCache struct {
	source app.RankingRepository
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	gen   uint64
	pages map[int]rankingPage
}

type rankingPage struct {
	profiles  []domain.Profile
	expiresAt time.Time
}

func NewRankingCache(source app.RankingRepository, ttl time.Duration) *RankingCache {
	return &RankingCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		pages:  make(map[int]rankingPage),
	}
}

func (r *RankingCache) TopScores(ctx context.Context, limit int) ([]domain.Profile, error) {
	profiles, gen, ok := r.lookup(limit)
	if ok {
		return profiles, nil
	}

	// keyed by generation so callers arriving after Invalidate never join a stale load
	result, err, _ := r.loads.Do(fmt.Sprintf("%d:%d", gen, limit), func() (interface{}, error) {
		if profiles, _, ok := r.lookup(limit); ok {
			return profiles, nil
		}
		profiles, err := r.source.TopScores(ctx, limit)
		if err != nil {
			return nil, err
		}
		r.store(gen, limit, profiles)
		return profiles, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Profile), nil
}

// Invalidate drops every page and retires loads in flight.
func (r *RankingCache) Invalidate(_ context.Context) error {
	r.mu.Lock()
	r.gen++
	r.pages = make(map[int]rankingPage)
	r.mu.Unlock()
	return nil
}

func (r *RankingCache) lookup(limit int) ([]domain.Profile, uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page, ok := r.pages[limit]
	if ok && page.expiresAt.After(r.clock()) {
		return page.profiles, r.gen, true
	}
	return nil, r.gen, false
}

func (r *RankingCache) store(gen uint64, limit int, profiles []domain.Profile) {
	ttl := r.ttlWithJitter()
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.pages[limit] = rankingPage{profiles: profiles, expiresAt: r.clock().Add(ttl)}
}

func (r *RankingCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
