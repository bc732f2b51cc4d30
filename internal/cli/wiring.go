package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"history-stairs/internal/app"
	"history-stairs/internal/auth"
	"history-stairs/internal/bank"
	"history-stairs/internal/config"
	"history-stairs/internal/domain"
	"history-stairs/internal/infra/memory"
	"history-stairs/internal/infra/postgres"
	redisstore "history-stairs/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTTL   = 30 * time.Minute
	defaultRankingTTL = 5 * time.Second
)

// services is everything the commands need, built from one config.
type services struct {
	cfg      config.Config
	redis    *redis.Client
	pool     *pgxpool.Pool
	auth     *auth.TokenAuthenticator
	accounts *app.AccountService
	games    *app.GameService
	bank     *bank.Bank
}

// buildServices picks the stores: Postgres for profiles when configured, else Redis,
// else memory. Tokens and the ranking cache follow Redis when it is configured.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	s := &services{cfg: cfg}

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
	}

	b, err := s.loadBank(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.bank = b

	var (
		profiles app.ProfileRepository
		ranking  app.RankingRepository
	)
	switch {
	case s.pool != nil:
		store := postgres.NewProfileStore(s.pool)
		profiles, ranking = store, store
	case s.redis != nil:
		store := redisstore.NewProfileStore(s.redis)
		profiles, ranking = store, store
	default:
		store := memory.NewProfileStore()
		profiles, ranking = store, store
	}

	rankingTTL := config.TTLDuration(cfg.Ranking.CacheTTL, defaultRankingTTL)
	var tokens auth.TokenStore
	var games app.GameRepository
	if s.redis != nil {
		ranking = redisstore.NewRankingCache(s.redis, ranking, rankingTTL)
		tokens = redisstore.NewTokenStore(s.redis)
		games = redisstore.NewGameStore(s.redis, config.TTLDuration(cfg.Redis.TTL, defaultRedisTTL))
	} else {
		ranking = memory.NewRankingCache(ranking, rankingTTL)
		tokens = memory.NewTokenStore()
		games = memory.NewGameStore()
	}

	providers := cfg.Auth.Providers
	if len(providers) == 0 {
		providers = []string{"google", "guest"}
	}
	s.auth = auth.NewTokenAuthenticator(tokens, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL), providers)
	s.accounts = app.NewAccountService(s.auth, profiles, ranking)
	s.games = app.NewGameService(games, s.accounts, bank.NewSelector(b), app.GameConfig{
		CorrectDelay:   config.TTLDuration(cfg.Game.CorrectDelay, app.DefaultCorrectDelay),
		IncorrectDelay: config.TTLDuration(cfg.Game.IncorrectDelay, app.DefaultIncorrectDelay),
	})
	return s, nil
}

// loadBank prefers an explicit file, then the questions table, then the built-in bank.
func (s *services) loadBank(ctx context.Context) (*bank.Bank, error) {
	if s.cfg.Bank.Path != "" {
		return bank.Load(ctx, bank.NewFileLoader(s.cfg.Bank.Path))
	}
	if s.pool != nil {
		b, err := bank.Load(ctx, postgres.NewQuestionLoader(s.pool))
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, domain.ErrEmptyBank) {
			return nil, err
		}
		log.Printf("questions table is empty, using built-in bank")
	}
	return bank.Load(ctx, bank.NewFileLoader(""))
}

func (s *services) rankingLimit() int {
	return s.cfg.RankingLimit(app.MaxRankingLimit, app.MaxRankingLimit)
}

func (s *services) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
