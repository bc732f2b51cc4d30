package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Game struct {
		CorrectDelay   string `yaml:"correct_delay"`
		IncorrectDelay string `yaml:"incorrect_delay"`
	} `yaml:"game"`
	Ranking struct {
		Limit    int    `yaml:"limit"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"ranking"`
	Auth struct {
		TokenTTL  string   `yaml:"token_ttl"`
		Providers []string `yaml:"providers"`
	} `yaml:"auth"`
	Bank struct {
		// Path of a YAML or JSON question file. Empty means the built-in bank,
		// or the questions table when Postgres is configured.
		Path string `yaml:"path"`
	} `yaml:"bank"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

// RankingLimit is the configured leaderboard size, falling back when unset or out of range.
func (c Config) RankingLimit(fallback, max int) int {
	if c.Ranking.Limit <= 0 || c.Ranking.Limit > max {
		return fallback
	}
	return c.Ranking.Limit
}
