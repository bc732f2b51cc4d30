package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"history-stairs/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const profileColumns = `id, display_name, avatar_url, high_score, updated_at`

// ProfileStore persists profiles in the profiles table.
type ProfileStore struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool, clock: time.Now}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, userID)
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// UpsertProfile inserts with a zero score; on conflict only name and avatar change.
func (s *ProfileStore) UpsertProfile(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
	fresh := domain.NewProfile(identity, s.clock())
	row := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, display_name, avatar_url, high_score, updated_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name, avatar_url = EXCLUDED.avatar_url
		RETURNING `+profileColumns,
		fresh.UserID, fresh.DisplayName, fresh.AvatarURL, fresh.UpdatedAt)
	profile, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return profile, nil
}

// UpdateHighScoreIfGreater is a single conditional UPDATE, so concurrent runs of
// the same player cannot lower the stored score.
func (s *ProfileStore) UpdateHighScoreIfGreater(ctx context.Context, userID string, score int) (domain.Profile, bool, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE profiles SET high_score = $2, updated_at = $3
		WHERE id = $1 AND high_score < $2
		RETURNING `+profileColumns,
		userID, score, s.clock())
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// either unknown or not a better score
		profile, err = s.GetProfile(ctx, userID)
		return profile, false, err
	}
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("update high score: %w", err)
	}
	return profile, true, nil
}

// TopScores breaks ties by who reached the score first, then by name.
func (s *ProfileStore) TopScores(ctx context.Context, limit int) ([]domain.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		ORDER BY high_score DESC, updated_at ASC, display_name ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0, limit)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	return profiles, nil
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.UserID, &p.DisplayName, &p.AvatarURL, &p.HighScore, &p.UpdatedAt)
	return p, err
}
