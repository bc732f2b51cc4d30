package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"history-stairs/internal/domain"
	"github.com/redis/go-redis/v9"
)

const rankingKey = "stairs:ranking"

// upsertScript creates a profile with score 0, or refreshes name and avatar of
// an existing one. The ranking zset only learns about new members.
var upsertScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  redis.call('HSET', key, 'user_id', ARGV[1], 'name', ARGV[2], 'avatar', ARGV[3], 'score', '0', 'updated', ARGV[4])
  redis.call('ZADD', KEYS[2], 0, ARGV[1])
else
  redis.call('HSET', key, 'name', ARGV[2], 'avatar', ARGV[3])
end
return redis.call('HGETALL', key)
`)

// setIfGreaterScript is the atomic conditional high score write. The reply is
// "1" or "0" (written or not) followed by the profile hash.
var setIfGreaterScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  return false
end
local current = tonumber(redis.call('HGET', key, 'score') or '0')
local candidate = tonumber(ARGV[1])
local written = '0'
if candidate > current then
  redis.call('HSET', key, 'score', ARGV[1], 'updated', ARGV[2])
  redis.call('ZADD', KEYS[2], candidate, ARGV[3])
  written = '1'
end
local reply = redis.call('HGETALL', key)
table.insert(reply, 1, written)
return reply
`)

// ProfileStore keeps each profile in a hash and the ranking in a sorted set:
//
//	HSET stairs:profile:{userID} user_id name avatar score updated
//	ZADD stairs:ranking {score} {userID}
type ProfileStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client, clock: time.Now}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	fields, err := s.client.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if len(fields) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profileFromHash(fields), nil
}

func (s *ProfileStore) UpsertProfile(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
	fresh := domain.NewProfile(identity, s.clock())
	res, err := upsertScript.Run(ctx, s.client,
		[]string{profileKey(identity.UserID), rankingKey},
		fresh.UserID, fresh.DisplayName, fresh.AvatarURL, fresh.UpdatedAt.UnixNano(),
	).StringSlice()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return profileFromHash(pairs(res)), nil
}

func (s *ProfileStore) UpdateHighScoreIfGreater(ctx context.Context, userID string, score int) (domain.Profile, bool, error) {
	res, err := setIfGreaterScript.Run(ctx, s.client,
		[]string{profileKey(userID), rankingKey},
		score, s.clock().UnixNano(), userID,
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return domain.Profile{}, false, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("update high score: %w", err)
	}
	if len(res) == 0 {
		return domain.Profile{}, false, fmt.Errorf("update high score: empty reply")
	}
	return profileFromHash(pairs(res[1:])), res[0] == "1", nil
}

// TopScores reads the sorted set best-first; equal scores follow the
// sorted set's own ordering.
func (s *ProfileStore) TopScores(ctx context.Context, limit int) ([]domain.Profile, error) {
	if limit <= 0 {
		return []domain.Profile{}, nil
	}
	members, err := s.client.ZRevRange(ctx, rankingKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	for _, userID := range members {
		cmds = append(cmds, pipe.HGetAll(ctx, profileKey(userID)))
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("read ranked profiles: %w", err)
		}
	}

	profiles := make([]domain.Profile, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		profiles = append(profiles, profileFromHash(fields))
	}
	return profiles, nil
}

func profileKey(userID string) string {
	return "stairs:profile:" + userID
}

func pairs(flat []string) map[string]string {
	out := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out[flat[i]] = flat[i+1]
	}
	return out
}

func profileFromHash(fields map[string]string) domain.Profile {
	profile := domain.Profile{
		UserID:      fields["user_id"],
		DisplayName: fields["name"],
		AvatarURL:   fields["avatar"],
	}
	if score, err := strconv.Atoi(fields["score"]); err == nil {
		profile.HighScore = score
	}
	if nanos, err := strconv.ParseInt(fields["updated"], 10, 64); err == nil {
		profile.UpdatedAt = time.Unix(0, nanos).UTC()
	}
	return profile
}
