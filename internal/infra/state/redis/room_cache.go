package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// RedisRoomCache implements repository.RoomCache. Room summaries live in a
// hash per room plus an index set; live sessions are a set per room. Nothing
// here is authoritative and nothing here survives a cache flush: the store
// repopulates it lazily.
type RedisRoomCache struct {
	client *redis.Client
	prefix string
}

func NewRedisRoomCache(client *redis.Client, keyPrefix string) *RedisRoomCache {
	if client == nil {
		panic("redis client cannot be nil for RedisRoomCache")
	}
	return &RedisRoomCache{client: client, prefix: keyPrefix}
}

func (c *RedisRoomCache) summaryKey(roomID string) string {
	return c.prefix + "room:" + roomID + ":summary"
}

func (c *RedisRoomCache) sessionsKey(roomID string) string {
	return c.prefix + "room:" + roomID + ":sessions"
}

func (c *RedisRoomCache) indexKey() string {
	return c.prefix + "rooms:index"
}

func (c *RedisRoomCache) GetSummary(ctx context.Context, roomID string) (*domain.RoomSummary, error) {
	fields, err := c.client.HGetAll(ctx, c.summaryKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get summary %s: %w", roomID, err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}
	summary := summaryFromFields(roomID, fields)
	count, err := c.SessionCount(ctx, roomID)
	if err != nil {
		return nil, err
	}
	summary.UsersCount = count
	return &summary, nil
}

func (c *RedisRoomCache) SyncSummary(ctx context.Context, summary domain.RoomSummary) error {
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, c.summaryKey(summary.RoomID), map[string]interface{}{
		"name":          summary.Name,
		"has_password":  boolField(summary.HasPassword),
		"version":       summary.Version,
		"created_at":    summary.CreatedAt.Unix(),
		"last_activity": summary.LastActivity.Unix(),
	})
	pipe.SAdd(ctx, c.indexKey(), summary.RoomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: sync summary %s: %w", summary.RoomID, err)
	}
	return nil
}

func (c *RedisRoomCache) ListSummaries(ctx context.Context) ([]domain.RoomSummary, error) {
	ids, err := c.RoomIDs(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.RoomSummary, 0, len(ids))
	for _, id := range ids {
		summary, err := c.GetSummary(ctx, id)
		if err != nil {
			if err == repository.ErrNotFound {
				// Index entry without a hash: stale, drop it quietly.
				c.client.SRem(ctx, c.indexKey(), id)
				continue
			}
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

func (c *RedisRoomCache) RoomIDs(ctx context.Context) ([]string, error) {
	ids, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: room index: %w", err)
	}
	return ids, nil
}

func (c *RedisRoomCache) Remove(ctx context.Context, roomID string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.summaryKey(roomID), c.sessionsKey(roomID))
	pipe.SRem(ctx, c.indexKey(), roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: remove room %s: %w", roomID, err)
	}
	return nil
}

func (c *RedisRoomCache) AddSession(ctx context.Context, roomID, sessionID string) error {
	if err := c.client.SAdd(ctx, c.sessionsKey(roomID), sessionID).Err(); err != nil {
		return fmt.Errorf("redis: add session %s to %s: %w", sessionID, roomID, err)
	}
	return nil
}

func (c *RedisRoomCache) RemoveSession(ctx context.Context, roomID, sessionID string) error {
	if err := c.client.SRem(ctx, c.sessionsKey(roomID), sessionID).Err(); err != nil {
		return fmt.Errorf("redis: remove session %s from %s: %w", sessionID, roomID, err)
	}
	return nil
}

func (c *RedisRoomCache) SessionCount(ctx context.Context, roomID string) (int, error) {
	count, err := c.client.SCard(ctx, c.sessionsKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: session count %s: %w", roomID, err)
	}
	return int(count), nil
}

// CheckRateLimit INCRs the counter for key and refreshes its expiry in one
// pipeline; returns true when the window's limit is exceeded.
func (c *RedisRoomCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := c.prefix + "ratelimit:" + key
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit count %s: %w", key, err)
	}
	return count > int64(limit), nil
}

func summaryFromFields(roomID string, fields map[string]string) domain.RoomSummary {
	summary := domain.RoomSummary{RoomID: roomID, Name: fields["name"]}
	summary.HasPassword = fields["has_password"] == "1"
	if v, err := strconv.ParseUint(fields["version"], 10, 64); err == nil {
		summary.Version = v
	} else {
		logrus.WithField("room_id", roomID).Warnf("Cache summary has bad version field: %q", fields["version"])
	}
	if ts, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		summary.CreatedAt = time.Unix(ts, 0).UTC()
	}
	if ts, err := strconv.ParseInt(fields["last_activity"], 10, 64); err == nil {
		summary.LastActivity = time.Unix(ts, 0).UTC()
	}
	return summary
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
