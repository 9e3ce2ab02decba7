package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultHoldPrefix = "hold:reservation:"

// RedisHoldStore takes a short-lived hold on a reservation tuple using
// Redis SETNX semantics, so two concurrent identical submissions cannot
// both pass the repository duplicate check. Holds expire by TTL; there is
// no explicit release on the happy path because the persisted row takes
// over as the duplicate guard.
type RedisHoldStore struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

// NewRedisHoldStore constructs the hold store.
func NewRedisHoldStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisHoldStore {
	if prefix == "" {
		prefix = defaultHoldPrefix
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisHoldStore{client: client, keyPrefix: prefix, ttl: ttl}
}

// TryHold attempts to acquire the tuple hold with SET NX EX.
func (s *RedisHoldStore) TryHold(ctx context.Context, userID, spotID int64, start, end time.Time) (bool, error) {
	key := s.key(userID, spotID, start, end)
	ok, err := s.client.SetNX(ctx, key, uuid.NewString(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release drops the hold early, for callers that roll back before the TTL.
func (s *RedisHoldStore) Release(ctx context.Context, userID, spotID int64, start, end time.Time) error {
	if err := s.client.Del(ctx, s.key(userID, spotID, start, end)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisHoldStore) key(userID, spotID int64, start, end time.Time) string {
	return fmt.Sprintf("%s%d:%d:%d:%d", s.keyPrefix, userID, spotID, start.Unix(), end.Unix())
}
