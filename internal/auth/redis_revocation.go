package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisRevocationPrefix = "revoked_token:"

// RedisRevocationStore keeps revocation records in Redis with a TTL matching
// the token's remaining lifetime, so expired records disappear on their own
// and PurgeExpired is a no-op. Suited to multi-node deployments where every
// verifier must observe a revocation immediately.
type RedisRevocationStore struct {
	rc *redis.Client
}

func NewRedisRevocationStore(rc *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{rc: rc}
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rc.Exists(ctx, redisRevocationPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past natural expiry; the token cannot verify anymore.
		return nil
	}
	return s.rc.Set(ctx, redisRevocationPrefix+tokenID, "1", ttl).Err()
}

func (s *RedisRevocationStore) PurgeExpired(context.Context) error {
	return nil
}

// NewRedisClient builds a client and verifies connectivity before use.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rc, nil
}
