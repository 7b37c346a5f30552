package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainErrors "paygate/internal/domain/errors"
)

// releaseScript deletes the key only when it still holds our token, so
// an expired lock reacquired by another owner is never released here.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// RedisManager implements Manager on a shared redis instance so that
// concurrent service replicas exclude each other per order code.
type RedisManager struct {
	client *redis.Client
	prefix string
}

// NewRedisManager wraps the given client; prefix namespaces lock keys.
func NewRedisManager(client *redis.Client, prefix string) *RedisManager {
	if prefix == "" {
		prefix = "paygate:lock:"
	}
	return &RedisManager{client: client, prefix: prefix}
}

// Acquire takes the key with SET NX and a ttl guarding against a crashed
// holder. The returned release compares the owner token before deleting.
func (m *RedisManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	token := uuid.NewString()
	full := m.prefix + key

	ok, err := m.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domainErrors.ErrOperationInProgress
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, m.client, []string{full}, token).Err()
	}
	return release, nil
}
