package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// TryLock acquires a lock identified by key with SET NX EX. On success the
// returned unlock function must be called to release it; it only deletes
// the key while this holder's token is still stored.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error) {
	full := KeyPrefix + "lock:" + key
	token := randomToken()

	ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context: the request context may already be cancelled.
		_ = r.client.Eval(context.Background(), unlockScript, []string{full}, token).Err()
	}, nil
}

// IsLocked returns true if the lock key exists.
func (r *Redis) IsLocked(ctx context.Context, key string) bool {
	n, _ := r.client.Exists(ctx, KeyPrefix+"lock:"+key).Result()
	return n > 0
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
