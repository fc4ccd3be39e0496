package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by TryAcquire when another holder owns the key.
var ErrHeld = errors.New("lock: key already held")

// Locker provides a Redis-backed lease used to fence work per key across
// storefront replicas.
type Locker struct {
	R      *redis.Client
	Prefix string
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	locker Locker
	key    string
	token  string
}

// TryAcquire takes the lock for key without waiting. The lease expires after
// ttl even when it is never released.
func (l Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l.R == nil {
		return nil, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	full := l.Prefix + key
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lease{locker: l, key: full, token: token}, nil
}

// Release deletes the key if this lease still owns it.
func (ls *Lease) Release(ctx context.Context) {
	if ls == nil || ls.token == "" {
		return
	}
	ls.locker.release(ctx, ls.key, ls.token)
	ls.token = ""
}

func (l Locker) release(ctx context.Context, key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	if err := l.R.Eval(ctx, script, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
