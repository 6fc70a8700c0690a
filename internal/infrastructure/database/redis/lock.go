package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/helmkit/pkg/errors"
)

var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

// JobLock claims work items so that a redelivered message is processed by one
// worker only. Claims expire after their TTL.
type JobLock interface {
	// TryLock claims name. It reports false when another owner holds it.
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	// Unlock releases a claim made by this owner.
	Unlock(ctx context.Context, name string) error
}

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type redisJobLock struct {
	client *Client
	prefix string
	owner  string
}

// NewJobLock returns a lock whose owner token is unique to this process.
func NewJobLock(client *Client, prefix string) JobLock {
	return &redisJobLock{client: client, prefix: prefix + "lock:", owner: uuid.NewString()}
}

func (l *redisJobLock) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+name, l.owner, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire lock")
	}
	return ok, nil
}

func (l *redisJobLock) Unlock(ctx context.Context, name string) error {
	n, err := l.client.Eval(ctx, unlockScript, []string{l.prefix + name}, l.owner).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
