package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyVerifyLock = "coursemart:checkout:verify:%s"

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	errLockNotConfigured = errors.New("lock client not configured")
	errEmptyReference    = errors.New("order reference is empty")
)

// OrderLock serializes work on one checkout across instances. It is a
// best-effort single-holder lock with a TTL; a holder that outlives the TTL
// is not notified.
type OrderLock struct {
	client redis.UniversalClient
	script *redis.Script
	ttl    time.Duration
}

func NewOrderLock(client redis.UniversalClient, ttl time.Duration) (*OrderLock, error) {
	if client == nil {
		return nil, errLockNotConfigured
	}
	if ttl <= 0 {
		return nil, errors.New("verify lock ttl must be positive")
	}
	return &OrderLock{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}, nil
}

// VerifyLockKey is the redis key guarding verification of an order reference.
func VerifyLockKey(orderReference string) (string, error) {
	orderReference = strings.TrimSpace(orderReference)
	if orderReference == "" {
		return "", errEmptyReference
	}
	return fmt.Sprintf(keyVerifyLock, orderReference), nil
}

// Acquire returns the holder token and whether this caller now owns the
// order reference.
func (l *OrderLock) Acquire(ctx context.Context, orderReference string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errLockNotConfigured
	}
	key, err := VerifyLockKey(orderReference)
	if err != nil {
		return "", false, err
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release frees the order reference if token still holds it.
func (l *OrderLock) Release(ctx context.Context, orderReference, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	key, err := VerifyLockKey(orderReference)
	if err != nil {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
