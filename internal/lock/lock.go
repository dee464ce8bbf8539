package redlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// ErrLockHeld is returned when another worker already holds the claim.
var ErrLockHeld = errors.New("lock is already held")

// Locker is a single-holder claim on one Redis key. The token makes sure only
// the holder can release it.
type Locker struct {
	client redis.UniversalClient
	key    string
	token  string
}

func NewLocker(client redis.UniversalClient, key, token string) *Locker {
	return &Locker{
		client: client,
		key:    key,
		token:  token,
	}
}

// OrderKey is the claim key for an order's offset purchase.
func OrderKey(orderID string) string {
	return fmt.Sprintf("offset:order:%s", orderID)
}

// NewOrderLocker builds a locker for orderID with a fresh random token.
func NewOrderLocker(client redis.UniversalClient, orderID string) *Locker {
	return NewLocker(client, OrderKey(orderID), uuid.NewString())
}

// PurchaseKey is the claim key for retrying one pending ledger row.
func PurchaseKey(purchaseID string) string {
	return fmt.Sprintf("offset:purchase:%s", purchaseID)
}

// NewPurchaseLocker builds a locker for a pending purchase with a fresh
// random token.
func NewPurchaseLocker(client redis.UniversalClient, purchaseID string) *Locker {
	return NewLocker(client, PurchaseKey(purchaseID), uuid.NewString())
}

// Key returns the Redis key guarded by this locker.
func (l *Locker) Key() string {
	return l.key
}

func (l *Locker) Lock(ctx context.Context, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockHeld, l.key)
	}
	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.token).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("unlock failed, either lock expired or you're not the lock holder for key %s", l.key)
	}
	return nil
}
