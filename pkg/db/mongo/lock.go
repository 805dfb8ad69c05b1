package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombook/pkg/logger"
	"roombook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LocksCollection = "Booking_locks"

var ErrLockTimeout = errors.New("timed out waiting for lock")

// LockStore persists advisory locks. TryAcquire reports false without error
// when the key is held by a live owner.
type LockStore interface {
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

type LockOptions struct {
	TTL           time.Duration
	WaitTimeout   time.Duration
	RetryInterval time.Duration
}

// LockManager serializes work per key. Callers for a held key wait, polling
// with backoff, until the key frees up or WaitTimeout elapses.
type LockManager struct {
	store LockStore
	opts  LockOptions
	log   *logger.Logger
}

func NewLockManager(store LockStore, opts LockOptions, log *logger.Logger) *LockManager {
	return &LockManager{store: store, opts: opts, log: log}
}

func (m *LockManager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	owner := uuid.NewString()
	if err := m.acquire(ctx, key, owner); err != nil {
		return err
	}

	defer func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.store.Release(releaseCtx, key, owner); err != nil {
			m.log.Warn("failed to release lock, it will expire via TTL",
				"lock_id", key,
				"error", err,
			)
		}
	}()

	return fn(ctx)
}

func (m *LockManager) acquire(ctx context.Context, key, owner string) error {
	deadline := time.Now().Add(m.opts.WaitTimeout)
	interval := m.opts.RetryInterval
	maxInterval := 10 * m.opts.RetryInterval

	for {
		ok, err := m.store.TryAcquire(ctx, key, owner, m.opts.TTL)
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		interval = min(interval*2, maxInterval)
	}
}

type mongoLockStore struct {
	collection *mongo.Collection
}

func NewLockStore(db *mongo.Database) LockStore {
	return &mongoLockStore{collection: db.Collection(LocksCollection)}
}

func (s *mongoLockStore) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()

	// Take over a lock whose holder died without releasing it. The TTL index
	// reaps these too, but only every minute.
	if _, err := s.collection.DeleteOne(ctx, bson.M{
		"_id":        key,
		"expires_at": bson.M{"$lt": now},
	}); err != nil {
		return false, err
	}

	lock := model.BookingLock{
		ID:        key,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := s.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *mongoLockStore) Release(ctx context.Context, key, owner string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	return err
}
