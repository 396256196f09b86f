// Package runlock keeps two runs of the same path (import or dispatch) from
// overlapping, whether they are started from the CLI or the trigger API.
// Redis is preferred; a Postgres advisory lock is the fallback.
package runlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another run already holds the lock.
var ErrHeld = errors.New("run already in progress")

// Lock is a single named lock.
type Lock interface {
	// Acquire tries to take the lock without blocking. Returns true if taken.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this instance still owns it.
	Release(ctx context.Context) error
}

// Locker hands out locks by run name.
type Locker interface {
	Lock(name string) Lock
}

// New builds a Locker from the available backends. With neither backend
// configured every lock is granted.
func New(redisClient *redis.Client, db *sql.DB, prefix string, ttl time.Duration) Locker {
	return &locker{redis: redisClient, db: db, prefix: prefix, ttl: ttl}
}

type locker struct {
	redis  *redis.Client
	db     *sql.DB
	prefix string
	ttl    time.Duration
}

func (l *locker) Lock(name string) Lock {
	key := name
	if l.prefix != "" {
		key = l.prefix + ":" + name
	}
	switch {
	case l.redis != nil:
		return NewRedisLock(l.redis, key, l.ttl)
	case l.db != nil:
		return NewPGAdvisoryLock(l.db, key)
	default:
		return nopLock{}
	}
}

// WithLock runs fn while holding the named lock. It returns ErrHeld without
// calling fn when the lock is taken.
func WithLock(ctx context.Context, locker Locker, name string, fn func(ctx context.Context) error) error {
	if locker == nil {
		return fn(ctx)
	}
	lock := locker.Lock(name)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring %s lock: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrHeld)
	}
	defer func() {
		// Release with a fresh context so a cancelled run still unlocks
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}()
	return fn(ctx)
}

type nopLock struct{}

func (nopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (nopLock) Release(context.Context) error         { return nil }

// PGAdvisoryLock implements Lock with pg_try_advisory_lock. The lock is
// session scoped, so it is held on one dedicated connection from Acquire
// until Release, and a dropped connection releases it.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates an advisory lock whose id is derived from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// Acquire tries to take the advisory lock.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock and returns its connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
