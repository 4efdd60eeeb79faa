// Package joblock provides expiring Postgres-backed locks that keep two
// workers from analyzing the same job at once. A lock is renewed in the
// background while held; if renewal fails the holder's context is cancelled.
package joblock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("job lock busy")
	ErrLost = errors.New("job lock lost")
)

const DefaultTTL = 2 * time.Minute

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	// Owner prefixes the random holder token, e.g. a worker name.
	Owner string
}

func (o Options) normalize() Options {
	if o.TTL <= time.Millisecond {
		o.TTL = DefaultTTL
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Millisecond)
	}
	return o
}

type Locker struct {
	db   dbConn
	opts Options
}

func New(pool *pgxpool.Pool, opts Options) *Locker {
	return &Locker{db: pool, opts: opts.normalize()}
}

type Lock struct {
	Key   string
	Token string

	// Context is cancelled with ErrLost when the lock can no longer be renewed.
	Context context.Context

	locker *Locker
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// WithLock runs fn while holding key. fn receives the lock's context.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lock, err := l.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(lock.Context)
}

func (l *Locker) Acquire(ctx context.Context, key string) (*Lock, error) {
	if key == "" {
		return nil, errors.New("job lock key is empty")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := l.opts.Owner + id
	ttlMs := l.opts.TTL.Milliseconds()

	ok, err := l.tryAcquire(ctx, key, token, ttlMs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	lock := &Lock{
		Key:     key,
		Token:   token,
		Context: lockCtx,
		locker:  l,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
	go lock.renewLoop(ttlMs)

	return lock, nil
}

func (l *Locker) tryAcquire(ctx context.Context, key, token string, ttlMs int64) (bool, error) {
	var returnedKey string
	err := l.db.QueryRow(ctx, tryAcquireSQL, key, token, ttlMs).Scan(&returnedKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return returnedKey != "", nil
}

// Release stops renewal and deletes the lock row if this holder still owns it.
func (lock *Lock) Release(ctx context.Context) error {
	lock.stopOnce.Do(func() {
		close(lock.stopCh)
		lock.cancel(context.Canceled)
	})

	_, err := lock.locker.db.Exec(ctx, releaseSQL, lock.Key, lock.Token)
	return err
}

func (lock *Lock) renewLoop(ttlMs int64) {
	t := time.NewTicker(lock.locker.opts.RenewEvery)
	defer t.Stop()

	for {
		select {
		case <-lock.stopCh:
			return
		case <-lock.Context.Done():
			return
		case <-t.C:
			if err := lock.renew(ttlMs); err != nil {
				lock.cancel(err)
				return
			}
		}
	}
}

func (lock *Lock) renew(ttlMs int64) error {
	for attempt := range 3 {
		renewCtx, cancel := context.WithTimeout(lock.Context, 15*time.Second)
		var returnedKey string
		err := lock.locker.db.QueryRow(renewCtx, renewSQL, lock.Key, lock.Token, ttlMs).Scan(&returnedKey)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		if attempt == 2 {
			return err
		}
		if err := sleep(lock.Context, 200*time.Millisecond); err != nil {
			return err
		}
	}
	return ErrLost
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// An expired lock may be taken over by any holder; a live one only by
// the holder that already owns it.
const tryAcquireSQL = `
INSERT INTO job_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE job_locks.expires_at < now()
   OR job_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE job_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM job_locks
WHERE lock_key = $1 AND locked_by = $2;
`
