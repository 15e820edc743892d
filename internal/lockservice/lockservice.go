// internal/lockservice/lockservice.go
// Package lockservice keeps a lock leased for as long as its owner needs it:
// it acquires the lock, renews it in the background and releases it on Stop.
package lockservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lockerclient "github.com/avivl/locker/client/go/locker-client"
	"github.com/avivl/locker/internal/observability"
)

const (
	minRenewInterval = time.Second
	renewTimeout     = 5 * time.Second
)

var (
	// ErrAlreadyStarted is returned by Start on a running Keeper.
	ErrAlreadyStarted = errors.New("keeper is already running")
	// ErrLeaseExpired is reported through OnLockLost when renewals kept
	// failing for a whole ttl.
	ErrLeaseExpired = errors.New("lease expired before it could be renewed")
)

// Locker is the part of the locker client a Keeper uses.
type Locker interface {
	AcquireLock(ctx context.Context, lockID string, ttl int, message string, timeout time.Duration) (*lockerclient.Lock, error)
	RenewLock(ctx context.Context, lockID, token string, ttl int) (*lockerclient.Lock, error)
	ReleaseLock(ctx context.Context, lockID, token string, force bool) (*lockerclient.Lock, error)
}

// Keeper holds a single lock on behalf of its owner.
type Keeper struct {
	locker    Locker
	lockID    string
	ttl       int
	message   string
	timeout   time.Duration
	interval  time.Duration
	callbacks Callbacks
	logger    *observability.SLogger
	now       func() time.Time

	mu          sync.Mutex
	lock        *lockerclient.Lock
	lastRenewed time.Time
	lostErr     error
	stop        chan struct{}
	done        chan struct{}
}

// Option is a function that configures a Keeper
type Option func(*Keeper)

// WithCallbacks sets the lease notifications.
func WithCallbacks(c Callbacks) Option {
	return func(k *Keeper) {
		if c != nil {
			k.callbacks = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *observability.SLogger) Option {
	return func(k *Keeper) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithMessage sets the message stored with the lock.
func WithMessage(m string) Option {
	return func(k *Keeper) { k.message = m }
}

// WithAcquireTimeout sets how long Start waits for a held lock.
func WithAcquireTimeout(d time.Duration) Option {
	return func(k *Keeper) { k.timeout = d }
}

// WithRenewInterval overrides the renewal period, a third of the ttl by default.
func WithRenewInterval(d time.Duration) Option {
	return func(k *Keeper) {
		if d > 0 {
			k.interval = d
		}
	}
}

// New creates a Keeper for lockID with a lease of ttl seconds.
func New(locker Locker, lockID string, ttl int, opts ...Option) *Keeper {
	k := &Keeper{
		locker:    locker,
		lockID:    lockID,
		ttl:       ttl,
		timeout:   lockerclient.DefaultAcquireTimeout,
		callbacks: NoOpCallbacks{},
		logger:    observability.NewNopLogger(),
		now:       time.Now,
	}

	k.interval = time.Duration(ttl) * time.Second / 3
	if k.interval < minRenewInterval {
		k.interval = minRenewInterval
	}

	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Start acquires the lock and begins renewing it. Renewal stops when ctx is
// done, Stop is called, or the lease is lost. A Keeper whose lease was lost
// can be started again.
func (k *Keeper) Start(ctx context.Context) (*lockerclient.Lock, error) {
	stop, done := make(chan struct{}), make(chan struct{})

	k.mu.Lock()
	if k.stop != nil {
		k.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	k.stop, k.done = stop, done
	k.mu.Unlock()

	lock, err := k.locker.AcquireLock(ctx, k.lockID, k.ttl, k.message, k.timeout)
	if err != nil {
		k.clearRun(stop)
		close(done)
		return nil, err
	}

	k.mu.Lock()
	k.lock = lock
	k.lastRenewed = k.now()
	k.lostErr = nil
	k.mu.Unlock()

	k.logger.InfoCtx(ctx, "lock acquired", "lock_id", k.lockID, "ttl", k.ttl)
	k.callbacks.OnLockAcquired(lock)

	// A Stop issued while acquiring has already closed stop; the loop then
	// exits at once and Stop releases the lock.
	go k.renewLoop(ctx, stop, done)
	return lock, nil
}

// clearRun marks the run identified by stop as over unless Stop or a newer
// Start has replaced it. done is kept so Done keeps reporting that run.
func (k *Keeper) clearRun(stop chan struct{}) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stop == stop {
		k.stop = nil
	}
}

func (k *Keeper) renewLoop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if lost := k.renew(ctx); lost != nil {
				k.mu.Lock()
				k.lock = nil
				k.lostErr = lost
				k.mu.Unlock()
				k.clearRun(stop)

				k.logger.WarnCtx(ctx, "lock lost", "lock_id", k.lockID, "error", lost.Error())
				k.callbacks.OnLockLost(lost)
				return
			}
		}
	}
}

// renew refreshes the lease once. It returns an error only when the lease is gone.
func (k *Keeper) renew(ctx context.Context) error {
	k.mu.Lock()
	token := k.lock.OwnershipToken()
	k.mu.Unlock()

	renewCtx, cancel := context.WithTimeout(ctx, renewTimeout)
	lock, err := k.locker.RenewLock(renewCtx, k.lockID, token, k.ttl)
	cancel()

	if err == nil {
		k.mu.Lock()
		k.lock = lock
		k.lastRenewed = k.now()
		k.mu.Unlock()

		k.callbacks.OnLockRenewed(lock)
		return nil
	}

	if errors.Is(err, lockerclient.ErrOwnershipMismatch) {
		return err
	}

	k.mu.Lock()
	expired := k.now().Sub(k.lastRenewed) >= time.Duration(k.ttl)*time.Second
	k.mu.Unlock()
	if expired {
		return fmt.Errorf("%w: %v", ErrLeaseExpired, err)
	}

	k.logger.WarnCtx(ctx, "lock renewal failed, will retry", "lock_id", k.lockID, "error", err.Error())
	return nil
}

// Stop ends renewal and releases the lock if it is still held.
func (k *Keeper) Stop(ctx context.Context) error {
	k.mu.Lock()
	stop, done := k.stop, k.done
	k.stop = nil
	k.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done

	k.mu.Lock()
	lock := k.lock
	k.lock = nil
	k.mu.Unlock()

	if lock == nil {
		return nil
	}

	if _, err := k.locker.ReleaseLock(ctx, k.lockID, lock.OwnershipToken(), false); err != nil {
		return fmt.Errorf("failed to release lock %q: %w", k.lockID, err)
	}
	k.logger.InfoCtx(ctx, "lock released", "lock_id", k.lockID)
	return nil
}

// Lock returns the most recent lease, or nil when the lock is not held.
func (k *Keeper) Lock() *lockerclient.Lock {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lock
}

// Held reports whether the lock is currently held.
func (k *Keeper) Held() bool {
	return k.Lock() != nil
}

// Err returns why the lease was lost, or nil.
func (k *Keeper) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lostErr
}

// Done is closed once the latest run's renewal has stopped. It is nil
// before the first Start.
func (k *Keeper) Done() <-chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.done
}
