// internal/lockservice/callbacks.go
package lockservice

import lockerclient "github.com/avivl/locker/client/go/locker-client"

// Callbacks defines the interface for lease change notifications
type Callbacks interface {
	// OnLockAcquired is called once the lock has been acquired
	OnLockAcquired(lock *lockerclient.Lock)

	// OnLockRenewed is called after every successful renewal
	OnLockRenewed(lock *lockerclient.Lock)

	// OnLockLost is called when the lease can no longer be kept.
	// err explains why; renewal stops afterwards.
	OnLockLost(err error)
}

// NoOpCallbacks implements Callbacks with empty methods
// Useful as a default when no callbacks are provided
type NoOpCallbacks struct{}

// OnLockAcquired implements Callbacks.OnLockAcquired with an empty method
func (NoOpCallbacks) OnLockAcquired(*lockerclient.Lock) {}

// OnLockRenewed implements Callbacks.OnLockRenewed with an empty method
func (NoOpCallbacks) OnLockRenewed(*lockerclient.Lock) {}

// OnLockLost implements Callbacks.OnLockLost with an empty method
func (NoOpCallbacks) OnLockLost(error) {}
