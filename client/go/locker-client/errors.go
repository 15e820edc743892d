package lockerclient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrLockNotFound is matched by errors.Is for a LockNotFoundError.
	ErrLockNotFound = errors.New("lock not found")
	// ErrAcquireTimeout is matched by errors.Is for a LockAcquireTimeoutError.
	ErrAcquireTimeout = errors.New("lock acquire timeout")
	// ErrOwnershipMismatch is matched by errors.Is for an OwnershipMismatchError.
	ErrOwnershipMismatch = errors.New("ownership token mismatch")
	// ErrInvalidConfig is matched by errors.Is for a ConfigError.
	ErrInvalidConfig = errors.New("invalid client configuration")
)

// ConfigError is returned by New when required settings are missing.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "config is missing the following keys: " + strings.Join(e.Missing, ", ")
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// LockNotFoundError is returned when the server has no lock with the id.
type LockNotFoundError struct {
	LockID string
}

func (e *LockNotFoundError) Error() string {
	return fmt.Sprintf("Lock '%s' not found.", e.LockID)
}

func (e *LockNotFoundError) Is(target error) bool { return target == ErrLockNotFound }

// LockAcquireTimeoutError is returned when a lock stayed held for the whole acquire budget.
type LockAcquireTimeoutError struct {
	LockID  string
	Timeout time.Duration
}

func (e *LockAcquireTimeoutError) Error() string {
	secs := strconv.FormatFloat(e.Timeout.Seconds(), 'f', -1, 64)
	return fmt.Sprintf("Could not acquire lock '%s' in %s seconds.", e.LockID, secs)
}

func (e *LockAcquireTimeoutError) Is(target error) bool { return target == ErrAcquireTimeout }

// OwnershipMismatchError is returned when renew or release is rejected
// because the token is wrong or the lock no longer exists.
type OwnershipMismatchError struct {
	LockID  string
	Message string
}

func (e *OwnershipMismatchError) Error() string { return e.Message }

func (e *OwnershipMismatchError) Is(target error) bool { return target == ErrOwnershipMismatch }

// StatusError is an unmapped non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s %s -> %d body=%q", e.Method, e.URL, e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
