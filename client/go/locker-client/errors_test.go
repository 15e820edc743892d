package lockerclient

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		expected string
	}{
		{"not found", &LockNotFoundError{LockID: "jobs"}, ErrLockNotFound, "Lock 'jobs' not found."},
		{"timeout whole", &LockAcquireTimeoutError{LockID: "jobs", Timeout: 30 * time.Second}, ErrAcquireTimeout, "Could not acquire lock 'jobs' in 30 seconds."},
		{"timeout fraction", &LockAcquireTimeoutError{LockID: "jobs", Timeout: 1500 * time.Millisecond}, ErrAcquireTimeout, "Could not acquire lock 'jobs' in 1.5 seconds."},
		{"mismatch", &OwnershipMismatchError{LockID: "jobs", Message: "Lock UUID mismatch."}, ErrOwnershipMismatch, "Lock UUID mismatch."},
		{"config", &ConfigError{Missing: []string{"username", "password"}}, ErrInvalidConfig, "config is missing the following keys: username, password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.expected)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.sentinel)
		})
	}
}

func TestStatusCode(t *testing.T) {
	err := &StatusError{Method: "POST", URL: "http://x/locks/a.json", StatusCode: 503, Body: "busy"}

	assert.Equal(t, 503, StatusCode(err))
	assert.Equal(t, 503, StatusCode(fmt.Errorf("wrapped: %w", err)))
	assert.Zero(t, StatusCode(errors.New("plain")))
	assert.Zero(t, StatusCode(nil))
	assert.Contains(t, err.Error(), "503")
}
