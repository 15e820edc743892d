// internal/config/types.go
package config

import (
	"time"

	lockerclient "github.com/avivl/locker/client/go/locker-client"
	"github.com/avivl/locker/internal/observability"
)

// GlobalConfig represents the complete application configuration
type GlobalConfig struct {
	Client        lockerclient.Config        `yaml:"client" mapstructure:"client"`
	Acquire       AcquireConfig              `yaml:"acquire" mapstructure:"acquire"`
	Logger        observability.LoggerConfig `yaml:"logger" mapstructure:"logger"`
	Observability observability.Config       `yaml:"observability" mapstructure:"observability"`
	FakeServer    FakeServerConfig           `yaml:"fakeServer" mapstructure:"fakeServer"`
}

// AcquireConfig holds the defaults used by the acquire command.
type AcquireConfig struct {
	// Timeout is how long to keep retrying while the lock is held. Zero means one attempt.
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryDelay time.Duration `yaml:"retryDelay" mapstructure:"retryDelay"`
	// TTL is the lease length in seconds.
	TTL int `yaml:"ttl" mapstructure:"ttl"`
}

// FakeServerConfig configures the in-memory locker service.
type FakeServerConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
}
