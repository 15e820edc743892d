// internal/config/validator.go
package config

import (
	"fmt"
)

// validateConfig validates all configuration sections
func validateConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if err := cfg.Client.Validate(); err != nil {
		return err
	}

	if cfg.Acquire.Timeout < 0 {
		return fmt.Errorf("acquire timeout cannot be negative")
	}
	if cfg.Acquire.RetryDelay < 0 {
		return fmt.Errorf("acquire retry delay cannot be negative")
	}

	// OpenTelemetry settings only matter when exporting
	if cfg.Observability.Enabled {
		if cfg.Observability.ServiceName == "" {
			return fmt.Errorf("service name is required")
		}
		if cfg.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required")
		}
	}

	if cfg.FakeServer.Address == "" {
		return fmt.Errorf("fake server address is required")
	}

	return nil
}
