// internal/config/config.go
// Package config loads the locker configuration from defaults, a YAML file,
// LOCKER_* environment variables and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	lockerclient "github.com/avivl/locker/client/go/locker-client"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g. LOCKER_CLIENT_USERNAME.
	EnvPrefix = "LOCKER"
	// ConfigName is the file name searched for when the path is a directory.
	ConfigName = "locker"
)

// ConfigLoader handles loading of configurations
type ConfigLoader struct {
	v             *viper.Viper
	mu            sync.RWMutex
	watchers      []func(*GlobalConfig)
	currentConfig *GlobalConfig
	lastError     error
}

// NewConfigLoader creates a new configuration loader. configPath may name a
// file, a directory holding locker.yaml, or be empty to search the working
// directory.
func NewConfigLoader(configPath string) *ConfigLoader {
	v := viper.New()
	v.SetConfigType("yaml")

	if info, err := os.Stat(configPath); configPath != "" && (err != nil || !info.IsDir()) {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(ConfigName)
		if configPath != "" {
			v.AddConfigPath(configPath)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &ConfigLoader{v: v}
}

// BindFlags makes the given flags override the keys they are mapped to.
// Flags the user did not set leave the key untouched.
func (cl *ConfigLoader) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("unknown flag %q for key %q", name, key)
		}
		if err := cl.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration file, if any, and returns the validated configuration.
func (cl *ConfigLoader) Load() (*GlobalConfig, error) {
	if err := cl.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config, err := loadConfiguration(cl.v)
	if err != nil {
		return nil, err
	}

	cl.mu.Lock()
	cl.currentConfig = config
	cl.lastError = nil
	cl.mu.Unlock()

	return config, nil
}

// ConfigFileUsed returns the file the configuration was read from, or "".
func (cl *ConfigLoader) ConfigFileUsed() string {
	return cl.v.ConfigFileUsed()
}

// Watch reloads the configuration whenever the file changes and notifies
// watchers with every configuration that validates. It does nothing when no
// file was read.
func (cl *ConfigLoader) Watch() {
	if cl.v.ConfigFileUsed() == "" {
		return
	}

	cl.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}

		newConfig, err := loadConfiguration(cl.v)
		if err != nil {
			cl.mu.Lock()
			cl.lastError = err
			cl.mu.Unlock()
			return
		}

		cl.mu.Lock()
		cl.currentConfig = newConfig
		cl.lastError = nil
		cl.mu.Unlock()

		cl.notifyWatchers(newConfig)
	})
	cl.v.WatchConfig()
}

// AddWatcher adds a callback function that will be called when configuration changes
func (cl *ConfigLoader) AddWatcher(callback func(*GlobalConfig)) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.watchers = append(cl.watchers, callback)
}

// GetCurrentConfig returns the current configuration
func (cl *ConfigLoader) GetCurrentConfig() *GlobalConfig {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.currentConfig
}

// GetLastError returns the error from the last reload, if it failed.
func (cl *ConfigLoader) GetLastError() error {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.lastError
}

// Render returns the effective configuration as YAML with the password masked.
func (cl *ConfigLoader) Render() (string, error) {
	cfg := cl.GetCurrentConfig()
	if cfg == nil {
		return "", fmt.Errorf("configuration not loaded")
	}

	masked := *cfg
	if masked.Client.Password != "" {
		masked.Client.Password = "****"
	}

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return "", fmt.Errorf("rendering configuration: %w", err)
	}
	return string(out), nil
}

func (cl *ConfigLoader) notifyWatchers(newConfig *GlobalConfig) {
	cl.mu.RLock()
	watchers := slices.Clone(cl.watchers)
	cl.mu.RUnlock()

	for _, watcher := range watchers {
		watcher(newConfig)
	}
}

// LoadConfig loads the configuration at configPath and starts watching it.
func LoadConfig(configPath string) (*ConfigLoader, *GlobalConfig, error) {
	cl := NewConfigLoader(configPath)

	config, err := cl.Load()
	if err != nil {
		return nil, nil, err
	}
	cl.Watch()

	return cl, config, nil
}

func loadConfiguration(v *viper.Viper) (*GlobalConfig, error) {
	config := &GlobalConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Client = config.Client.WithDefaults()

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for configuration. Every key needs a
// default so environment overrides are seen by Unmarshal.
func setDefaults(v *viper.Viper) {
	// Client defaults
	v.SetDefault("client.baseUrl", lockerclient.DefaultBaseURL)
	v.SetDefault("client.basePath", lockerclient.DefaultBasePath)
	v.SetDefault("client.username", "")
	v.SetDefault("client.password", "")

	// Acquire defaults
	v.SetDefault("acquire.timeout", lockerclient.DefaultAcquireTimeout)
	v.SetDefault("acquire.retryDelay", lockerclient.DefaultRetryDelay)
	v.SetDefault("acquire.ttl", 30)

	// Logger defaults
	v.SetDefault("logger.level", "LOG_LEVELS_INFOLEVEL")

	// OpenTelemetry defaults
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "locker")
	v.SetDefault("observability.serviceVersion", "0.1.0")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.otelEndpoint", "localhost:4317")

	// Fake server defaults
	v.SetDefault("fakeServer.address", ":8010")
}
