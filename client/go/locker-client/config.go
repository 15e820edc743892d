package lockerclient

import (
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "http://localhost:8010"
	DefaultBasePath = "/locks"

	// DefaultAcquireTimeout is the budget AcquireLockDefault retries within.
	DefaultAcquireTimeout = 30 * time.Second
	// DefaultRetryDelay is the wait between acquire attempts.
	DefaultRetryDelay = time.Second
	// DefaultRequestTimeout bounds a single HTTP attempt.
	DefaultRequestTimeout = 10 * time.Second
)

// Config holds what the client needs to reach the locker service.
type Config struct {
	BaseURL  string `yaml:"baseUrl" mapstructure:"baseUrl"`
	BasePath string `yaml:"basePath" mapstructure:"basePath"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// NewConfig returns a configuration with default values and the given credentials.
func NewConfig(username, password string) Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		BasePath: DefaultBasePath,
		Username: username,
		Password: password,
	}
}

// WithDefaults fills in the base URL and path when they are empty.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
	return c
}

// Validate reports every required key that is missing.
func (c Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}

	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// Params returns the settings needed to build an equivalent client.
func (c Config) Params() map[string]string {
	return map[string]string{
		"base_url": c.BaseURL,
		"username": c.Username,
		"password": c.Password,
	}
}

// String returns the configuration with the password masked.
func (c Config) String() string {
	password := ""
	if c.Password != "" {
		password = "****"
	}
	return "Config{BaseURL: " + c.BaseURL + ", BasePath: " + c.BasePath +
		", Username: " + c.Username + ", Password: " + password + "}"
}
