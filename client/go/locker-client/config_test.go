package lockerclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected Config
	}{
		{
			name:     "empty",
			cfg:      Config{},
			expected: Config{BaseURL: DefaultBaseURL, BasePath: DefaultBasePath},
		},
		{
			name:     "trims slashes",
			cfg:      Config{BaseURL: "https://locker.example.com/", BasePath: "api/locks/"},
			expected: Config{BaseURL: "https://locker.example.com", BasePath: "/api/locks"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.WithDefaults())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, NewConfig("u", "p").Validate())

	err := Config{}.Validate()
	require.Error(t, err)
	assert.EqualError(t, err, "config is missing the following keys: base_url, username, password")
}

func TestConfig_String(t *testing.T) {
	s := NewConfig("u", "secret").String()

	assert.NotContains(t, s, "secret")
	assert.Contains(t, s, "****")
	assert.Contains(t, s, DefaultBaseURL)
}
