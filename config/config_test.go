package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test loading default config
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify defaults
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "async", cfg.Events.Dispatch)
	assert.True(t, cfg.Leaderboard.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("LEARNKIT_SERVER_ADDR", ":7070")
	os.Setenv("LEARNKIT_EVENTS_DISPATCH", "sync")
	defer os.Unsetenv("LEARNKIT_SERVER_ADDR")
	defer os.Unsetenv("LEARNKIT_EVENTS_DISPATCH")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "sync", cfg.Events.Dispatch)
}

func TestLoadEnvTypedValues(t *testing.T) {
	os.Setenv("LEARNKIT_SERVER_READ_TIMEOUT", "15s")
	os.Setenv("LEARNKIT_LEADERBOARD_ENABLED", "false")
	os.Setenv("LEARNKIT_LEADERBOARD_TOP_N", "25")
	os.Setenv("LEARNKIT_EVENTS_WEBHOOKS", "http://a.example/hook, http://b.example/hook")
	defer os.Unsetenv("LEARNKIT_SERVER_READ_TIMEOUT")
	defer os.Unsetenv("LEARNKIT_LEADERBOARD_ENABLED")
	defer os.Unsetenv("LEARNKIT_LEADERBOARD_TOP_N")
	defer os.Unsetenv("LEARNKIT_EVENTS_WEBHOOKS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Leaderboard.Enabled)
	assert.Equal(t, 25, cfg.Leaderboard.TopN)
	assert.Equal(t, []string{"http://a.example/hook", "http://b.example/hook"}, cfg.Events.WebhookEndpoints)
}

func TestLoadEnvBadValue(t *testing.T) {
	os.Setenv("LEARNKIT_SERVER_READ_TIMEOUT", "soon")
	defer os.Unsetenv("LEARNKIT_SERVER_READ_TIMEOUT")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEARNKIT_SERVER_READ_TIMEOUT")
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	configContent := `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "memory"
		}
	}`

	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	// Load config from file
	cfg, err := LoadFromFile(tmpFile.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
}

func validTestConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Address:           ":8080",
			ReadTimeout:       time.Second,
			WriteTimeout:      time.Second,
			IdleTimeout:       time.Second,
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Events: EventsConfig{
			Dispatch: "sync",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid config", func(*Config) {}, false},
		{"invalid environment", func(c *Config) { c.Environment = "" }, true},
		{"invalid server timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"invalid adapter", func(c *Config) { c.Storage.Adapter = "cassandra" }, true},
		{"sql adapter needs dsn", func(c *Config) { c.Storage.Adapter = "sql" }, true},
		{"invalid dispatch", func(c *Config) { c.Events.Dispatch = "fanout" }, true},
		{"rate limit needs rpm", func(c *Config) { c.Security.EnableRateLimit = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		name         string
		profileName  string
		expectConfig bool
		environment  Environment
	}{
		{"development", "development", true, EnvDevelopment},
		{"testing", "testing", true, EnvTesting},
		{"staging", "staging", true, EnvStaging},
		{"production", "production", true, EnvProduction},
		{"unknown", "unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadProfile(tt.profileName)
			if tt.expectConfig {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				assert.Equal(t, tt.environment, cfg.Environment)
			} else {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			}
		})
	}
}

func TestSecrets(t *testing.T) {
	// Test environment secret store
	store := NewEnvironmentSecretStore()

	// Set test environment variable
	testKey := "TEST_SECRET_KEY"
	testValue := "test_secret_value"
	os.Setenv(testKey, testValue)
	defer os.Unsetenv(testKey)

	ctx := context.Background()

	// Test Get
	value, err := store.Get(ctx, testKey)
	assert.NoError(t, err)
	assert.Equal(t, testValue, value)

	// Test GetWithDefault
	defaultValue := "default"
	value = store.GetWithDefault(ctx, "NONEXISTENT_KEY", defaultValue)
	assert.Equal(t, defaultValue, value)

	value = store.GetWithDefault(ctx, testKey, defaultValue)
	assert.Equal(t, testValue, value)
}

func TestValidateConfigPath(t *testing.T) {
	tmpJSON, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	tmpJSON.WriteString("{}")
	tmpJSON.Close()
	defer os.Remove(tmpJSON.Name())

	tmpTxt, err := os.CreateTemp("", "config_test_*.txt")
	require.NoError(t, err)
	tmpTxt.WriteString("{}")
	tmpTxt.Close()
	defer os.Remove(tmpTxt.Name())

	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"valid json file", tmpJSON.Name(), false},
		{"empty path", "", true},
		{"path traversal", "../../../etc/passwd", true},
		{"non-json file", tmpTxt.Name(), true},
		{"nonexistent file", "nonexistent.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
