package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretStore abstracts secret retrieval so deployments can plug in a vault
// without touching the config layer.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, fallback string) string
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore {
	return &EnvironmentSecretStore{}
}

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("secret %s not found in environment", key)
	}
	return value, nil
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, fallback string) string {
	value, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	return value
}

var _ SecretStore = (*EnvironmentSecretStore)(nil)

// LoadSecretsFromEnv overlays sensitive values from the secret store onto the
// configuration. Used in production so secrets stay out of config files.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	store := NewEnvironmentSecretStore()

	c.Storage.Redis.Password = store.GetWithDefault(ctx, "LEARNKIT_REDIS_PASSWORD", c.Storage.Redis.Password)
	c.Storage.SQL.DSN = store.GetWithDefault(ctx, "LEARNKIT_SQL_DSN", c.Storage.SQL.DSN)

	if keys := store.GetWithDefault(ctx, "LEARNKIT_API_KEYS", ""); keys != "" {
		c.Security.APIKeys = splitAndTrim(keys)
	}
	return nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
