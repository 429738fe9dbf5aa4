package testsupport

import (
	"path/filepath"
	"testing"

	"lightbox/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Paths.APIToken = "test-token"
	cfg.Catalog.APIKey = "test-key"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithThumbnailEndpoint points the config at a test thumbnail service.
func WithThumbnailEndpoint(endpoint string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Thumbnails.Endpoint = endpoint
	}
}

// WithCatalogEndpoint points the config at a test catalog service.
func WithCatalogEndpoint(endpoint string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Catalog.Endpoint = endpoint
	}
}
