package testsupport

import (
	"testing"

	"lightbox/internal/config"
	"lightbox/internal/uploads"
)

// MustOpenStore opens a batch store for tests and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *uploads.Store {
	t.Helper()

	if cfg == nil {
		cfg = NewConfig(t)
	}
	store, err := uploads.OpenStore(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
