package testsupport

import (
	"context"
	"testing"

	"webtlo/internal/config"
	"webtlo/internal/registry"
)

// MustOpenStore opens a registry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store, err := registry.Open(context.Background(), cfg.DatabasePath())
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustUpsertReleases writes releases or fails the test.
func MustUpsertReleases(t testing.TB, store *registry.Store, batch ...registry.ReleaseUpdate) {
	t.Helper()

	if err := store.UpsertReleases(context.Background(), batch); err != nil {
		t.Fatalf("UpsertReleases: %v", err)
	}
}
