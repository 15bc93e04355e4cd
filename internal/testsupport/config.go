package testsupport

import (
	"path/filepath"
	"testing"

	"webtlo/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Tracker credentials are filled so keeper jobs pass their credential check.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Tracker.Login = "tester"
	cfgVal.Tracker.Password = "secret"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithoutTrackerCredentials clears the forum login and password.
func WithoutTrackerCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.Login = ""
		b.cfg.Tracker.Password = ""
	}
}

// WithClient appends a torrent-client definition.
func WithClient(client config.Client) ConfigOption {
	return func(b *configBuilder) {
		if client.TimeoutSeconds == 0 {
			client.TimeoutSeconds = 5
		}
		b.cfg.Clients = append(b.cfg.Clients, client)
	}
}

// WithSubsection appends a tracked subsection.
func WithSubsection(sub config.Subsection) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Subsections = append(b.cfg.Subsections, sub)
	}
}

// WithDeleteScope overrides the keeper pruning scope.
func WithDeleteScope(scope string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Keepers.DeleteScope = scope
	}
}

// WithMetricsTextfile points metrics export at a file inside the test directory.
func WithMetricsTextfile(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Textfile = filepath.Join(b.baseDir, name)
	}
}
