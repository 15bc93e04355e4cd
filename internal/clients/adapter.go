package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"webtlo/internal/config"
	"webtlo/internal/services"
)

// Adapter is the normalized control surface of one torrent client.
// Hashes are upper-case hex content hashes.
type Adapter interface {
	// ListTasks reports every task with a normalized status, keyed by hash.
	// Tasks in an error state or an unmapped state are omitted.
	ListTasks(ctx context.Context) (map[string]Status, error)
	AddTask(ctx context.Context, filePath, destPath string) error
	SetLabel(ctx context.Context, hashes []string, label string) error
	Start(ctx context.Context, hashes []string, force bool) error
	Stop(ctx context.Context, hashes []string) error
	Remove(ctx context.Context, hashes []string, deleteLocalData bool) error
	// Close ends the client session.
	Close(ctx context.Context) error
}

// Options carries shared dependencies handed to vendor factories.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Factory constructs an adapter for one configured client.
type Factory func(cfg config.Client, opts Options) (Adapter, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a vendor available under kind. It panics on duplicates,
// which only happens through a programming error at init time.
func Register(kind string, factory Factory) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if factory == nil {
		panic("clients: nil factory for " + kind)
	}
	if _, exists := factories[kind]; exists {
		panic("clients: duplicate registration for " + kind)
	}
	factories[kind] = factory
}

// Kinds lists the registered vendor kinds in sorted order.
func Kinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds the adapter for cfg.Kind. An unknown kind is a configuration error.
func New(cfg config.Client, opts Options) (Adapter, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	factoriesMu.RLock()
	factory, ok := factories[kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: client %q: unsupported kind %q (known: %s)",
			services.ErrConfiguration, cfg.ID, cfg.Kind, strings.Join(Kinds(), ", "))
	}
	if opts.HTTPClient == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	return factory(cfg, opts)
}
