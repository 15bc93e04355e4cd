// Package syncrun executes one synchronization pass over the configured
// torrent clients.
//
// A pass lists every client's tasks, resolves their hashes to releases,
// refreshes the per-client task cache and records which client seeds each
// resolved release. Clients are processed one at a time; a failing client is
// logged and skipped, a storage failure aborts the pass. Writes committed
// before a failure are kept.
package syncrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"webtlo/internal/clients"
	"webtlo/internal/config"
	"webtlo/internal/identity"
	"webtlo/internal/logging"
	"webtlo/internal/metrics"
	"webtlo/internal/registry"
	"webtlo/internal/services"
)

// Store is the registry surface used by a run.
type Store interface {
	identity.TopicLookup
	identity.TaskCacheLookup
	GetRelease(ctx context.Context, id int64) (registry.Release, error)
	ReplaceClientTasks(ctx context.Context, clientID string, tasks []registry.ClientTask, seenAt time.Time) error
	UpsertReleases(ctx context.Context, batch []registry.ReleaseUpdate) error
}

// StoreOpener opens the store for one run and returns its close function.
type StoreOpener func(ctx context.Context) (Store, func() error, error)

// AdapterFactory builds the adapter for one configured client.
type AdapterFactory func(cfg config.Client, opts clients.Options) (clients.Adapter, error)

// Options configures a Runner.
type Options struct {
	Logger     *slog.Logger
	RunLog     *logging.RunLog
	Metrics    *metrics.Run
	HTTPClient *http.Client
	// NewAdapter defaults to clients.New.
	NewAdapter AdapterFactory
	// OpenStore is used when New is given a nil store. It runs after the run
	// lock is held and every adapter is built.
	OpenStore StoreOpener
	Now       func() time.Time
}

// ClientResult describes what happened to one client.
type ClientResult struct {
	ClientID string         `json:"client_id"`
	Tasks    int            `json:"tasks"`
	Labeled  int            `json:"labeled"`
	Stats    identity.Stats `json:"stats"`
	Error    string         `json:"error,omitempty"`
}

// Result summarizes a run.
type Result struct {
	RunID    string         `json:"run_id"`
	Clients  []ClientResult `json:"clients"`
	Duration time.Duration  `json:"duration"`
}

// Failed reports how many clients were skipped because of an error.
func (r Result) Failed() int {
	n := 0
	for _, c := range r.Clients {
		if c.Error != "" {
			n++
		}
	}
	return n
}

// Runner performs synchronization runs.
type Runner struct {
	cfg        *config.Config
	store      Store
	openStore  StoreOpener
	logger     *slog.Logger
	runLog     *logging.RunLog
	metrics    *metrics.Run
	httpClient *http.Client
	newAdapter AdapterFactory
	now        func() time.Time
}

// New constructs a Runner.
func New(cfg *config.Config, store Store, opts Options) (*Runner, error) {
	if cfg == nil || (store == nil && opts.OpenStore == nil) {
		return nil, errors.New("syncrun requires config and store")
	}
	r := &Runner{
		cfg:        cfg,
		store:      store,
		openStore:  opts.OpenStore,
		logger:     logging.NewComponentLogger(opts.Logger, "sync"),
		runLog:     opts.RunLog,
		metrics:    opts.Metrics,
		httpClient: opts.HTTPClient,
		newAdapter: opts.NewAdapter,
		now:        opts.Now,
	}
	if r.newAdapter == nil {
		r.newAdapter = clients.New
	}
	if r.metrics == nil {
		r.metrics = metrics.NewRun()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

type boundClient struct {
	cfg     config.Client
	adapter clients.Adapter
}

// Run executes one pass. The run lock is held for its duration and the run
// log is flushed on every exit path.
func (r *Runner) Run(ctx context.Context) (result Result, err error) {
	start := r.now()
	result.RunID = uuid.NewString()
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, r.logger)

	defer func() {
		result.Duration = r.now().Sub(start)
		r.finish(logger, result, err)
	}()

	release, err := AcquireLock(r.cfg)
	if err != nil {
		return result, err
	}
	defer func() {
		if unlockErr := release(); unlockErr != nil {
			logger.Warn("release run lock failed", logging.Error(unlockErr))
		}
	}()

	bound, err := r.bindClients(logger)
	if err != nil {
		return result, err
	}
	defer func() {
		for _, bc := range bound {
			if closeErr := bc.adapter.Close(context.WithoutCancel(ctx)); closeErr != nil {
				logger.Debug("client close failed",
					logging.String(logging.FieldClientID, bc.cfg.ID),
					logging.Error(closeErr),
				)
			}
		}
	}()

	store := r.store
	if store == nil {
		opened, closeStore, err := r.openStore(ctx)
		if err != nil {
			return result, err
		}
		defer func() {
			if closeErr := closeStore(); closeErr != nil {
				logger.Warn("close store failed", logging.Error(closeErr))
			}
		}()
		store = opened
	}

	logger.Info("synchronization started", logging.Int("clients", len(bound)))
	resolver := identity.NewResolver(store, store, r.logger)
	for _, bc := range bound {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		clientCtx := services.WithClientID(ctx, bc.cfg.ID)
		cr, err := r.syncClient(clientCtx, store, bc, resolver)
		if err != nil {
			if services.IsFatal(err) {
				return result, err
			}
			r.metrics.IncClientFailure(bc.cfg.ID)
			logging.WarnWithContext(logging.WithContext(clientCtx, r.logger), "client skipped", "client_sync_failed",
				logging.Error(err),
				logging.String("error_kind", services.Kind(err)),
			)
			cr.Error = err.Error()
		}
		result.Clients = append(result.Clients, cr)
	}
	return result, nil
}

// bindClients builds every adapter before any network call so a bad kind
// fails the run up front.
func (r *Runner) bindClients(logger *slog.Logger) ([]boundClient, error) {
	bound := make([]boundClient, 0, len(r.cfg.Clients))
	for _, cc := range r.cfg.Clients {
		adapter, err := r.newAdapter(cc, clients.Options{HTTPClient: r.httpClient, Logger: r.logger})
		if err != nil {
			return nil, err
		}
		bound = append(bound, boundClient{
			cfg:     cc,
			adapter: clients.WithBreaker(adapter, cc.ID, logger),
		})
	}
	return bound, nil
}

func (r *Runner) syncClient(ctx context.Context, store Store, bc boundClient, resolver *identity.Resolver) (ClientResult, error) {
	logger := logging.WithContext(ctx, r.logger)
	cr := ClientResult{ClientID: bc.cfg.ID}

	tasks, err := bc.adapter.ListTasks(ctx)
	if err != nil {
		return cr, err
	}
	cr.Tasks = len(tasks)

	byStatus := make(map[string]int)
	records := make(map[string]*identity.Record, len(tasks))
	for hash, status := range tasks {
		byStatus[string(status)]++
		records[hash] = &identity.Record{Status: string(status)}
	}
	r.metrics.SetClientTasks(bc.cfg.ID, byStatus)

	stats, err := resolver.Resolve(ctx, bc.cfg.ID, records)
	if err != nil {
		return cr, err
	}
	cr.Stats = stats
	r.metrics.AddResolved(identity.SourceRegistry, stats.FromTopics)
	r.metrics.AddResolved(identity.SourceTaskCache, stats.FromCache)

	seenAt := r.now()
	cached := make([]registry.ClientTask, 0, len(records))
	for _, hash := range sortedHashes(records) {
		rec := records[hash]
		cached = append(cached, registry.ClientTask{
			ClientID: bc.cfg.ID,
			Hash:     hash,
			TopicID:  rec.TopicID,
			Name:     rec.Name,
			Status:   rec.Status,
		})
	}
	if err := store.ReplaceClientTasks(ctx, bc.cfg.ID, cached, seenAt); err != nil {
		return cr, err
	}

	labeled, err := r.applyLabels(ctx, store, bc, records)
	if err != nil {
		return cr, err
	}
	cr.Labeled = labeled

	logger.Info("client synchronized",
		logging.Int("tasks", cr.Tasks),
		logging.Int("from_topics", stats.FromTopics),
		logging.Int("from_cache", stats.FromCache),
		logging.Int("unresolved", stats.Unresolved),
		logging.Int("labeled", labeled),
	)
	return cr, nil
}

// applyLabels records the client label on every resolved release and pushes
// configured subsection labels to the client where it supports them.
func (r *Runner) applyLabels(ctx context.Context, store Store, bc boundClient, records map[string]*identity.Record) (int, error) {
	logger := logging.WithContext(ctx, r.logger)
	labels := make(map[int64]string)
	for _, sub := range r.cfg.SubsectionsForClient(bc.cfg.ID) {
		if sub.Label != "" {
			labels[sub.ID] = sub.Label
		}
	}

	var (
		updates []registry.ReleaseUpdate
		pending = make(map[string][]string)
	)
	for _, hash := range sortedHashes(records) {
		rec := records[hash]
		if rec.TopicID == 0 {
			continue
		}
		label := bc.cfg.ID
		if sub, ok := labels[rec.SubsectionID]; ok {
			label = sub
			pending[sub] = append(pending[sub], hash)
		}
		update := registry.ReleaseUpdate{ID: rec.TopicID, Label: registry.Ptr(label)}
		if rec.Source == identity.SourceTaskCache {
			// Releases first seen through the cache are created with the task hash.
			_, err := store.GetRelease(ctx, rec.TopicID)
			switch {
			case errors.Is(err, services.ErrNotFound):
				update.Hash = registry.Ptr(registry.NormalizeHash(hash))
			case err != nil:
				return 0, err
			}
		}
		updates = append(updates, update)
	}
	if err := store.UpsertReleases(ctx, updates); err != nil {
		return 0, err
	}

	for _, label := range sortedKeys(pending) {
		err := bc.adapter.SetLabel(ctx, pending[label], label)
		switch {
		case err == nil:
		case errors.Is(err, clients.ErrUnsupported):
			logger.Debug("client does not support labels", logging.String("label", label))
			return len(updates), nil
		case services.IsFatal(err):
			return len(updates), err
		default:
			logging.WarnWithContext(logger, "set client label failed", "client_label_failed",
				logging.String("label", label),
				logging.Error(err),
			)
		}
	}
	return len(updates), nil
}

func (r *Runner) finish(logger *slog.Logger, result Result, err error) {
	switch {
	case err != nil:
		logger.Error("synchronization failed",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
		)
	default:
		logger.Info("synchronization completed",
			logging.Int("clients", len(result.Clients)),
			logging.Int("failed", result.Failed()),
			logging.Duration("duration", result.Duration.Round(100*time.Millisecond)),
		)
	}

	r.metrics.Finish("sync", result.Duration, err, r.now())
	if writeErr := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); writeErr != nil {
		logger.Warn("metrics export failed", logging.Error(writeErr))
	}
	if r.runLog != nil {
		if flushErr := r.runLog.Flush(r.cfg.RunLogPath("sync"), r.cfg.Logging.RunLogMaxBytes); flushErr != nil {
			logger.Warn("run log flush failed", logging.Error(flushErr))
		}
	}
}

func sortedHashes(records map[string]*identity.Record) []string {
	hashes := make([]string, 0, len(records))
	for h := range records {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders a one-line summary for CLI output.
func (r Result) String() string {
	return fmt.Sprintf("run %s: %d clients, %d failed, %s", r.RunID, len(r.Clients), r.Failed(), r.Duration.Round(time.Millisecond))
}
