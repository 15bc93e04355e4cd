package keepers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"webtlo/internal/config"
	"webtlo/internal/logging"
	"webtlo/internal/registry"
	"webtlo/internal/services"
)

// Roster is the forum-side collaborator that knows the keeper reports.
type Roster interface {
	// FindReleaseIDByTitle returns the report topic for a subsection title.
	FindReleaseIDByTitle(ctx context.Context, title string) (int64, bool, error)
	// ScanKeeperRoster lists the pairs posted in a report topic.
	ScanKeeperRoster(ctx context.Context, topicID int64, keepersOnly bool, pageSize int) ([]registry.KeeperPair, error)
}

// Store is the subset of the registry the syncer writes through.
type Store interface {
	ReconcileKeepers(ctx context.Context, scanned []registry.KeeperPair, scope registry.KeeperScope) (registry.KeeperChanges, error)
	ReleaseIDsInSubsections(ctx context.Context, subsectionIDs []int64) ([]int64, error)
}

// Result summarizes one roster refresh.
type Result struct {
	Scanned  []int64       `json:"scanned"`
	Skipped  []int64       `json:"skipped"`
	Pairs    int           `json:"pairs"`
	Inserted int64         `json:"inserted"`
	Deleted  int64         `json:"deleted"`
	Duration time.Duration `json:"duration"`
}

// Syncer reconciles the keeper roster.
type Syncer struct {
	cfg     *config.Config
	store   Store
	roster  Roster
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewSyncer constructs a syncer. Roster calls are throttled to
// keepers.requests_per_second; zero or negative disables throttling.
func NewSyncer(cfg *config.Config, store Store, roster Roster, logger *slog.Logger) *Syncer {
	limit := rate.Inf
	if cfg != nil && cfg.Keepers.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.Keepers.RequestsPerSecond)
	}
	return &Syncer{
		cfg:     cfg,
		store:   store,
		roster:  roster,
		logger:  logging.NewComponentLogger(logger, "keepers"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Run scans the given subsections and reconciles the durable roster with what
// was found. Missing tracker credentials fail before any roster or database
// call.
func (s *Syncer) Run(ctx context.Context, subsections []config.Subsection) (Result, error) {
	if s.cfg == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "keepers", "run", "configuration unavailable", nil)
	}
	if err := s.cfg.RequireTrackerCredentials(); err != nil {
		return Result{}, err
	}
	if s.store == nil || s.roster == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "keepers", "run", "store and roster are required", nil)
	}

	start := time.Now()
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("keeper roster refresh started", logging.Int("subsections", len(subsections)))

	var (
		result  Result
		scratch = newPairSet()
	)
	for _, sub := range subsections {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		subCtx := services.WithSubsectionID(ctx, sub.ID)
		pairs, err := s.scanSubsection(subCtx, sub)
		if err != nil {
			if services.IsFatal(err) {
				return result, err
			}
			logging.WarnWithContext(logging.WithContext(subCtx, s.logger), "keeper scan failed", "keepers_scan_failed",
				logging.Error(err),
				logging.String("error_kind", services.Kind(err)),
			)
			result.Skipped = append(result.Skipped, sub.ID)
			continue
		}
		if pairs == nil {
			result.Skipped = append(result.Skipped, sub.ID)
			continue
		}
		scratch.addAll(pairs)
		result.Scanned = append(result.Scanned, sub.ID)
	}

	result.Pairs = scratch.len()
	if result.Pairs == 0 {
		logger.Info("no keeper pairs scanned, roster left unchanged")
		result.Duration = time.Since(start)
		return result, nil
	}

	scope, err := s.scope(ctx, scratch, result.Scanned)
	if err != nil {
		return result, err
	}
	logger.Info("writing keeper roster",
		logging.Int("pairs", result.Pairs),
		logging.Bool("global_scope", scope.Global),
	)
	changes, err := s.store.ReconcileKeepers(ctx, scratch.pairs(), scope)
	if err != nil {
		return result, err
	}
	result.Inserted = changes.Inserted
	result.Deleted = changes.Deleted
	result.Duration = time.Since(start)
	logger.Info("keeper roster refresh completed",
		logging.Int64("inserted", changes.Inserted),
		logging.Int64("deleted", changes.Deleted),
		logging.Duration("duration", result.Duration.Round(100*time.Millisecond)),
	)
	return result, nil
}

// scanSubsection returns nil pairs with a nil error when the subsection has no
// report topic.
func (s *Syncer) scanSubsection(ctx context.Context, sub config.Subsection) ([]registry.KeeperPair, error) {
	logger := logging.WithContext(ctx, s.logger)
	title := strings.TrimSpace(sub.Title)
	if title == "" {
		logging.WarnWithContext(logger, "subsection has no title, report topic cannot be found", "keepers_title_missing")
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	topicID, ok, err := s.roster.FindReleaseIDByTitle(ctx, title)
	if err != nil {
		return nil, asAdapterError("find report topic", err)
	}
	if !ok {
		logging.WarnWithContext(logger, "report topic not found", "keepers_report_missing", logging.String("title", title))
		return nil, nil
	}

	logger.Info("scanning keeper report", logging.Int64(logging.FieldTopicID, topicID))
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	pairs, err := s.roster.ScanKeeperRoster(ctx, topicID, true, s.pageSize())
	if err != nil {
		return nil, asAdapterError("scan keeper roster", err)
	}
	if pairs == nil {
		pairs = []registry.KeeperPair{}
	}
	return pairs, nil
}

func (s *Syncer) pageSize() int {
	if s.cfg.Keepers.PageSize > 0 {
		return s.cfg.Keepers.PageSize
	}
	return 1000
}

func (s *Syncer) scope(ctx context.Context, scratch *pairSet, scanned []int64) (registry.KeeperScope, error) {
	if s.cfg.Keepers.DeleteScope == config.DeleteScopeGlobal {
		return registry.KeeperScope{Global: true}, nil
	}
	covered := scratch.topicIDs()
	ids, err := s.store.ReleaseIDsInSubsections(ctx, scanned)
	if err != nil {
		return registry.KeeperScope{}, err
	}
	return registry.KeeperScope{TopicIDs: append(covered, ids...)}, nil
}

// asAdapterError tags roster failures as recoverable unless they already carry
// a marker or come from cancellation.
func asAdapterError(op string, err error) error {
	if services.Kind(err) != "unknown" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrAdapter, "keepers", op, "roster request failed", err)
}
