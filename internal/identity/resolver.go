// Package identity resolves hash-keyed client tasks to release ids.
//
// Lookups are tiered. The release registry is consulted first; only hashes
// it cannot resolve are looked up in the per-client task cache, whose data
// may be older. A tier-1 resolution is therefore never overridden.
package identity

import (
	"context"
	"log/slog"
	"sort"

	"webtlo/internal/logging"
	"webtlo/internal/registry"
)

// Record is what is known about one task during resolution.
type Record struct {
	TopicID      int64
	SubsectionID int64
	Name         string
	Status       string
	// Source names the tier that supplied TopicID ("" when it came with the task).
	Source string
}

const (
	SourceRegistry  = "registry"
	SourceTaskCache = "task_cache"
)

// TopicLookup resolves hashes against the release registry.
type TopicLookup interface {
	ReleasesByHashes(ctx context.Context, hashes []string) (map[string]registry.Release, error)
}

// TaskCacheLookup resolves hashes against the cached tasks of one client.
type TaskCacheLookup interface {
	CachedTasksByHashes(ctx context.Context, clientID string, hashes []string) (map[string]registry.ClientTask, error)
}

// Stats counts the outcome of one Resolve call.
type Stats struct {
	Missing    int `json:"missing"`
	FromTopics int `json:"from_topics"`
	FromCache  int `json:"from_cache"`
	Unresolved int `json:"unresolved"`
}

// Resolver fills in release ids for records that lack one.
type Resolver struct {
	topics TopicLookup
	cache  TaskCacheLookup
	logger *slog.Logger
}

// NewResolver constructs a resolver. cache may be nil to disable tier 2.
func NewResolver(topics TopicLookup, cache TaskCacheLookup, logger *slog.Logger) *Resolver {
	return &Resolver{
		topics: topics,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "identity"),
	}
}

// Resolve updates records in place. clientID selects the tier-2 cache. Record
// keys may use any hash case; lookups compare normalized hashes.
func (r *Resolver) Resolve(ctx context.Context, clientID string, records map[string]*Record) (Stats, error) {
	var stats Stats
	for hash, rec := range records {
		if rec == nil {
			records[hash] = &Record{}
		}
	}
	missing := missingHashes(records)
	stats.Missing = len(missing)
	if len(missing) == 0 {
		return stats, nil
	}

	if r.topics != nil {
		found, err := r.topics.ReleasesByHashes(ctx, missing)
		if err != nil {
			return stats, err
		}
		for _, hash := range missing {
			release, ok := found[registry.NormalizeHash(hash)]
			if !ok || release.ID == 0 {
				continue
			}
			mergeRelease(records[hash], release)
			stats.FromTopics++
		}
		r.logger.Debug("registry lookup finished",
			logging.Int("missing", len(missing)),
			logging.Int("filled", stats.FromTopics),
		)
		missing = missingHashes(records)
	}

	if r.cache != nil && len(missing) > 0 {
		found, err := r.cache.CachedTasksByHashes(ctx, clientID, missing)
		if err != nil {
			return stats, err
		}
		for _, hash := range missing {
			cached, ok := found[registry.NormalizeHash(hash)]
			if !ok || cached.TopicID == 0 {
				continue
			}
			mergeCached(records[hash], cached)
			stats.FromCache++
		}
		r.logger.Debug("task cache lookup finished",
			logging.Int("missing", len(missing)),
			logging.Int("filled", stats.FromCache),
		)
		missing = missingHashes(records)
	}

	stats.Unresolved = len(missing)
	return stats, nil
}

// missingHashes returns the sorted hashes whose record has no release id.
func missingHashes(records map[string]*Record) []string {
	var out []string
	for hash, rec := range records {
		if rec.TopicID == 0 {
			out = append(out, hash)
		}
	}
	sort.Strings(out)
	return out
}

// Resolved fields overwrite what the task reported.
func mergeRelease(rec *Record, release registry.Release) {
	rec.TopicID = release.ID
	rec.SubsectionID = release.SubsectionID
	if release.Name != "" {
		rec.Name = release.Name
	}
	rec.Source = SourceRegistry
}

func mergeCached(rec *Record, task registry.ClientTask) {
	rec.TopicID = task.TopicID
	if task.Name != "" {
		rec.Name = task.Name
	}
	rec.Source = SourceTaskCache
}
