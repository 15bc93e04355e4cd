// Package catalog applies snapshots of the tracker's subsection and release
// catalog to the registry.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-json"

	"webtlo/internal/logging"
	"webtlo/internal/registry"
	"webtlo/internal/services"
)

// Subsection is one catalog subsection entry.
type Subsection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Release is one catalog release entry. Absent attributes keep their stored
// values; live metrics are applied only when seeders is present.
type Release struct {
	ID           int64    `json:"id"`
	SubsectionID *int64   `json:"subsection_id"`
	Name         *string  `json:"name"`
	Hash         *string  `json:"hash"`
	Seeders      *float64 `json:"seeders"`
	Size         *int64   `json:"size"`
	Status       *int64   `json:"status"`
	Rank         *int64   `json:"rank"`
	MetricB      *float64 `json:"metric_b"`
}

// Feed is a catalog snapshot.
type Feed struct {
	Subsections []Subsection `json:"subsections"`
	Releases    []Release    `json:"releases"`
}

// Store is the registry surface the import writes through.
type Store interface {
	UpsertSubsections(ctx context.Context, batch []registry.Subsection) error
	UpsertReleases(ctx context.Context, batch []registry.ReleaseUpdate) error
	ApplyMetricUpdates(ctx context.Context, updates []registry.MetricUpdate) (int, error)
}

// Result summarizes an import.
type Result struct {
	Subsections int `json:"subsections"`
	Releases    int `json:"releases"`
	Measured    int `json:"measured"`
	Rotated     int `json:"rotated"`
}

// LoadFeed reads a catalog snapshot from disk.
func LoadFeed(path string) (*Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog feed: %w", err)
	}
	var feed Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "parse feed", "invalid JSON", err)
	}
	return &feed, nil
}

// DayMarker returns the number of whole days between the Unix epoch and the
// calendar date of t in t's location.
func DayMarker(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Import upserts the feed's subsections, then its release attributes, then
// the live metrics under dayMarker. Each stage is one transaction; a failure
// leaves earlier stages committed.
func Import(ctx context.Context, store Store, feed *Feed, dayMarker int64, logger *slog.Logger) (Result, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "catalog"))
	if feed == nil {
		return Result{}, nil
	}

	subsections := make([]registry.Subsection, 0, len(feed.Subsections))
	for _, s := range feed.Subsections {
		subsections = append(subsections, registry.Subsection{ID: s.ID, Name: s.Name})
	}
	if err := store.UpsertSubsections(ctx, subsections); err != nil {
		return Result{}, err
	}
	result := Result{Subsections: len(subsections)}

	releases := make([]registry.ReleaseUpdate, 0, len(feed.Releases))
	var updates []registry.MetricUpdate
	for _, r := range feed.Releases {
		releases = append(releases, registry.ReleaseUpdate{
			ID:           r.ID,
			SubsectionID: r.SubsectionID,
			Name:         r.Name,
			Hash:         r.Hash,
			Size:         r.Size,
			Status:       r.Status,
			Rank:         r.Rank,
		})
		if r.Seeders == nil {
			continue
		}
		u := registry.MetricUpdate{ID: r.ID, MetricA: *r.Seeders, DayMarker: dayMarker}
		if r.MetricB != nil {
			u.MetricB = *r.MetricB
		}
		updates = append(updates, u)
	}
	if err := store.UpsertReleases(ctx, releases); err != nil {
		return result, err
	}
	result.Releases = len(releases)

	rotated, err := store.ApplyMetricUpdates(ctx, updates)
	if err != nil {
		return result, err
	}
	result.Measured = len(updates)
	result.Rotated = rotated

	logger.Info("catalog imported",
		logging.Int("subsections", result.Subsections),
		logging.Int("releases", result.Releases),
		logging.Int("measured", result.Measured),
		logging.Int("rotated", result.Rotated),
		logging.Int64("day_marker", dayMarker),
	)
	return result, nil
}
