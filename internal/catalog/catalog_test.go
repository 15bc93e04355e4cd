package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webtlo/internal/catalog"
	"webtlo/internal/registry"
	"webtlo/internal/services"
	"webtlo/internal/testsupport"
)

func TestDayMarkerUsesLocalCalendarDate(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	late := time.Date(2024, 3, 7, 23, 30, 0, 0, moscow)
	if got := catalog.DayMarker(late); got != 19789 {
		t.Fatalf("DayMarker(late) = %d, want 19789", got)
	}
	early := time.Date(2024, 3, 8, 0, 30, 0, 0, moscow)
	if got := catalog.DayMarker(early); got != 19790 {
		t.Fatalf("DayMarker(early) = %d, want 19790", got)
	}
}

func TestImportRotatesOnNewDay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	day1, err := writeFeed(t, `{
	  "subsections": [{"id": 5, "name": "Jazz"}],
	  "releases": [{"id": 42, "subsection_id": 5, "name": "Kind of Blue", "seeders": 10, "metric_b": 3, "size": 700}]
	}`)
	if err != nil {
		t.Fatal(err)
	}
	res, err := catalog.Import(ctx, store, day1, 1, nil)
	if err != nil {
		t.Fatalf("Import day 1: %v", err)
	}
	if res.Subsections != 1 || res.Releases != 1 || res.Measured != 1 || res.Rotated != 0 {
		t.Fatalf("unexpected day 1 result %+v", res)
	}

	day2, err := writeFeed(t, `{"releases": [{"id": 42, "seeders": 7, "metric_b": 4}]}`)
	if err != nil {
		t.Fatal(err)
	}
	res, err = catalog.Import(ctx, store, day2, 2, nil)
	if err != nil {
		t.Fatalf("Import day 2: %v", err)
	}
	if res.Rotated != 1 {
		t.Fatalf("expected rotation on day 2, got %+v", res)
	}

	release, err := store.GetRelease(ctx, 42)
	if err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if release.Seeders != 7 || release.MetricB != 4 {
		t.Fatalf("live metrics not updated: %+v", release)
	}
	if release.Name != "Kind of Blue" || release.SubsectionID != 5 || release.Size != 700 {
		t.Fatalf("absent attributes must be preserved: %+v", release)
	}
	history, err := store.History(ctx, 42)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history.A[0] == nil || *history.A[0] != 10 {
		t.Fatalf("expected a0 == 10, got %v", history.A[0])
	}
	if history.B[0] == nil || *history.B[0] != 3 {
		t.Fatalf("expected b0 == 3, got %v", history.B[0])
	}
}

func TestImportSkipsMetricsWithoutSeeders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	feed := &catalog.Feed{Releases: []catalog.Release{{ID: 9, Name: registry.Ptr("Untitled")}}}
	res, err := catalog.Import(context.Background(), store, feed, 3, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Measured != 0 {
		t.Fatalf("expected no measurements, got %+v", res)
	}
	release, err := store.GetRelease(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if release.DayMarker != nil {
		t.Fatalf("day marker should stay unset, got %d", *release.DayMarker)
	}
}

func TestImportRejectsInvalidBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	feed := &catalog.Feed{Releases: []catalog.Release{{ID: 1}, {ID: 0}}}
	_, err := catalog.Import(context.Background(), store, feed, 1, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.GetRelease(context.Background(), 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("invalid batch must not write, got %v", err)
	}
}

func TestLoadFeedRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	if err := os.WriteFile(path, []byte(`{"releases": [`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := catalog.LoadFeed(path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func writeFeed(t *testing.T, body string) (*catalog.Feed, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return nil, err
	}
	return catalog.LoadFeed(path)
}
