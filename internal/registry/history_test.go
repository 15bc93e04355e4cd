package registry_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"webtlo/internal/registry"
	"webtlo/internal/services"
	"webtlo/internal/testsupport"
)

func TestReleaseSeederHistoryScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{
		ID:        42,
		Seeders:   registry.Ptr(10.0),
		DayMarker: registry.Ptr[int64](1),
	})
	rotated, err := store.ApplyMetricUpdate(ctx, registry.MetricUpdate{ID: 42, MetricA: 7, DayMarker: 2})
	if err != nil {
		t.Fatalf("ApplyMetricUpdate: %v", err)
	}
	if !rotated {
		t.Fatal("expected rotation")
	}

	hist, err := store.History(ctx, 42)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist.A[0] == nil || *hist.A[0] != 10 {
		t.Fatalf("expected a0 == 10, got %v", hist.A[0])
	}
	got, err := store.GetRelease(ctx, 42)
	if err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if got.Seeders != 7 {
		t.Fatalf("expected live seeders 7, got %v", got.Seeders)
	}
	if got.DayMarker == nil || *got.DayMarker != 2 {
		t.Fatalf("expected day marker 2, got %v", got.DayMarker)
	}
}

func TestApplyMetricUpdateSameMarkerLeavesHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{ID: 1, Seeders: registry.Ptr(1.0), DayMarker: registry.Ptr[int64](10)})
	if _, err := store.ApplyMetricUpdate(ctx, registry.MetricUpdate{ID: 1, MetricA: 4, MetricB: 0.5, DayMarker: 11}); err != nil {
		t.Fatalf("ApplyMetricUpdate: %v", err)
	}
	before, err := store.History(ctx, 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	rotated, err := store.ApplyMetricUpdate(ctx, registry.MetricUpdate{ID: 1, MetricA: 9, MetricB: 0.7, DayMarker: 11})
	if err != nil {
		t.Fatalf("ApplyMetricUpdate: %v", err)
	}
	if rotated {
		t.Fatal("same marker must not rotate")
	}
	after, err := store.History(ctx, 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("history changed on same marker:\n%v\n%v", before, after)
	}
	live, err := store.GetRelease(ctx, 1)
	if err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if live.Seeders != 9 || live.MetricB != 0.7 {
		t.Fatalf("live metrics should still be overwritten: %#v", live)
	}
}

func TestApplyMetricUpdateShiftsWindows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{
		ID:        5,
		Seeders:   registry.Ptr(0.0),
		MetricB:   registry.Ptr(100.0),
		DayMarker: registry.Ptr[int64](0),
	})
	// 35 day changes push values through the whole window.
	for day := int64(1); day <= 35; day++ {
		update := registry.MetricUpdate{ID: 5, MetricA: float64(day), MetricB: float64(100 + day), DayMarker: day}
		if _, err := store.ApplyMetricUpdate(ctx, update); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
	}
	hist, err := store.History(ctx, 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	// After day 35 the live value is 35; slot 0 holds the value of day 34.
	for i := 0; i < registry.HistorySlots; i++ {
		wantA := float64(34 - i)
		if hist.A[i] == nil || *hist.A[i] != wantA {
			t.Fatalf("A[%d]: want %v, got %v", i, wantA, hist.A[i])
		}
		wantB := 100 + wantA
		if hist.B[i] == nil || *hist.B[i] != wantB {
			t.Fatalf("B[%d]: want %v, got %v", i, wantB, hist.B[i])
		}
	}
}

func TestApplyMetricUpdateFirstMarkerDoesNotRotate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{ID: 8, Name: registry.Ptr("fresh")})
	rotated, err := store.ApplyMetricUpdate(ctx, registry.MetricUpdate{ID: 8, MetricA: 3, DayMarker: 20000})
	if err != nil {
		t.Fatalf("ApplyMetricUpdate: %v", err)
	}
	if rotated {
		t.Fatal("a release without a day marker adopts the first one without rotating")
	}
	hist, err := store.History(ctx, 8)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist.A[0] != nil {
		t.Fatalf("expected empty slot 0, got %v", *hist.A[0])
	}
}

func TestUpsertWithNewDayMarkerRotates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{ID: 42, Seeders: registry.Ptr(10.0), DayMarker: registry.Ptr[int64](1)})
	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{ID: 42, Seeders: registry.Ptr(7.0), DayMarker: registry.Ptr[int64](2)})
	// Same marker again: no second rotation.
	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{ID: 42, Seeders: registry.Ptr(6.0), DayMarker: registry.Ptr[int64](2)})

	hist, err := store.History(ctx, 42)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist.A[0] == nil || *hist.A[0] != 10 {
		t.Fatalf("expected a0 == 10, got %v", hist.A[0])
	}
	if hist.A[1] != nil {
		t.Fatalf("expected a1 empty, got %v", *hist.A[1])
	}
}

func TestApplyMetricUpdateUnknownRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.ApplyMetricUpdate(context.Background(), registry.MetricUpdate{ID: 404, MetricA: 1, DayMarker: 1})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyMetricUpdatesBatchIsAtomic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustUpsertReleases(t, store, registry.ReleaseUpdate{ID: 1, Seeders: registry.Ptr(1.0), DayMarker: registry.Ptr[int64](1)})
	_, err := store.ApplyMetricUpdates(ctx, []registry.MetricUpdate{
		{ID: 1, MetricA: 2, DayMarker: 2},
		{ID: 999, MetricA: 2, DayMarker: 2},
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := store.GetRelease(ctx, 1)
	if err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if got.Seeders != 1 || *got.DayMarker != 1 {
		t.Fatalf("failed batch must not apply earlier entries: %#v", got)
	}
}
