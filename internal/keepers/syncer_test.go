package keepers_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"webtlo/internal/config"
	"webtlo/internal/keepers"
	"webtlo/internal/registry"
	"webtlo/internal/services"
	"webtlo/internal/testsupport"
)

const rosterJSON = `{
  "reports": [
    {"title": "[Список] Jazz and Blues", "topic_id": 9001},
    {"title": "CLASSICAL MUSIC", "topic_id": 9002}
  ],
  "keepers": {
    "9001": [
      {"topic_id": 100, "nick": "alice"},
      {"topic_id": 100, "nick": "bob"},
      {"topic_id": 100, "nick": "alice"}
    ],
    "9002": []
  }
}`

type countingRoster struct {
	keepers.Roster
	finds int
	scans int
	fail  map[string]error
}

func (r *countingRoster) FindReleaseIDByTitle(ctx context.Context, title string) (int64, bool, error) {
	r.finds++
	if err, ok := r.fail[title]; ok {
		return 0, false, err
	}
	return r.Roster.FindReleaseIDByTitle(ctx, title)
}

func (r *countingRoster) ScanKeeperRoster(ctx context.Context, topicID int64, keepersOnly bool, pageSize int) ([]registry.KeeperPair, error) {
	r.scans++
	return r.Roster.ScanKeeperRoster(ctx, topicID, keepersOnly, pageSize)
}

func newRoster(t *testing.T) *countingRoster {
	t.Helper()
	doc, err := keepers.ParseDocument([]byte(rosterJSON))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return &countingRoster{Roster: doc}
}

var (
	jazz      = config.Subsection{ID: 7, Title: "jazz and blues"}
	classical = config.Subsection{ID: 8, Title: "Classical Music"}
)

func setup(t *testing.T, scope string) (*config.Config, *registry.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithDeleteScope(scope))
	cfg.Keepers.RequestsPerSecond = 0
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustUpsertReleases(t, store,
		registry.ReleaseUpdate{ID: 100, SubsectionID: registry.Ptr(int64(7))},
		registry.ReleaseUpdate{ID: 300, SubsectionID: registry.Ptr(int64(7))},
		registry.ReleaseUpdate{ID: 200, SubsectionID: registry.Ptr(int64(9))},
	)
	if _, err := store.ReconcileKeepers(context.Background(), []registry.KeeperPair{
		{TopicID: 100, Nick: "carol"},
		{TopicID: 200, Nick: "dave"},
		{TopicID: 300, Nick: "eve"},
	}, registry.KeeperScope{}); err != nil {
		t.Fatalf("seed keepers: %v", err)
	}
	return cfg, store
}

func listKeepers(t *testing.T, store *registry.Store) []registry.KeeperPair {
	t.Helper()
	pairs, err := store.ListKeepers(context.Background())
	if err != nil {
		t.Fatalf("ListKeepers: %v", err)
	}
	return pairs
}

func TestRunScannedScopeKeepsUnscannedReleases(t *testing.T) {
	cfg, store := setup(t, config.DeleteScopeScanned)
	syncer := keepers.NewSyncer(cfg, store, newRoster(t), nil)

	result, err := syncer.Run(context.Background(), []config.Subsection{jazz})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Pairs != 2 || result.Inserted != 2 || result.Deleted != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	want := []registry.KeeperPair{
		{TopicID: 100, Nick: "alice"},
		{TopicID: 100, Nick: "bob"},
		{TopicID: 200, Nick: "dave"},
	}
	if got := listKeepers(t, store); !reflect.DeepEqual(got, want) {
		t.Fatalf("keepers: want %v, got %v", want, got)
	}
}

func TestRunGlobalScopePrunesEverythingUnmatched(t *testing.T) {
	cfg, store := setup(t, config.DeleteScopeGlobal)
	syncer := keepers.NewSyncer(cfg, store, newRoster(t), nil)

	result, err := syncer.Run(context.Background(), []config.Subsection{jazz})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Deleted != 3 {
		t.Fatalf("expected three deletions, got %+v", result)
	}
	want := []registry.KeeperPair{{TopicID: 100, Nick: "alice"}, {TopicID: 100, Nick: "bob"}}
	if got := listKeepers(t, store); !reflect.DeepEqual(got, want) {
		t.Fatalf("keepers: want %v, got %v", want, got)
	}
}

func TestRunRequiresTrackerCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutTrackerCredentials())
	roster := newRoster(t)
	syncer := keepers.NewSyncer(cfg, nil, roster, nil)

	_, err := syncer.Run(context.Background(), []config.Subsection{jazz})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if roster.finds != 0 || roster.scans != 0 {
		t.Fatalf("roster must not be touched, finds=%d scans=%d", roster.finds, roster.scans)
	}
}

func TestRunSkipsFailedAndMissingSubsections(t *testing.T) {
	cfg, store := setup(t, config.DeleteScopeScanned)
	roster := newRoster(t)
	roster.fail = map[string]error{"Classical Music": errors.New("connection reset")}
	syncer := keepers.NewSyncer(cfg, store, roster, nil)

	missing := config.Subsection{ID: 11, Title: "Obscure Podcasts"}
	result, err := syncer.Run(context.Background(), []config.Subsection{classical, missing, jazz})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(result.Scanned, []int64{7}) {
		t.Fatalf("scanned: %v", result.Scanned)
	}
	if !reflect.DeepEqual(result.Skipped, []int64{8, 11}) {
		t.Fatalf("skipped: %v", result.Skipped)
	}
	if roster.scans != 1 {
		t.Fatalf("expected one roster scan, got %d", roster.scans)
	}
}

func TestRunEmptyScanChangesNothing(t *testing.T) {
	cfg, store := setup(t, config.DeleteScopeGlobal)
	syncer := keepers.NewSyncer(cfg, store, newRoster(t), nil)

	before := listKeepers(t, store)
	result, err := syncer.Run(context.Background(), []config.Subsection{classical})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Pairs != 0 || result.Deleted != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := listKeepers(t, store); !reflect.DeepEqual(got, before) {
		t.Fatalf("roster changed: %v -> %v", before, got)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	cfg, store := setup(t, config.DeleteScopeScanned)
	syncer := keepers.NewSyncer(cfg, store, newRoster(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := syncer.Run(ctx, []config.Subsection{jazz}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
