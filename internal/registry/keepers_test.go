package registry_test

import (
	"context"
	"reflect"
	"testing"

	"webtlo/internal/registry"
	"webtlo/internal/testsupport"
)

func seedKeepers(t *testing.T, store *registry.Store, pairs ...registry.KeeperPair) {
	t.Helper()
	if _, err := store.ReconcileKeepers(context.Background(), pairs, registry.KeeperScope{}); err != nil {
		t.Fatalf("seed keepers: %v", err)
	}
}

func TestReconcileKeepersSuppressesDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	alice := registry.KeeperPair{TopicID: 100, Nick: "alice"}
	changes, err := store.ReconcileKeepers(ctx, []registry.KeeperPair{alice, alice}, registry.KeeperScope{})
	if err != nil {
		t.Fatalf("ReconcileKeepers: %v", err)
	}
	if changes.Inserted != 1 {
		t.Fatalf("expected one insert, got %+v", changes)
	}
	if _, err := store.ReconcileKeepers(ctx, []registry.KeeperPair{alice}, registry.KeeperScope{}); err != nil {
		t.Fatalf("second ReconcileKeepers: %v", err)
	}
	count, err := store.CountKeepers(ctx)
	if err != nil {
		t.Fatalf("CountKeepers: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
}

func TestReconcileKeepersScopes(t *testing.T) {
	scanned := []registry.KeeperPair{{TopicID: 100, Nick: "alice"}, {TopicID: 100, Nick: "bob"}}
	durable := []registry.KeeperPair{{TopicID: 100, Nick: "carol"}, {TopicID: 200, Nick: "dave"}}

	cases := []struct {
		name    string
		scope   registry.KeeperScope
		want    []registry.KeeperPair
		deleted int64
	}{
		{
			name:    "scanned topics only",
			scope:   registry.KeeperScope{TopicIDs: []int64{100}},
			want:    []registry.KeeperPair{{TopicID: 100, Nick: "alice"}, {TopicID: 100, Nick: "bob"}, {TopicID: 200, Nick: "dave"}},
			deleted: 1,
		},
		{
			name:    "global",
			scope:   registry.KeeperScope{Global: true},
			want:    []registry.KeeperPair{{TopicID: 100, Nick: "alice"}, {TopicID: 100, Nick: "bob"}},
			deleted: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			store := testsupport.MustOpenStore(t, cfg)
			ctx := context.Background()
			seedKeepers(t, store, durable...)

			changes, err := store.ReconcileKeepers(ctx, scanned, tc.scope)
			if err != nil {
				t.Fatalf("ReconcileKeepers: %v", err)
			}
			if changes.Inserted != 2 || changes.Deleted != tc.deleted {
				t.Fatalf("unexpected changes %+v", changes)
			}
			got, err := store.ListKeepers(ctx)
			if err != nil {
				t.Fatalf("ListKeepers: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestReconcileKeepersEmptyScanDeletesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	seedKeepers(t, store, registry.KeeperPair{TopicID: 1, Nick: "erin"})

	changes, err := store.ReconcileKeepers(ctx, nil, registry.KeeperScope{Global: true})
	if err != nil {
		t.Fatalf("ReconcileKeepers: %v", err)
	}
	if changes != (registry.KeeperChanges{}) {
		t.Fatalf("expected no changes, got %+v", changes)
	}
	nicks, err := store.Keepers(ctx, 1)
	if err != nil {
		t.Fatalf("Keepers: %v", err)
	}
	if !reflect.DeepEqual(nicks, []string{"erin"}) {
		t.Fatalf("unexpected nicks %v", nicks)
	}
}

func TestKeepersNeedNoRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seedKeepers(t, store, registry.KeeperPair{TopicID: 31337, Nick: "zed"})
	nicks, err := store.Keepers(ctx, 31337)
	if err != nil {
		t.Fatalf("Keepers: %v", err)
	}
	if len(nicks) != 1 {
		t.Fatalf("expected keeper of unknown release to persist, got %v", nicks)
	}
}
