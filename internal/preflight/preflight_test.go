package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webtlo/internal/clients"
	"webtlo/internal/config"
	"webtlo/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

type fakeAdapter struct {
	clients.Adapter
	tasks  map[string]clients.Status
	err    error
	closed bool
}

func (f *fakeAdapter) ListTasks(context.Context) (map[string]clients.Status, error) {
	return f.tasks, f.err
}

func (f *fakeAdapter) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithoutTrackerCredentials(),
		testsupport.WithClient(config.Client{ID: "good", Kind: "fake", Host: "h", Port: 1}),
		testsupport.WithClient(config.Client{ID: "denied", Kind: "fake", Host: "h", Port: 2}),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	adapters := map[string]*fakeAdapter{
		"good":   {tasks: map[string]clients.Status{"A": clients.StatusSeeding}},
		"denied": {err: &clients.Error{Vendor: "fake", Operation: "login", Code: 400, Description: "No such account or incorrect password"}},
	}
	factory := func(cc config.Client, _ clients.Options) (clients.Adapter, error) {
		return adapters[cc.ID], nil
	}

	results := RunAll(context.Background(), cfg, Options{NewAdapter: factory})
	if len(results) != 5 {
		t.Fatalf("expected five results, got %+v", results)
	}
	if !results[0].Passed || !results[1].Passed {
		t.Fatalf("directories should pass: %+v", results[:2])
	}
	if results[2].Passed {
		t.Fatal("missing tracker credentials should fail")
	}
	if !results[3].Passed || results[3].Detail != "reachable, 1 tasks" {
		t.Fatalf("unexpected good client result %+v", results[3])
	}
	if results[4].Passed || !strings.Contains(results[4].Detail, "incorrect password") {
		t.Fatalf("unexpected denied client result %+v", results[4])
	}
	if Failed(results) != 2 {
		t.Fatalf("expected two failures, got %d", Failed(results))
	}
	for id, a := range adapters {
		if !a.closed {
			t.Fatalf("adapter %s was not closed", id)
		}
	}
}

func TestCheckClientUnknownKind(t *testing.T) {
	result := CheckClient(context.Background(), config.Client{ID: "x", Kind: "nope"}, clients.New)
	if result.Passed || !strings.Contains(result.Detail, "not usable") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAllSkipClients(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithClient(config.Client{ID: "c", Kind: "fake", Host: "h", Port: 1}))
	called := false
	factory := func(config.Client, clients.Options) (clients.Adapter, error) {
		called = true
		return nil, errors.New("unexpected")
	}
	results := RunAll(context.Background(), cfg, Options{NewAdapter: factory, SkipClients: true})
	if called || len(results) != 3 {
		t.Fatalf("client checks should be skipped, called=%v results=%+v", called, results)
	}
}
