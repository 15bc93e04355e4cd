package clients_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"webtlo/internal/clients"
	"webtlo/internal/config"
	"webtlo/internal/services"
)

type stubAdapter struct {
	listErr error
	lists   int
	closed  bool
}

func (s *stubAdapter) ListTasks(context.Context) (map[string]clients.Status, error) {
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return map[string]clients.Status{"AB": clients.StatusSeeding}, nil
}

func (s *stubAdapter) AddTask(context.Context, string, string) error { return nil }

func (s *stubAdapter) SetLabel(context.Context, []string, string) error {
	return clients.ErrUnsupported
}

func (s *stubAdapter) Start(context.Context, []string, bool) error { return nil }

func (s *stubAdapter) Stop(context.Context, []string) error { return nil }

func (s *stubAdapter) Remove(context.Context, []string, bool) error { return nil }

func (s *stubAdapter) Close(context.Context) error {
	s.closed = true
	return nil
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := clients.New(config.Client{ID: "x", Kind: "qbittorrent-nonexistent"}, clients.Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

var (
	registerOnce sync.Once
	registered   = &stubAdapter{}
)

func TestRegisterAndNew(t *testing.T) {
	registerOnce.Do(func() {
		clients.Register("stub-test", func(cfg config.Client, opts clients.Options) (clients.Adapter, error) {
			if opts.HTTPClient == nil {
				return nil, errors.New("expected default http client")
			}
			return registered, nil
		})
	})
	stub := registered
	adapter, err := clients.New(config.Client{ID: "s", Kind: " Stub-Test "}, clients.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if adapter != stub {
		t.Fatalf("expected stub adapter, got %T", adapter)
	}
	found := false
	for _, kind := range clients.Kinds() {
		if kind == "stub-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected stub-test in %v", clients.Kinds())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	failure := &clients.Error{Vendor: "stub", Operation: "list tasks", Description: "connection refused"}
	stub := &stubAdapter{listErr: failure}
	adapter := clients.WithBreaker(stub, "nas", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := adapter.ListTasks(ctx); !errors.Is(err, services.ErrAdapter) {
			t.Fatalf("call %d: expected adapter error, got %v", i, err)
		}
	}
	_, err := adapter.ListTasks(ctx)
	if !errors.Is(err, services.ErrAdapter) {
		t.Fatalf("open circuit should still report an adapter error, got %v", err)
	}
	if stub.lists != 3 {
		t.Fatalf("open circuit must not reach the client, got %d calls", stub.lists)
	}

	if err := adapter.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stub.closed {
		t.Fatal("Close must reach the wrapped adapter")
	}
}

func TestBreakerIgnoresUnsupported(t *testing.T) {
	stub := &stubAdapter{}
	adapter := clients.WithBreaker(stub, "nas", nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := adapter.SetLabel(ctx, []string{"AB"}, "x"); !errors.Is(err, clients.ErrUnsupported) {
			t.Fatalf("expected ErrUnsupported, got %v", err)
		}
	}
	tasks, err := adapter.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if tasks["AB"] != clients.StatusSeeding {
		t.Fatalf("unexpected tasks %v", tasks)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(&clients.Error{Vendor: "v", Operation: "login", Err: cause})
	if !errors.Is(err, services.ErrAdapter) || !errors.Is(err, cause) {
		t.Fatalf("expected both markers in %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("adapter errors must not be fatal")
	}
	if err.Error() != "v: login: dial tcp: refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
