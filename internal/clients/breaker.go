package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"webtlo/internal/logging"
	"webtlo/internal/services"
)

const (
	breakerTripAfter = 3
	breakerTimeout   = time.Minute
)

// breakerAdapter short-circuits calls to a client after repeated failures.
type breakerAdapter struct {
	next Adapter
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// WithBreaker wraps adapter in a circuit breaker that opens after three
// consecutive failures and stays open for a minute. Unsupported operations
// and caller cancellation do not count as failures.
func WithBreaker(adapter Adapter, name string, logger *slog.Logger) Adapter {
	logger = logging.NewComponentLogger(logger, "clients")
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrUnsupported) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("client circuit state changed",
				logging.String(logging.FieldClientID, name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	}
	return &breakerAdapter{
		next: adapter,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
		name: name,
	}
}

func (b *breakerAdapter) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, services.Wrap(services.ErrAdapter, "clients", b.name, "circuit open, call skipped", err)
	}
	return result, err
}

func (b *breakerAdapter) run(fn func() error) error {
	_, err := b.execute(func() (any, error) { return nil, fn() })
	return err
}

func (b *breakerAdapter) ListTasks(ctx context.Context) (map[string]Status, error) {
	result, err := b.execute(func() (any, error) { return b.next.ListTasks(ctx) })
	if err != nil {
		return nil, err
	}
	tasks, ok := result.(map[string]Status)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return tasks, nil
}

func (b *breakerAdapter) AddTask(ctx context.Context, filePath, destPath string) error {
	return b.run(func() error { return b.next.AddTask(ctx, filePath, destPath) })
}

func (b *breakerAdapter) SetLabel(ctx context.Context, hashes []string, label string) error {
	return b.run(func() error { return b.next.SetLabel(ctx, hashes, label) })
}

func (b *breakerAdapter) Start(ctx context.Context, hashes []string, force bool) error {
	return b.run(func() error { return b.next.Start(ctx, hashes, force) })
}

func (b *breakerAdapter) Stop(ctx context.Context, hashes []string) error {
	return b.run(func() error { return b.next.Stop(ctx, hashes) })
}

func (b *breakerAdapter) Remove(ctx context.Context, hashes []string, deleteLocalData bool) error {
	return b.run(func() error { return b.next.Remove(ctx, hashes, deleteLocalData) })
}

// Close always reaches the wrapped adapter so sessions are released.
func (b *breakerAdapter) Close(ctx context.Context) error {
	return b.next.Close(ctx)
}
