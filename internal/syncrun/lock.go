package syncrun

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"webtlo/internal/config"
)

// ErrRunInProgress reports that another job holds the run lock.
var ErrRunInProgress = errors.New("another webtlo run is in progress")

// AcquireLock takes the data directory run lock without blocking. The
// returned function releases it.
func AcquireLock(cfg *config.Config) (func() error, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunInProgress, cfg.LockPath())
	}
	return lock.Unlock, nil
}
