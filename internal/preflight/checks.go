package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"webtlo/internal/clients"
	"webtlo/internal/config"
)

const clientCheckTimeout = 15 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTrackerCredentials reports whether keeper scans can run.
func CheckTrackerCredentials(cfg *config.Config) Result {
	const name = "Tracker credentials"
	if err := cfg.RequireTrackerCredentials(); err != nil {
		return Result{Name: name, Detail: "missing (keeper scans disabled)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("login %s", cfg.Tracker.Login)}
}

// CheckClient opens a session with a torrent client and lists its tasks.
// It uses a single attempt with a short timeout.
func CheckClient(ctx context.Context, cc config.Client, factory func(config.Client, clients.Options) (clients.Adapter, error)) Result {
	name := fmt.Sprintf("Client %s (%s)", cc.ID, cc.Kind)

	adapter, err := factory(cc, clients.Options{})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("not usable (%v)", err)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, clientCheckTimeout)
	defer cancel()
	defer adapter.Close(context.WithoutCancel(ctx))

	tasks, err := adapter.ListTasks(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeClientError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable, %d tasks", len(tasks))}
}

func summarizeClientError(err error) string {
	var netErr net.Error
	var clientErr *clients.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.As(err, &clientErr):
		return fmt.Sprintf("rejected (%s)", clientErr.Description)
	case errors.As(err, &netErr):
		return fmt.Sprintf("unreachable (%v)", netErr)
	default:
		return fmt.Sprintf("failed (%v)", err)
	}
}
