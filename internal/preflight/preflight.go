package preflight

import (
	"context"

	"webtlo/internal/clients"
	"webtlo/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Options tunes RunAll.
type Options struct {
	// NewAdapter defaults to clients.New.
	NewAdapter func(cfg config.Client, opts clients.Options) (clients.Adapter, error)
	// SkipClients disables network checks.
	SkipClients bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckTrackerCredentials(cfg),
	}

	if opts.SkipClients {
		return results
	}
	factory := opts.NewAdapter
	if factory == nil {
		factory = clients.New
	}
	for _, client := range cfg.Clients {
		results = append(results, CheckClient(ctx, client, factory))
	}
	return results
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
