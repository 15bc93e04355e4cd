package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"webtlo/internal/logging"
	"webtlo/internal/registry"
	"webtlo/internal/syncrun"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize task lists of every configured torrent client",
		RunE: func(cmd *cobra.Command, args []string) error {
			runLog := logging.NewRunLog()
			logger, err := ctx.jobLogger(cmd, runLog)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// The registry is opened by the runner once the lock is held and
			// every client adapter is built.
			openStore := func(runCtx context.Context) (syncrun.Store, func() error, error) {
				store, err := registry.Open(runCtx, cfg.DatabasePath())
				if err != nil {
					return nil, nil, err
				}
				return store, store.Close, nil
			}
			runner, err := syncrun.New(cfg, nil, syncrun.Options{Logger: logger, RunLog: runLog, OpenStore: openStore})
			if err != nil {
				return err
			}
			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(result.Clients))
			for _, c := range result.Clients {
				status := "ok"
				if c.Error != "" {
					status = "failed"
				}
				rows = append(rows, []string{
					c.ClientID,
					strconv.Itoa(c.Tasks),
					strconv.Itoa(c.Stats.FromTopics),
					strconv.Itoa(c.Stats.FromCache),
					strconv.Itoa(c.Stats.Unresolved),
					status,
				})
			}
			fmt.Fprintln(out, renderTable(out, []column{
				textCol("Client"), numCol("Tasks"), numCol("Registry"),
				numCol("Cache"), numCol("Unresolved"), textCol("Status"),
			}, rows))
			fmt.Fprintln(out, result.String())
			return nil
		},
	}
}
