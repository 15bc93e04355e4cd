package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"webtlo/internal/config"
	"webtlo/internal/keepers"
	"webtlo/internal/logging"
	"webtlo/internal/metrics"
	"webtlo/internal/registry"
	"webtlo/internal/syncrun"
)

func newKeepersCommand(ctx *commandContext) *cobra.Command {
	keepersCmd := &cobra.Command{
		Use:   "keepers",
		Short: "Keeper roster of tracked releases",
	}
	keepersCmd.AddCommand(newKeepersImportCommand(ctx))
	keepersCmd.AddCommand(newKeepersListCommand(ctx))
	return keepersCmd
}

func newKeepersImportCommand(ctx *commandContext) *cobra.Command {
	var only []int64

	cmd := &cobra.Command{
		Use:   "import <roster.json>",
		Short: "Reconcile the keeper roster with an exported report snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// Credentials are checked before reading the roster or opening the database.
			if err := cfg.RequireTrackerCredentials(); err != nil {
				return err
			}
			subsections, err := selectSubsections(cfg, only)
			if err != nil {
				return err
			}
			doc, err := keepers.LoadDocument(args[0])
			if err != nil {
				return err
			}

			runLog := logging.NewRunLog()
			logger, err := ctx.jobLogger(cmd, runLog)
			if err != nil {
				return err
			}
			defer flushRunLog(cfg, runLog, "keepers", logger)

			release, err := syncrun.AcquireLock(cfg)
			if err != nil {
				logger.Error("keeper refresh failed", logging.Error(err))
				return err
			}
			defer release()

			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				runMetrics := metrics.NewRun()
				result, err := keepers.NewSyncer(cfg, store, doc, logger).Run(cmd.Context(), subsections)
				runMetrics.AddKeeperChanges(result.Inserted, result.Deleted)
				runMetrics.Finish("keepers", result.Duration, err, time.Now())
				if writeErr := runMetrics.WriteTextfile(cfg.Metrics.Textfile); writeErr != nil {
					logger.Warn("metrics export failed", logging.Error(writeErr))
				}
				if err != nil {
					logger.Error("keeper refresh failed", logging.Error(err))
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d subsections (%d skipped): %d pairs, %d inserted, %d deleted\n",
					len(result.Scanned), len(result.Skipped), result.Pairs, result.Inserted, result.Deleted)
				return nil
			})
		},
	}

	cmd.Flags().Int64SliceVar(&only, "subsection", nil, "Limit the scan to these subsection ids")
	return cmd
}

func selectSubsections(cfg *config.Config, only []int64) ([]config.Subsection, error) {
	if len(only) == 0 {
		return cfg.Subsections, nil
	}
	byID := make(map[int64]config.Subsection, len(cfg.Subsections))
	for _, sub := range cfg.Subsections {
		byID[sub.ID] = sub
	}
	selected := make([]config.Subsection, 0, len(only))
	for _, id := range only {
		sub, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("subsection %d is not configured", id)
		}
		selected = append(selected, sub)
	}
	return selected, nil
}

func newKeepersListCommand(ctx *commandContext) *cobra.Command {
	var topic int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded keepers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				if topic > 0 {
					nicks, err := store.Keepers(cmd.Context(), topic)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"topic_id": topic, "nicks": nicks})
					}
					if len(nicks) == 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "No keepers recorded for %d\n", topic)
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", topic, strings.Join(nicks, ", "))
					return nil
				}
				pairs, err := store.ListKeepers(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if pairs == nil {
						pairs = []registry.KeeperPair{}
					}
					return writeJSON(cmd, pairs)
				}
				out := cmd.OutOrStdout()
				if len(pairs) == 0 {
					fmt.Fprintln(out, "No keepers recorded")
					return nil
				}
				rows := make([][]string, 0, len(pairs))
				for _, p := range pairs {
					rows = append(rows, []string{strconv.FormatInt(p.TopicID, 10), p.Nick})
				}
				fmt.Fprintln(out, renderTable(out, []column{numCol("Topic"), textCol("Keeper")}, rows))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&topic, "topic", 0, "Only show keepers of this release")
	return cmd
}
