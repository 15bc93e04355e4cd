package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"webtlo/internal/catalog"
	"webtlo/internal/config"
	"webtlo/internal/logging"
	"webtlo/internal/registry"
	"webtlo/internal/syncrun"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Tracker catalog snapshots",
	}
	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	return catalogCmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var dayMarker int64

	cmd := &cobra.Command{
		Use:   "import <feed.json>",
		Short: "Apply a catalog snapshot and record today's metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed, err := catalog.LoadFeed(args[0])
			if err != nil {
				return err
			}
			marker := dayMarker
			if !cmd.Flags().Changed("day-marker") {
				marker = catalog.DayMarker(time.Now())
			}

			runLog := logging.NewRunLog()
			logger, err := ctx.jobLogger(cmd, runLog)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			defer flushRunLog(cfg, runLog, "catalog", logger)

			release, err := syncrun.AcquireLock(cfg)
			if err != nil {
				logger.Error("catalog import failed", logging.Error(err))
				return err
			}
			defer release()

			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				result, err := catalog.Import(cmd.Context(), store, feed, marker, logger)
				if err != nil {
					logger.Error("catalog import failed", logging.Error(err))
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d subsections and %d releases (%d measured, %d rotated) for day %d\n",
					result.Subsections, result.Releases, result.Measured, result.Rotated, marker)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&dayMarker, "day-marker", 0, "Override the day marker (days since the Unix epoch)")
	return cmd
}
