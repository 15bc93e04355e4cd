package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"webtlo/internal/config"
	"webtlo/internal/registry"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the registry database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				version, err := store.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"db_path": store.Path(), "schema_version": version})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database %s at schema version %d\n", store.Path(), version)
				return nil
			})
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check registry database health (schema, integrity, row counts)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Schema version: %d (latest %d)\n", health.SchemaVersion, health.LatestVersion)
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Subsections: %d\n", health.Subsections)
				fmt.Fprintf(out, "Releases: %d\n", health.Releases)
				fmt.Fprintf(out, "History rows: %d\n", health.Histories)
				fmt.Fprintf(out, "Keepers: %d\n", health.Keepers)
				fmt.Fprintf(out, "Cached client tasks: %d\n", health.ClientTasks)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}
