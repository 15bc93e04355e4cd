package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"webtlo/internal/config"
	"webtlo/internal/registry"
)

func newSubsectionsCommand(ctx *commandContext) *cobra.Command {
	subsectionsCmd := &cobra.Command{
		Use:     "subsections",
		Aliases: []string{"forums"},
		Short:   "Inspect stored subsections",
	}
	subsectionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored subsections with their configured client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				subs, err := store.ListSubsections(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if subs == nil {
						subs = []registry.Subsection{}
					}
					return writeJSON(cmd, subs)
				}
				out := cmd.OutOrStdout()
				if len(subs) == 0 {
					fmt.Fprintln(out, "No subsections recorded")
					return nil
				}
				clientOf := make(map[int64]string, len(cfg.Subsections))
				for _, sub := range cfg.Subsections {
					clientOf[sub.ID] = sub.Client
				}
				rows := make([][]string, 0, len(subs))
				for _, sub := range subs {
					rows = append(rows, []string{strconv.FormatInt(sub.ID, 10), sub.Name, clientOf[sub.ID]})
				}
				fmt.Fprintln(out, renderTable(out, []column{numCol("ID"), textCol("Name"), textCol("Client")}, rows))
				return nil
			})
		},
	})
	return subsectionsCmd
}
