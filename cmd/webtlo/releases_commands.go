package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"webtlo/internal/config"
	"webtlo/internal/registry"
	"webtlo/internal/services"
)

func newReleasesCommand(ctx *commandContext) *cobra.Command {
	releasesCmd := &cobra.Command{
		Use:     "releases",
		Aliases: []string{"topics"},
		Short:   "Inspect and manage tracked releases",
	}
	releasesCmd.AddCommand(newReleasesListCommand(ctx))
	releasesCmd.AddCommand(newReleasesShowCommand(ctx))
	releasesCmd.AddCommand(newReleasesDeleteCommand(ctx))
	return releasesCmd
}

func newReleasesListCommand(ctx *commandContext) *cobra.Command {
	var subsection int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List releases, optionally for one subsection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				releases, err := store.ListReleases(cmd.Context(), subsection)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if releases == nil {
						releases = []registry.Release{}
					}
					return writeJSON(cmd, releases)
				}
				out := cmd.OutOrStdout()
				if len(releases) == 0 {
					fmt.Fprintln(out, "No releases recorded")
					return nil
				}
				rows := make([][]string, 0, len(releases))
				for _, r := range releases {
					rows = append(rows, []string{
						strconv.FormatInt(r.ID, 10),
						strconv.FormatInt(r.SubsectionID, 10),
						r.Name,
						formatFloat(r.Seeders),
						strconv.FormatInt(r.Size, 10),
						r.Label,
					})
				}
				fmt.Fprintln(out, renderTable(out, []column{
					numCol("ID"), numCol("Subsection"), textCol("Name"),
					numCol("Seeders"), numCol("Size"), textCol("Client"),
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&subsection, "subsection", 0, "Only list releases of this subsection")
	return cmd
}

type releaseDetail struct {
	Release registry.Release `json:"release"`
	History registry.History `json:"history"`
	Keepers []string         `json:"keepers"`
}

func newReleasesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a release with its history windows and keepers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				release, err := store.GetRelease(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				history, err := store.History(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				nicks, err := store.Keepers(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, releaseDetail{Release: release, History: history, Keepers: nicks})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Release %d: %s\n", release.ID, release.Name)
				fmt.Fprintf(out, "Subsection: %d\n", release.SubsectionID)
				fmt.Fprintf(out, "Hash: %s\n", release.Hash)
				fmt.Fprintf(out, "Seeders: %s (metric B %s)\n", formatFloat(release.Seeders), formatFloat(release.MetricB))
				if release.DayMarker != nil {
					fmt.Fprintf(out, "Day marker: %d\n", *release.DayMarker)
				}
				rows := make([][]string, 0, registry.HistorySlots)
				for i := 0; i < registry.HistorySlots; i++ {
					if history.A[i] == nil && history.B[i] == nil {
						continue
					}
					rows = append(rows, []string{strconv.Itoa(i), formatSlot(history.A[i]), formatSlot(history.B[i])})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(out, []column{numCol("Day"), numCol("Seeders"), numCol("B")}, rows))
				} else {
					fmt.Fprintln(out, "History: empty")
				}
				fmt.Fprintf(out, "Keepers: %d\n", len(nicks))
				return nil
			})
		},
	}
}

func newReleasesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete releases together with their history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store *registry.Store) error {
				out := cmd.OutOrStdout()
				var missing int
				for _, id := range ids {
					deleted, err := store.DeleteRelease(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !deleted {
						missing++
						fmt.Fprintf(out, "Release %d not found\n", id)
						continue
					}
					fmt.Fprintf(out, "Deleted release %d\n", id)
				}
				if missing == len(ids) {
					return services.Wrap(services.ErrNotFound, "releases", "delete", "no matching releases", nil)
				}
				return nil
			})
		},
	}
}
