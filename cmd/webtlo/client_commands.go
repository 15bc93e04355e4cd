package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"webtlo/internal/clients"
	_ "webtlo/internal/clients/downloadstation"
	"webtlo/internal/logging"
	"webtlo/internal/registry"
)

func newClientCommand(ctx *commandContext) *cobra.Command {
	var clientID string

	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Query and control a configured torrent client",
	}
	clientCmd.PersistentFlags().StringVar(&clientID, "client", "", "Client id from the configuration (defaults to the only client)")

	withAdapter := func(cmd *cobra.Command, fn func(clients.Adapter) error) error {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return err
		}
		id := strings.TrimSpace(clientID)
		if id == "" {
			if len(cfg.Clients) != 1 {
				return fmt.Errorf("--client is required when %d clients are configured", len(cfg.Clients))
			}
			id = cfg.Clients[0].ID
		}
		clientCfg, ok := cfg.Client(id)
		if !ok {
			return fmt.Errorf("client %q is not configured", id)
		}
		logger, err := ctx.jobLogger(cmd, nil)
		if err != nil {
			return err
		}
		adapter, err := clients.New(clientCfg, clients.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer func() {
			if err := adapter.Close(context.WithoutCancel(cmd.Context())); err != nil {
				logger.Debug("client close failed", logging.Error(err))
			}
		}()
		return fn(adapter)
	}

	hashesArgs := func(args []string) []string {
		out := make([]string, 0, len(args))
		for _, a := range args {
			out = append(out, registry.NormalizeHash(a))
		}
		return out
	}

	clientCmd.AddCommand(&cobra.Command{
		Use:   "tasks",
		Short: "List tasks with their normalized status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, func(adapter clients.Adapter) error {
				tasks, err := adapter.ListTasks(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, tasks)
				}
				out := cmd.OutOrStdout()
				hashes := make([]string, 0, len(tasks))
				for h := range tasks {
					hashes = append(hashes, h)
				}
				sort.Strings(hashes)
				rows := make([][]string, 0, len(hashes))
				for _, h := range hashes {
					rows = append(rows, []string{h, string(tasks[h])})
				}
				fmt.Fprintln(out, renderTable(out, []column{textCol("Hash"), textCol("Status")}, rows))
				return nil
			})
		},
	})

	var force bool
	startCmd := &cobra.Command{
		Use:   "start <hash>...",
		Short: "Resume tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, func(adapter clients.Adapter) error {
				return reportControl(cmd, "Started", len(args), adapter.Start(cmd.Context(), hashesArgs(args), force))
			})
		},
	}
	startCmd.Flags().BoolVar(&force, "force", false, "Force start where the client supports it")
	clientCmd.AddCommand(startCmd)

	clientCmd.AddCommand(&cobra.Command{
		Use:   "stop <hash>...",
		Short: "Pause tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, func(adapter clients.Adapter) error {
				return reportControl(cmd, "Stopped", len(args), adapter.Stop(cmd.Context(), hashesArgs(args)))
			})
		},
	})

	var deleteData bool
	removeCmd := &cobra.Command{
		Use:   "remove <hash>...",
		Short: "Remove tasks from the client",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, func(adapter clients.Adapter) error {
				return reportControl(cmd, "Removed", len(args), adapter.Remove(cmd.Context(), hashesArgs(args), deleteData))
			})
		},
	}
	removeCmd.Flags().BoolVar(&deleteData, "delete-data", false, "Also delete downloaded data")
	clientCmd.AddCommand(removeCmd)

	var label string
	labelCmd := &cobra.Command{
		Use:   "label <hash>...",
		Short: "Set the client label of tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, func(adapter clients.Adapter) error {
				return reportControl(cmd, "Labeled", len(args), adapter.SetLabel(cmd.Context(), hashesArgs(args), label))
			})
		},
	}
	labelCmd.Flags().StringVar(&label, "label", "", "Label to apply")
	clientCmd.AddCommand(labelCmd)

	var dest string
	addCmd := &cobra.Command{
		Use:   "add <file.torrent>",
		Short: "Upload a torrent file to the client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdapter(cmd, func(adapter clients.Adapter) error {
				return reportControl(cmd, "Added", 1, adapter.AddTask(cmd.Context(), args[0], dest))
			})
		},
	}
	addCmd.Flags().StringVar(&dest, "dest", "", "Destination folder on the client")
	clientCmd.AddCommand(addCmd)

	return clientCmd
}

func reportControl(cmd *cobra.Command, verb string, n int, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d task(s)\n", verb, n)
	return nil
}
