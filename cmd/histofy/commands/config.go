package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/histofy/histofy/pkg/commands/config"
	"github.com/histofy/histofy/pkg/ui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Long:    MsgConfigLong,
		Example: MsgConfigExample,
		GroupID: "misc",
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: MsgConfigGetShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := config.Get(".", args[0])
			if err != nil {
				return err
			}
			return printLine(cmd.OutOrStdout(), value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: MsgConfigSetShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")

			result, err := config.Set(cmd.Context(), config.SetOptions{
				RepoPath: ".",
				Key:      args[0],
				Value:    args[1],
				DryRun:   dryRun,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if result.Preview != nil {
				if outputFormat(cmd) == ui.FormatJSON {
					return result.Preview.Export(w, "json")
				}
				_, err := result.Preview.RenderPreview(w)
				return err
			}
			fmt.Fprintf(w, MsgConfigSet, args[0], args[1])
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: MsgConfigListShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := config.List(".")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outputFormat(cmd) == ui.FormatJSON {
				return printJSON(w, entries)
			}
			for _, e := range entries {
				fmt.Fprintf(w, MsgConfigFormat, e.Key, e.Value)
			}
			return nil
		},
	}
}
