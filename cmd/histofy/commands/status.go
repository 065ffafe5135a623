package commands

import (
	"github.com/spf13/cobra"

	"github.com/histofy/histofy/pkg/commands/status"
	"github.com/histofy/histofy/pkg/output"
	"github.com/histofy/histofy/pkg/ui"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   MsgStatusShort,
		Long:    MsgStatusLong,
		Args:    cobra.NoArgs,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := status.Run(cmd.Context(), status.Options{RepoPath: "."})
			if err != nil {
				return err
			}

			format := outputFormat(cmd)
			if format == ui.FormatJSON {
				return printJSON(cmd.OutOrStdout(), view)
			}
			return printLine(cmd.OutOrStdout(), output.NewRenderer(format).RenderStatus(*view))
		},
	}
}
