package commands

import (
	"github.com/spf13/cobra"

	"github.com/histofy/histofy/pkg/commands/commit"
	"github.com/histofy/histofy/pkg/output"
	"github.com/histofy/histofy/pkg/ui"
)

func newCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commit [message]",
		Short:   MsgCommitShort,
		Long:    MsgCommitLong,
		Example: MsgCommitExample,
		Args:    cobra.MaximumNArgs(1),
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
			date, _ := cmd.Flags().GetString("date")
			timeOfDay, _ := cmd.Flags().GetString("time")
			addAll, _ := cmd.Flags().GetBool("add-all")
			author, _ := cmd.Flags().GetString("author")
			allowEmpty, _ := cmd.Flags().GetBool("allow-empty")
			push, _ := cmd.Flags().GetBool("push")

			var message string
			if len(args) > 0 {
				message = args[0]
			}

			result, err := commit.Run(cmd.Context(), commit.Options{
				RepoPath:   ".",
				Message:    message,
				Date:       date,
				Time:       timeOfDay,
				AddAll:     addAll,
				Author:     author,
				AllowEmpty: allowEmpty,
				Push:       push,
				DryRun:     dryRun,
			})
			// A push failure still returns the created commit; show it
			// before surfacing the error.
			if result != nil {
				if renderErr := renderCommitResult(cmd, result); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}

	cmd.Flags().String("date", "", MsgFlagDate)
	cmd.Flags().String("time", "", MsgFlagTime)
	cmd.Flags().BoolP("add-all", "a", false, MsgFlagAddAll)
	cmd.Flags().String("author", "", MsgFlagAuthor)
	cmd.Flags().Bool("allow-empty", false, MsgFlagAllowEmpty)
	cmd.Flags().Bool("push", false, MsgFlagPush)

	return cmd
}

type commitPayload struct {
	Hash        string `json:"hash"`
	Date        string `json:"date"`
	Author      string `json:"author"`
	Message     string `json:"message"`
	Pushed      bool   `json:"pushed"`
	OperationID string `json:"operationId,omitempty"`
}

func renderCommitResult(cmd *cobra.Command, result *commit.Result) error {
	format := outputFormat(cmd)
	w := cmd.OutOrStdout()

	if result.Preview != nil {
		if format == ui.FormatJSON {
			return result.Preview.Export(w, "json")
		}
		_, err := result.Preview.RenderPreview(w)
		return err
	}

	if format == ui.FormatJSON {
		return printJSON(w, commitPayload{
			Hash:        result.Commit.Hash,
			Date:        result.Commit.Author.When.Format("2006-01-02 15:04"),
			Author:      result.Commit.Author.Name,
			Message:     result.Commit.Message,
			Pushed:      result.Pushed,
			OperationID: result.OperationID,
		})
	}

	return printLine(w, output.NewRenderer(format).RenderCommit(result.Commit, result.Pushed))
}
