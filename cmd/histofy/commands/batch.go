package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/histofy/histofy/pkg/commands/batch"
	"github.com/histofy/histofy/pkg/ui"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "batch",
		Short:   MsgBatchShort,
		Long:    MsgBatchLong,
		Example: MsgBatchExample,
		Args:    cobra.NoArgs,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
			file, _ := cmd.Flags().GetString("file")
			push, _ := cmd.Flags().GetBool("push")

			result, err := batch.Run(cmd.Context(), batch.Options{
				RepoPath: ".",
				File:     file,
				Push:     push,
				DryRun:   dryRun,
			})
			// A push failure still returns the created commits; show
			// them before surfacing the error.
			if result != nil {
				if renderErr := renderBatchResult(cmd, file, result); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringP("file", "f", "", MsgFlagPlanFile)
	cmd.Flags().Bool("push", false, MsgFlagPush)
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

type batchPayload struct {
	Commits     []commitPayload `json:"commits"`
	Pushed      bool            `json:"pushed"`
	OperationID string          `json:"operationId,omitempty"`
}

func renderBatchResult(cmd *cobra.Command, file string, result *batch.Result) error {
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
		payload := batchPayload{
			Commits:     make([]commitPayload, 0, len(result.Commits)),
			Pushed:      result.Pushed,
			OperationID: result.OperationID,
		}
		for _, c := range result.Commits {
			payload.Commits = append(payload.Commits, commitPayload{
				Hash:    c.Hash,
				Date:    c.Author.When.Format("2006-01-02 15:04"),
				Author:  c.Author.Name,
				Message: c.Message,
			})
		}
		return printJSON(w, payload)
	}

	fmt.Fprintf(w, MsgBatchFormat, len(result.Commits), file)
	for _, c := range result.Commits {
		fmt.Fprintf(w, MsgBatchItem, c.ShortHash(), c.Author.When.Format("2006-01-02 15:04"), c.Summary())
	}
	if result.Pushed {
		fmt.Fprint(w, MsgBatchPushed)
	}
	return nil
}
