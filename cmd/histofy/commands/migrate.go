package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/histofy/histofy/pkg/commands/migrate"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/output"
	"github.com/histofy/histofy/pkg/types"
	"github.com/histofy/histofy/pkg/ui"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "migrate <range>",
		Short:   MsgMigrateShort,
		Long:    MsgMigrateLong,
		Example: MsgMigrateExample,
		Args:    cobra.ExactArgs(1),
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
			toDate, _ := cmd.Flags().GetString("to-date")
			spread, _ := cmd.Flags().GetInt("spread")
			startTime, _ := cmd.Flags().GetString("start-time")
			execute, _ := cmd.Flags().GetBool("execute")
			autoResolve, _ := cmd.Flags().GetString("auto-resolve")
			noBackup, _ := cmd.Flags().GetBool("no-backup")
			noRollback, _ := cmd.Flags().GetBool("no-rollback")
			push, _ := cmd.Flags().GetBool("push")

			format := outputFormat(cmd)

			if execute && !dryRun {
				ok, err := confirm(cmd, MsgConfirmMigrate)
				if err != nil {
					return err
				}
				if !ok {
					return errors.NewCancelled(errors.CancelUserInterrupt, MsgAborted)
				}
			}

			opts := migrate.Options{
				RepoPath:    ".",
				Range:       args[0],
				ToDate:      toDate,
				Spread:      spread,
				StartTime:   startTime,
				Execute:     execute,
				AutoResolve: autoResolve,
				NoBackup:    noBackup,
				NoRollback:  noRollback,
				Push:        push,
				DryRun:      dryRun,
				OnConflict:  promptResolution(cmd),
			}
			if execute && format == ui.FormatTerminal {
				opts.Progress = func(stage string, percent int) {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %3d%% %s\n", percent, stage)
				}
			}

			result, err := migrate.Run(cmd.Context(), opts)
			// Rolled-back and push-failed outcomes come back with both a
			// result and an error; render the outcome first.
			if result != nil {
				if renderErr := renderMigrateResult(cmd, result); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}

	cmd.Flags().String("to-date", "", MsgFlagToDate)
	cmd.Flags().Int("spread", 0, MsgFlagSpread)
	cmd.Flags().String("start-time", "", MsgFlagStartTime)
	cmd.Flags().Bool("execute", false, MsgFlagExecute)
	cmd.Flags().String("auto-resolve", "", MsgFlagAutoResolve)
	cmd.Flags().Bool("no-backup", false, MsgFlagNoBackup)
	cmd.Flags().Bool("no-rollback", false, MsgFlagNoRollback)
	cmd.Flags().Bool("push", false, MsgFlagForcePush)
	_ = cmd.MarkFlagRequired("to-date")

	return cmd
}

// promptResolution asks the user to resolve one conflict. Anything but a
// clear answer aborts, which is the safe side of an interactive rewrite.
func promptResolution(cmd *cobra.Command) func(c git.Conflict) git.Resolution {
	reader := bufio.NewReader(cmd.InOrStdin())
	return func(c git.Conflict) git.Resolution {
		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "Conflict at %s: %s\n", c.Commit, c.Message)
		for _, f := range c.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
		fmt.Fprint(w, "Resolve with [t]heirs, [o]urs or [a]bort: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return git.ResolutionAbort
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "t", "theirs":
			return git.ResolutionTheirs
		case "o", "ours":
			return git.ResolutionOurs
		default:
			return git.ResolutionAbort
		}
	}
}

type migratePayload struct {
	Plan                 *types.MigrationPlan `json:"plan,omitempty"`
	Executed             bool                 `json:"executed"`
	MigratedCount        int                  `json:"migratedCount,omitempty"`
	BackupBranch         string               `json:"backupBranch,omitempty"`
	ConflictsEncountered int                  `json:"conflictsEncountered,omitempty"`
	Aborted              bool                 `json:"aborted,omitempty"`
	RolledBack           bool                 `json:"rolledBack,omitempty"`
	RollbackFailed       bool                 `json:"rollbackFailed,omitempty"`
	IntegrityWarnings    []string             `json:"integrityWarnings,omitempty"`
	FinalHead            string               `json:"finalHead,omitempty"`
	Pushed               bool                 `json:"pushed"`
	OperationID          string               `json:"operationId,omitempty"`
}

func renderMigrateResult(cmd *cobra.Command, result *migrate.Result) error {
	format := outputFormat(cmd)
	w := cmd.OutOrStdout()

	if result.Preview != nil {
		if format == ui.FormatJSON {
			return result.Preview.Export(w, "json")
		}
		// The plan carries the per-commit mapping, the preview the
		// steps and risks; show both.
		if err := printLine(w, output.NewRenderer(format).RenderPlan(result.Plan)); err != nil {
			return err
		}
		fmt.Fprintln(w)
		_, err := result.Preview.RenderPreview(w)
		return err
	}

	if format == ui.FormatJSON {
		payload := migratePayload{
			Plan:        result.Plan,
			Executed:    result.Executed,
			Pushed:      result.Pushed,
			OperationID: result.OperationID,
		}
		if m := result.Migration; m != nil {
			payload.MigratedCount = m.MigratedCount
			payload.BackupBranch = m.BackupBranch
			payload.ConflictsEncountered = m.ConflictsEncountered
			payload.Aborted = m.Aborted
			payload.RolledBack = m.RolledBack
			payload.RollbackFailed = m.RollbackFailed
			payload.IntegrityWarnings = m.IntegrityWarnings
			payload.FinalHead = m.FinalHead
		}
		return printJSON(w, payload)
	}

	renderer := output.NewRenderer(format)
	if result.Migration == nil {
		return printLine(w, renderer.RenderPlan(result.Plan))
	}
	return printLine(w, renderer.RenderMigration(result.Migration, result.Pushed))
}
