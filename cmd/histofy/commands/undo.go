package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/histofy/histofy/pkg/commands/undo"
	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/output"
	"github.com/histofy/histofy/pkg/types"
	"github.com/histofy/histofy/pkg/ui"
)

func newUndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "undo",
		Short:   MsgUndoShort,
		Long:    MsgUndoLong,
		Example: MsgUndoExample,
		GroupID: "core",
		// Bare `histofy undo` undoes the most recent operation.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndoLast(cmd, 1)
		},
	}

	cmd.AddCommand(newUndoLastCmd())
	cmd.AddCommand(newUndoOperationCmd())
	cmd.AddCommand(newUndoHistoryCmd())
	cmd.AddCommand(newUndoClearCmd())
	cmd.AddCommand(newUndoExportCmd())

	return cmd
}

func newUndoLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last [count]",
		Short: MsgUndoLastShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return errors.NewValidationError("count", "invalid count %q, expected a positive integer", args[0])
				}
				count = n
			}
			return runUndoLast(cmd, count)
		},
	}
}

func newUndoOperationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operation <id>",
		Short: MsgUndoOpShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, force := undoFlags(cmd)
			if !dryRun {
				ok, err := confirm(cmd, fmt.Sprintf(MsgConfirmUndoOp, args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return errors.NewCancelled(errors.CancelUserInterrupt, MsgAborted)
				}
			}

			result, err := undo.Run(cmd.Context(), undo.Options{
				RepoPath:    ".",
				OperationID: args[0],
				Force:       force,
				DryRun:      dryRun,
			})
			if result != nil {
				if renderErr := renderUndoResult(cmd, result); renderErr != nil {
					return renderErr
				}
			}
			return err
		},
	}
}

func newUndoHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: MsgHistoryShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("type")
			status, _ := cmd.Flags().GetString("status")
			undoableOnly, _ := cmd.Flags().GetBool("undoable")
			limit, _ := cmd.Flags().GetInt("limit")

			ops, err := undo.List(cmd.Context(), undo.ListOptions{
				RepoPath:     ".",
				Type:         types.OperationType(kind),
				Status:       types.Status(status),
				UndoableOnly: undoableOnly,
				Limit:        limit,
			})
			if err != nil {
				return err
			}

			format := outputFormat(cmd)
			if format == ui.FormatJSON {
				return printJSON(cmd.OutOrStdout(), ops)
			}
			return printLine(cmd.OutOrStdout(), output.NewRenderer(format).RenderHistory(ops))
		},
	}

	cmd.Flags().String("type", "", MsgFlagHistType)
	cmd.Flags().String("status", "", MsgFlagHistStatus)
	cmd.Flags().Bool("undoable", false, MsgFlagUndoable)
	cmd.Flags().IntP("limit", "n", 0, MsgFlagLimit)

	return cmd
}

func newUndoClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: MsgClearShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, MsgConfirmClear)
			if err != nil {
				return err
			}
			if !ok {
				return errors.NewCancelled(errors.CancelUserInterrupt, MsgAborted)
			}

			if err := undo.Clear(cmd.Context(), ".", nil); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), MsgHistoryCleared)
			return nil
		},
	}
}

func newUndoExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: MsgExportShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				format = formatFromExtension(args[0])
			}

			f, err := os.Create(args[0])
			if err != nil {
				return errors.Wrapf(err, errors.ErrConfiguration, "cannot create %s", args[0])
			}
			defer f.Close()

			if err := undo.Export(cmd.Context(), ".", nil, f, format); err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return errors.Wrapf(err, errors.ErrConfiguration, "cannot write %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgExportedFormat, args[0], format)
			return nil
		},
	}

	cmd.Flags().String("format", "", MsgFlagExportFmt)

	return cmd
}

func runUndoLast(cmd *cobra.Command, count int) error {
	dryRun, force := undoFlags(cmd)
	if !dryRun {
		prompt := MsgConfirmUndoLast
		if count > 1 {
			prompt = fmt.Sprintf(MsgConfirmUndoLastN, count)
		}
		ok, err := confirm(cmd, prompt)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewCancelled(errors.CancelUserInterrupt, MsgAborted)
		}
	}

	result, err := undo.Run(cmd.Context(), undo.Options{
		RepoPath: ".",
		Last:     count,
		Force:    force,
		DryRun:   dryRun,
	})
	if result != nil {
		if renderErr := renderUndoResult(cmd, result); renderErr != nil {
			return renderErr
		}
	}
	return err
}

func undoFlags(cmd *cobra.Command) (dryRun, force bool) {
	dryRun, _ = cmd.Root().PersistentFlags().GetBool("dry-run")
	force, _ = cmd.Root().PersistentFlags().GetBool("force")
	return dryRun, force
}

type undoPayload struct {
	Operation     *types.Operation      `json:"operation"`
	Safety        types.UndoSafetyCheck `json:"safety"`
	Undone        bool                  `json:"undone"`
	Forced        bool                  `json:"forced,omitempty"`
	RestoredHead  string                `json:"restoredHead,omitempty"`
	BackupDeleted bool                  `json:"backupDeleted,omitempty"`
}

func renderUndoResult(cmd *cobra.Command, result *undo.Result) error {
	format := outputFormat(cmd)
	w := cmd.OutOrStdout()

	if format == ui.FormatJSON {
		payloads := make([]undoPayload, 0, len(result.Results))
		for _, r := range result.Results {
			payloads = append(payloads, undoPayload{
				Operation:     r.Operation,
				Safety:        r.Safety,
				Undone:        r.Undone,
				Forced:        r.Forced,
				RestoredHead:  r.RestoredHead,
				BackupDeleted: r.BackupDeleted,
			})
		}
		return printJSON(w, payloads)
	}
	if len(result.Results) == 0 {
		return printLine(w, MsgNothingToUndo)
	}
	return printLine(w, output.NewRenderer(format).RenderUndo(result.Results))
}

// formatFromExtension picks an export format from the file name; json is
// the fallback.
func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
