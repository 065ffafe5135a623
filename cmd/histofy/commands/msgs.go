package commands

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Manage git commit dates and safely rewrite history"
	MsgCommitShort     = "Create a commit with an explicit date"
	MsgMigrateShort    = "Move existing commits to new dates"
	MsgUndoShort       = "Undo recorded operations"
	MsgUndoLastShort   = "Undo the most recent operation(s)"
	MsgUndoOpShort     = "Undo one operation by id"
	MsgHistoryShort    = "List recorded operations"
	MsgClearShort      = "Clear the operation history"
	MsgExportShort     = "Export the operation history to a file"
	MsgBatchShort      = "Create several dated commits from a plan file"
	MsgStatusShort     = "Show the repository and last operation"
	MsgStatusLong      = "Status summarizes the current branch, working tree and the most recent recorded operation."
	MsgConfigShort     = "Read and write histofy configuration"
	MsgConfigGetShort  = "Print the effective value of a key"
	MsgConfigSetShort  = "Write a key to the user configuration file"
	MsgConfigListShort = "List every recognized key with its value"
	MsgTopicsShort     = "Display available documentation topics"
	MsgTopicsLong      = "Display a list of all available help topics that provide additional documentation beyond command help."
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgNothingToUndo  = "Nothing to undo."
	MsgHistoryCleared = "Operation history cleared.\n"
	MsgExportedFormat = "Exported operation history to %s (%s)\n"
	MsgBatchFormat    = "Created %d commit(s) from %s:\n"
	MsgBatchItem      = "  %s  %s  %s\n"
	MsgBatchPushed    = "Pushed to remote\n"
	MsgConfigFormat   = "%s = %s\n"
	MsgConfigSet      = "Set %s = %s\n"
	MsgAborted        = "aborted"

	// Prompts
	MsgConfirmMigrate   = "Rewrite the dates of these commits? This changes history"
	MsgConfirmUndoLast  = "Undo the last operation?"
	MsgConfirmUndoLastN = "Undo the last %d operations?"
	MsgConfirmUndoOp    = "Undo operation %s?"
	MsgConfirmClear     = "Clear the operation history? Cleared operations can no longer be undone"

	// Flag descriptions
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDryRun      = "Preview changes without executing them"
	MsgFlagForce       = "Override safety checks (overrides are logged)"
	MsgFlagYes         = "Answer yes to every confirmation prompt"
	MsgFlagOutput      = "Output format (auto, term, text, json)"
	MsgFlagDate        = "Commit date, YYYY-MM-DD (default today)"
	MsgFlagTime        = "Commit time, HH:MM (default from configuration)"
	MsgFlagAddAll      = "Stage all modified files before committing"
	MsgFlagAuthor      = "Override the author, \"Name <email>\""
	MsgFlagAllowEmpty  = "Allow a commit with no staged changes"
	MsgFlagPush        = "Push to the remote after the local work succeeds"
	MsgFlagForcePush   = "Force-push the rewritten branch after the migration"
	MsgFlagToDate      = "First day of the target window, YYYY-MM-DD"
	MsgFlagSpread      = "Number of days to distribute commits across"
	MsgFlagStartTime   = "First commit slot of each day, HH:MM"
	MsgFlagExecute     = "Perform the rewrite (default is a preview)"
	MsgFlagAutoResolve = "Resolve conflicts without prompting: theirs or ours"
	MsgFlagNoBackup    = "Skip the backup branch (disables undo for this migration)"
	MsgFlagNoRollback  = "Keep the partial result if the rewrite fails"
	MsgFlagPlanFile    = "YAML plan file with the commits to create"
	MsgFlagHistType    = "Only operations of this type (commit, migrate, undo, batch, config)"
	MsgFlagHistStatus  = "Only operations with this status (completed, failed, undone)"
	MsgFlagUndoable    = "Only operations that can still be undone"
	MsgFlagLimit       = "Maximum number of operations to list (0 = all)"
	MsgFlagExportFmt   = "Export format: json or yaml (default from file extension)"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)

	//go:embed msgs/commit-long.txt
	msgCommitLongRaw string
	MsgCommitLong    = strings.TrimSpace(msgCommitLongRaw)

	//go:embed msgs/commit-example.txt
	msgCommitExampleRaw string
	MsgCommitExample    = strings.TrimSpace(msgCommitExampleRaw)

	//go:embed msgs/migrate-long.txt
	msgMigrateLongRaw string
	MsgMigrateLong    = strings.TrimSpace(msgMigrateLongRaw)

	//go:embed msgs/migrate-example.txt
	msgMigrateExampleRaw string
	MsgMigrateExample    = strings.TrimSpace(msgMigrateExampleRaw)

	//go:embed msgs/undo-long.txt
	msgUndoLongRaw string
	MsgUndoLong    = strings.TrimSpace(msgUndoLongRaw)

	//go:embed msgs/undo-example.txt
	msgUndoExampleRaw string
	MsgUndoExample    = strings.TrimSpace(msgUndoExampleRaw)

	//go:embed msgs/batch-long.txt
	msgBatchLongRaw string
	MsgBatchLong    = strings.TrimSpace(msgBatchLongRaw)

	//go:embed msgs/batch-example.txt
	msgBatchExampleRaw string
	MsgBatchExample    = strings.TrimSpace(msgBatchExampleRaw)

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/config-example.txt
	msgConfigExampleRaw string
	MsgConfigExample    = strings.TrimSpace(msgConfigExampleRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)
)
