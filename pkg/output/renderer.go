// Package output renders histofy's results for people. Renderers are
// pure: they take domain values and return strings, so commands decide
// where the text goes and tests assert on content without a terminal.
package output

import (
	"fmt"
	"strings"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/history"
	"github.com/histofy/histofy/pkg/migration"
	"github.com/histofy/histofy/pkg/style"
	"github.com/histofy/histofy/pkg/types"
	"github.com/histofy/histofy/pkg/ui"
)

// timeLayout is how timestamps appear in human output.
const timeLayout = "2006-01-02 15:04"

// StatusView is the repository summary the status command renders.
type StatusView struct {
	Branch        string           `json:"branch" yaml:"branch"`
	Head          string           `json:"head" yaml:"head"`
	Detached      bool             `json:"detached" yaml:"detached"`
	Staged        []string         `json:"staged,omitempty" yaml:"staged,omitempty"`
	Unstaged      []string         `json:"unstaged,omitempty" yaml:"unstaged,omitempty"`
	Untracked     []string         `json:"untracked,omitempty" yaml:"untracked,omitempty"`
	LastOperation *types.Operation `json:"lastOperation,omitempty" yaml:"lastOperation,omitempty"`
}

// Clean reports whether the view shows no local modifications.
func (v StatusView) Clean() bool {
	return len(v.Staged) == 0 && len(v.Unstaged) == 0 && len(v.Untracked) == 0
}

// Renderer turns command results into displayable text.
type Renderer interface {
	// RenderPlan renders a migration preview.
	RenderPlan(plan *types.MigrationPlan) string

	// RenderMigration renders the outcome of an executed migration.
	RenderMigration(result *migration.Result, pushed bool) string

	// RenderCommit renders a created commit.
	RenderCommit(c *git.Commit, pushed bool) string

	// RenderHistory renders an operation listing, newest first.
	RenderHistory(ops []types.Operation) string

	// RenderUndo renders the outcome of one or more undos.
	RenderUndo(results []*history.UndoResult) string

	// RenderStatus renders the repository summary.
	RenderStatus(view StatusView) string

	// RenderError renders a failure with its error code.
	RenderError(err error) string
}

// NewRenderer picks a renderer for the format. JSON output is marshaled
// at the command layer and never reaches a renderer.
func NewRenderer(format ui.Format) Renderer {
	if format == ui.FormatTerminal {
		return NewRichRenderer()
	}
	return NewPlainRenderer()
}

// RichRenderer renders styled terminal output in a three-column layout.
type RichRenderer struct {
	hashWidth int
	typeWidth int
}

// NewRichRenderer returns a renderer with the standard column widths.
func NewRichRenderer() *RichRenderer {
	return &RichRenderer{
		hashWidth: 10,
		typeWidth: 8,
	}
}

// RenderPlan renders a migration preview.
func (r *RichRenderer) RenderPlan(plan *types.MigrationPlan) string {
	var output strings.Builder

	output.WriteString(style.TitleStyle.Render("Migration plan") + "\n")
	summary := fmt.Sprintf("%d commit(s) over %d day(s) starting %s %s",
		plan.CommitCount(), plan.SpreadDays, plan.TargetDate, plan.StartTime)
	output.WriteString(style.Indent(style.MutedStyle.Render(summary), 1) + "\n\n")

	for _, c := range plan.Commits {
		hash := style.HashStyle.Render(padRight(shortHash(c.OriginalHash), r.hashWidth))
		dates := style.DateStyle.Render(fmt.Sprintf("%s -> %s %s",
			c.OriginalDate.Format(timeLayout), c.NewDate, c.NewTime))
		output.WriteString(style.Indent(fmt.Sprintf("%s : %s : %s", hash, dates, firstLine(c.Message)), 1) + "\n")
	}

	if len(plan.Warnings) > 0 {
		output.WriteString("\n")
		for _, warn := range plan.Warnings {
			output.WriteString(style.Indent(style.WarningIndicator+" "+style.WarningStyle.Render(warn), 1) + "\n")
		}
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderMigration renders the outcome of an executed migration.
func (r *RichRenderer) RenderMigration(result *migration.Result, pushed bool) string {
	var output strings.Builder

	switch {
	case result.RollbackFailed:
		output.WriteString(style.ErrorIndicator + " " + style.ErrorStyle.Render("Migration failed and rollback failed") + "\n")
		output.WriteString(style.Indent("Restore manually: git reset --hard "+style.BranchStyle.Render(result.BackupBranch), 1) + "\n")
	case result.RolledBack:
		output.WriteString(style.ErrorIndicator + " " + style.ErrorStyle.Render("Migration failed, repository rolled back") + "\n")
		output.WriteString(style.Indent("Restored from "+style.BranchStyle.Render(result.BackupBranch), 1) + "\n")
	case result.Aborted:
		output.WriteString(style.ErrorIndicator + " " + style.ErrorStyle.Render("Migration aborted") + "\n")
		if result.BackupBranch != "" {
			output.WriteString(style.Indent("Backup branch kept: "+style.BranchStyle.Render(result.BackupBranch), 1) + "\n")
		}
	default:
		output.WriteString(style.SuccessIndicator + " " + style.SuccessStyle.Render(
			fmt.Sprintf("Migrated %d commit(s)", result.MigratedCount)) + "\n")
		if result.BackupBranch != "" {
			output.WriteString(style.Indent("Backup branch: "+style.BranchStyle.Render(result.BackupBranch), 1) + "\n")
		}
		if result.FinalHead != "" {
			output.WriteString(style.Indent("New HEAD: "+style.HashStyle.Render(shortHash(result.FinalHead)), 1) + "\n")
		}
		if pushed {
			output.WriteString(style.Indent("Pushed to remote (forced)", 1) + "\n")
		}
	}

	if result.ConflictsEncountered > 0 {
		output.WriteString(style.Indent(fmt.Sprintf("%d conflict(s) encountered", result.ConflictsEncountered), 1) + "\n")
	}
	for _, warn := range result.IntegrityWarnings {
		output.WriteString(style.Indent(style.WarningIndicator+" "+style.WarningStyle.Render(warn), 1) + "\n")
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderCommit renders a created commit.
func (r *RichRenderer) RenderCommit(c *git.Commit, pushed bool) string {
	var output strings.Builder

	output.WriteString(style.SuccessIndicator + " " + style.SuccessStyle.Render("Created commit") + " " +
		style.HashStyle.Render(c.ShortHash()) + "\n")
	output.WriteString(style.Indent(fmt.Sprintf("%s : %s : %s",
		style.DateStyle.Render(c.Author.When.Format(timeLayout)), c.Author.Name, c.Summary()), 1) + "\n")
	if pushed {
		output.WriteString(style.Indent("Pushed to remote", 1) + "\n")
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderHistory renders an operation listing, newest first.
func (r *RichRenderer) RenderHistory(ops []types.Operation) string {
	if len(ops) == 0 {
		return style.MutedStyle.Render("No operations in history.")
	}

	var output strings.Builder
	output.WriteString(style.TitleStyle.Render("Operation history") + "\n\n")

	for _, op := range ops {
		indicator := style.StatusIndicator(op.Status)
		id := style.HashStyle.Render(padRight(shortID(op.ID), r.hashWidth))
		kind := style.TypeStyle(op.Type).Sprint(padRight(string(op.Type), r.typeWidth))
		description := op.Description
		if op.Status == types.StatusUndone {
			description = style.MutedStyle.Render(description + " (undone)")
		}
		line := fmt.Sprintf("%s %s : %s : %s : %s",
			indicator, id, op.StartedAt.Format(timeLayout), kind, description)
		output.WriteString(style.Indent(line, 1) + "\n")
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderUndo renders the outcome of one or more undos.
func (r *RichRenderer) RenderUndo(results []*history.UndoResult) string {
	var output strings.Builder

	for _, res := range results {
		op := res.Operation
		if !res.Undone {
			output.WriteString(style.InfoIndicator + " " + fmt.Sprintf("Would undo %s %s: %s",
				op.Type, shortID(op.ID), op.Description) + "\n")
			continue
		}
		output.WriteString(style.SuccessIndicator + " " + style.SuccessStyle.Render(
			fmt.Sprintf("Undid %s %s", op.Type, shortID(op.ID))) + "\n")
		if res.RestoredHead != "" {
			output.WriteString(style.Indent("HEAD restored to "+style.HashStyle.Render(shortHash(res.RestoredHead)), 1) + "\n")
		}
		if res.BackupDeleted {
			output.WriteString(style.Indent(style.MutedStyle.Render("Backup branch deleted"), 1) + "\n")
		}
		if res.Forced {
			output.WriteString(style.Indent(style.WarningIndicator+" "+style.WarningStyle.Render(
				"Forced past safety check: "+res.Safety.Reason), 1) + "\n")
		}
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderStatus renders the repository summary.
func (r *RichRenderer) RenderStatus(view StatusView) string {
	var output strings.Builder

	if view.Detached {
		output.WriteString(style.WarningIndicator + " HEAD detached at " +
			style.HashStyle.Render(shortHash(view.Head)) + "\n")
	} else {
		output.WriteString("On branch " + style.BranchStyle.Render(view.Branch) +
			" at " + style.HashStyle.Render(shortHash(view.Head)) + "\n")
	}

	if view.Clean() {
		output.WriteString(style.Indent(style.SuccessIndicator+" working tree clean", 1) + "\n")
	} else {
		output.WriteString(style.Indent(fmt.Sprintf("%d staged, %d unstaged, %d untracked",
			len(view.Staged), len(view.Unstaged), len(view.Untracked)), 1) + "\n")
	}

	if op := view.LastOperation; op != nil {
		line := fmt.Sprintf("Last operation: %s %s %s (%s)",
			style.StatusIndicator(op.Status), op.Type, op.Description,
			op.StartedAt.Format(timeLayout))
		output.WriteString(style.Indent(line, 1) + "\n")
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderError renders a failure with its error code.
func (r *RichRenderer) RenderError(err error) string {
	code := errors.GetErrorCode(err)
	return style.ErrorIndicator + " " + style.ErrorStyle.Render(fmt.Sprintf("[%s] %v", code, err))
}

// PlainRenderer renders the same content without styling, for pipes and
// NO_COLOR environments.
type PlainRenderer struct {
	hashWidth int
	typeWidth int
}

// NewPlainRenderer returns a plain text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{
		hashWidth: 10,
		typeWidth: 8,
	}
}

// RenderPlan renders a migration preview as plain text.
func (r *PlainRenderer) RenderPlan(plan *types.MigrationPlan) string {
	var output strings.Builder

	output.WriteString("MIGRATION PLAN\n")
	output.WriteString(fmt.Sprintf("  %d commit(s) over %d day(s) starting %s %s\n\n",
		plan.CommitCount(), plan.SpreadDays, plan.TargetDate, plan.StartTime))

	for _, c := range plan.Commits {
		output.WriteString(fmt.Sprintf("  %s : %s -> %s %s : %s\n",
			padRight(shortHash(c.OriginalHash), r.hashWidth),
			c.OriginalDate.Format(timeLayout), c.NewDate, c.NewTime, firstLine(c.Message)))
	}

	if len(plan.Warnings) > 0 {
		output.WriteString("\n")
		for _, warn := range plan.Warnings {
			output.WriteString("  warning: " + warn + "\n")
		}
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderMigration renders a migration outcome as plain text.
func (r *PlainRenderer) RenderMigration(result *migration.Result, pushed bool) string {
	var output strings.Builder

	switch {
	case result.RollbackFailed:
		output.WriteString("MIGRATION FAILED, ROLLBACK FAILED\n")
		output.WriteString("  restore manually: git reset --hard " + result.BackupBranch + "\n")
	case result.RolledBack:
		output.WriteString("MIGRATION FAILED, ROLLED BACK\n")
		output.WriteString("  restored from " + result.BackupBranch + "\n")
	case result.Aborted:
		output.WriteString("MIGRATION ABORTED\n")
		if result.BackupBranch != "" {
			output.WriteString("  backup branch kept: " + result.BackupBranch + "\n")
		}
	default:
		output.WriteString(fmt.Sprintf("Migrated %d commit(s)\n", result.MigratedCount))
		if result.BackupBranch != "" {
			output.WriteString("  backup branch: " + result.BackupBranch + "\n")
		}
		if result.FinalHead != "" {
			output.WriteString("  new HEAD: " + shortHash(result.FinalHead) + "\n")
		}
		if pushed {
			output.WriteString("  pushed to remote (forced)\n")
		}
	}

	if result.ConflictsEncountered > 0 {
		output.WriteString(fmt.Sprintf("  %d conflict(s) encountered\n", result.ConflictsEncountered))
	}
	for _, warn := range result.IntegrityWarnings {
		output.WriteString("  warning: " + warn + "\n")
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderCommit renders a created commit as plain text.
func (r *PlainRenderer) RenderCommit(c *git.Commit, pushed bool) string {
	var output strings.Builder

	output.WriteString("Created commit " + c.ShortHash() + "\n")
	output.WriteString(fmt.Sprintf("  %s : %s : %s\n",
		c.Author.When.Format(timeLayout), c.Author.Name, c.Summary()))
	if pushed {
		output.WriteString("  pushed to remote\n")
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderHistory renders an operation listing as plain text.
func (r *PlainRenderer) RenderHistory(ops []types.Operation) string {
	if len(ops) == 0 {
		return "No operations in history."
	}

	var output strings.Builder
	output.WriteString("OPERATION HISTORY\n\n")

	for _, op := range ops {
		description := op.Description
		if op.Status == types.StatusUndone {
			description += " (undone)"
		}
		output.WriteString(fmt.Sprintf("  %s : %s : %s : %s : %s\n",
			padRight(shortID(op.ID), r.hashWidth), op.StartedAt.Format(timeLayout),
			padRight(string(op.Type), r.typeWidth), op.Status, description))
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderUndo renders undo outcomes as plain text.
func (r *PlainRenderer) RenderUndo(results []*history.UndoResult) string {
	var output strings.Builder

	for _, res := range results {
		op := res.Operation
		if !res.Undone {
			output.WriteString(fmt.Sprintf("Would undo %s %s: %s\n", op.Type, shortID(op.ID), op.Description))
			continue
		}
		output.WriteString(fmt.Sprintf("Undid %s %s\n", op.Type, shortID(op.ID)))
		if res.RestoredHead != "" {
			output.WriteString("  HEAD restored to " + shortHash(res.RestoredHead) + "\n")
		}
		if res.BackupDeleted {
			output.WriteString("  backup branch deleted\n")
		}
		if res.Forced {
			output.WriteString("  forced past safety check: " + res.Safety.Reason + "\n")
		}
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderStatus renders the repository summary as plain text.
func (r *PlainRenderer) RenderStatus(view StatusView) string {
	var output strings.Builder

	if view.Detached {
		output.WriteString("HEAD detached at " + shortHash(view.Head) + "\n")
	} else {
		output.WriteString("On branch " + view.Branch + " at " + shortHash(view.Head) + "\n")
	}

	if view.Clean() {
		output.WriteString("  working tree clean\n")
	} else {
		output.WriteString(fmt.Sprintf("  %d staged, %d unstaged, %d untracked\n",
			len(view.Staged), len(view.Unstaged), len(view.Untracked)))
	}

	if op := view.LastOperation; op != nil {
		output.WriteString(fmt.Sprintf("  Last operation: %s %s (%s, %s)\n",
			op.Type, op.Description, op.Status, op.StartedAt.Format(timeLayout)))
	}

	return strings.TrimRight(output.String(), "\n")
}

// RenderError renders a failure with its error code as plain text.
func (r *PlainRenderer) RenderError(err error) string {
	return fmt.Sprintf("error: [%s] %v", errors.GetErrorCode(err), err)
}

// padRight pads a string to the given width, truncating with an ellipsis
// when it does not fit.
func padRight(s string, width int) string {
	if len(s) > width {
		return s[:width-1] + "…"
	}
	if len(s) == width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// shortHash abbreviates a commit hash for display.
func shortHash(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}

// shortID abbreviates an operation id to the prefix users paste back.
func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

// firstLine returns the first line of a commit message.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

