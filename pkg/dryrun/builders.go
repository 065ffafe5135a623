package dryrun

import (
	"fmt"
	"time"

	"github.com/histofy/histofy/pkg/types"
)

// Flat estimates per simulated step. Previews only need an order of
// magnitude, not a benchmark.
const (
	stageDuration   = 50 * time.Millisecond
	commitDuration  = 100 * time.Millisecond
	branchDuration  = 50 * time.Millisecond
	rewriteDuration = 200 * time.Millisecond
	pushDuration    = 2 * time.Second
	configDuration  = 10 * time.Millisecond
)

// CommitPreview carries the inputs of a single planned commit.
type CommitPreview struct {
	Message string
	Date    string // YYYY-MM-DD
	Time    string // HH:MM
	AddAll  bool
	Files   []string
	Push    bool
}

// ForCommit simulates `histofy commit`.
func ForCommit(p CommitPreview) []types.DryRunOperation {
	var ops []types.DryRunOperation

	if p.AddAll {
		ops = append(ops, types.DryRunOperation{
			Type:              types.OperationCommit,
			Description:       "Stage all pending changes",
			EstimatedDuration: stageDuration,
			Risk:              types.RiskLow,
			Reversible:        true,
			GitCommand:        "add",
			GitArgs:           []string{"--all"},
		})
	} else if len(p.Files) > 0 {
		ops = append(ops, types.DryRunOperation{
			Type:              types.OperationCommit,
			Description:       fmt.Sprintf("Stage %d file(s)", len(p.Files)),
			EstimatedDuration: stageDuration,
			Risk:              types.RiskLow,
			Reversible:        true,
			GitCommand:        "add",
			GitArgs:           p.Files,
			AffectedFiles:     p.Files,
		})
	}

	ops = append(ops, types.DryRunOperation{
		Type:        types.OperationCommit,
		Description: fmt.Sprintf("Create commit %q dated %s %s", p.Message, p.Date, p.Time),
		Details: map[string]string{
			"date": p.Date,
			"time": p.Time,
		},
		EstimatedDuration: commitDuration,
		Risk:              types.RiskLow,
		Reversible:        true,
		GitCommand:        "commit",
		GitArgs:           []string{"-m", p.Message},
		AffectedFiles:     p.Files,
	})

	if p.Push {
		ops = append(ops, pushOperation(types.OperationCommit, false))
	}
	return ops
}

// ForMigration simulates executing a migration plan. The rewrite is graded
// high risk; it stays reversible only while a backup branch exists.
func ForMigration(plan *types.MigrationPlan, createBackup, push bool) []types.DryRunOperation {
	var ops []types.DryRunOperation

	if createBackup {
		ops = append(ops, types.DryRunOperation{
			Type:              types.OperationMigrate,
			Description:       "Create backup branch pointing at the current head",
			EstimatedDuration: branchDuration,
			Risk:              types.RiskLow,
			Reversible:        true,
			GitCommand:        "branch",
		})
	}

	n := plan.CommitCount()
	ops = append(ops, types.DryRunOperation{
		Type: types.OperationMigrate,
		Description: fmt.Sprintf("Rewrite dates of %d commit(s) starting %s over %d day(s)",
			n, plan.TargetDate, plan.SpreadDays),
		Details: map[string]string{
			"commits":    fmt.Sprintf("%d", n),
			"targetDate": plan.TargetDate,
			"spreadDays": fmt.Sprintf("%d", plan.SpreadDays),
			"startTime":  plan.StartTime,
		},
		EstimatedDuration: time.Duration(n) * rewriteDuration,
		Risk:              types.RiskHigh,
		Reversible:        createBackup,
		GitCommand:        "rebase",
	})

	if push {
		ops = append(ops, pushOperation(types.OperationMigrate, true))
	}
	return ops
}

// ForConfig simulates `histofy config set`.
func ForConfig(key, value string) types.DryRunOperation {
	return types.DryRunOperation{
		Type:        types.OperationConfig,
		Description: fmt.Sprintf("Set %s to %q", key, value),
		Details: map[string]string{
			"key":   key,
			"value": value,
		},
		EstimatedDuration: configDuration,
		Risk:              types.RiskLow,
		Reversible:        true,
	}
}

// ForBatch simulates a batch plan file: one dated commit per entry, one
// push at the end when requested.
func ForBatch(entries []types.BatchEntry, push bool) []types.DryRunOperation {
	var ops []types.DryRunOperation
	for _, e := range entries {
		ops = append(ops, types.DryRunOperation{
			Type:        types.OperationBatch,
			Description: fmt.Sprintf("Create commit %q dated %s %s", e.Message, e.Date, e.Time),
			Details: map[string]string{
				"date": e.Date,
				"time": e.Time,
			},
			EstimatedDuration: commitDuration,
			Risk:              types.RiskLow,
			Reversible:        true,
			GitCommand:        "commit",
			GitArgs:           []string{"-m", e.Message},
			AffectedFiles:     e.Files,
		})
	}
	if push {
		ops = append(ops, pushOperation(types.OperationBatch, false))
	}
	return ops
}

// pushOperation is the shared shape of a simulated push. Pushes publish
// history beyond this repository, so they are never reversible.
func pushOperation(opType types.OperationType, rewritten bool) types.DryRunOperation {
	op := types.DryRunOperation{
		Type:              opType,
		Description:       "Push to the remote",
		EstimatedDuration: pushDuration,
		Risk:              types.RiskMedium,
		Reversible:        false,
		GitCommand:        "push",
	}
	if rewritten {
		op.Description = "Force-push rewritten history to the remote"
		op.GitArgs = []string{"--force-with-lease"}
	}
	return op
}
