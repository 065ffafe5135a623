package types

import "time"

// MigrationStrategy names how commit dates are distributed across the
// target window.
type MigrationStrategy string

const (
	// StrategySpread distributes commits evenly across the requested days,
	// preserving commit order with strictly increasing timestamps.
	StrategySpread MigrationStrategy = "spread"
)

// CommitMigration maps one commit to its new timestamp. Immutable once
// planned: executors read these, they never adjust them.
type CommitMigration struct {
	OriginalHash string    `json:"originalHash"`
	OriginalDate time.Time `json:"originalDate"`
	NewDate      string    `json:"newDate"` // YYYY-MM-DD
	NewTime      string    `json:"newTime"` // HH:MM
	Author       string    `json:"author"`
	Message      string    `json:"message"`
}

// When returns the full timestamp this migration assigns, in the given
// location.
func (m CommitMigration) When(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", m.NewDate+" "+m.NewTime, loc)
}

// MigrationPlan is the complete, deterministic description of a pending
// date rewrite. Commits appear in original (oldest-first) order and each
// commit in the planned range appears exactly once.
type MigrationPlan struct {
	Strategy   MigrationStrategy `json:"strategy"`
	TargetDate string            `json:"targetDate"` // YYYY-MM-DD
	SpreadDays int               `json:"spreadDays"`
	StartTime  string            `json:"startTime"` // HH:MM
	Commits    []CommitMigration `json:"commits"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// CommitCount returns the number of commits the plan rewrites.
func (p *MigrationPlan) CommitCount() int {
	return len(p.Commits)
}
