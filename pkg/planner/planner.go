// Package planner turns a commit range and a target window into a
// deterministic MigrationPlan. Planning is pure: no repository access, no
// clock reads, identical inputs produce identical plans.
package planner

import (
	"fmt"
	"time"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/types"
)

const (
	// DateLayout is the wire format for plan dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format for plan times.
	TimeLayout = "15:04"

	minutesPerDay = 24 * 60
)

// Options controls how commits are distributed over the target window.
type Options struct {
	// TargetDate is the first day of the window; only its date part is used.
	TargetDate time.Time
	// SpreadDays is the number of days to distribute across, at least 1.
	SpreadDays int
	// StartTime is the first slot of each day, formatted HH:MM.
	StartTime string
	// SpacingMinutes separates consecutive commits within a day, at least 1.
	SpacingMinutes int
	// PreserveOrder is accepted for compatibility. Order is always
	// preserved; disabling it only adds a warning.
	PreserveOrder bool
}

// Plan distributes commits (oldest first) across the window. Commits fill
// each day in turn: perDay = ceil(N/S), commit i lands on day i/perDay at
// startTime + (i mod perDay) * spacing. Resulting timestamps are strictly
// increasing across the whole plan.
func Plan(commits []git.Commit, opts Options) (*types.MigrationPlan, error) {
	if len(commits) == 0 {
		return nil, errors.NewValidationError("range", "no commits to migrate")
	}
	if opts.SpreadDays < 1 {
		return nil, errors.NewValidationError("spread", "spread must be at least 1 day, got %d", opts.SpreadDays)
	}
	if opts.SpacingMinutes < 1 {
		return nil, errors.NewValidationError("spacing", "spacing must be at least 1 minute, got %d", opts.SpacingMinutes)
	}
	start, err := time.Parse(TimeLayout, opts.StartTime)
	if err != nil {
		return nil, errors.NewValidationError("start-time", "invalid start time %q, expected HH:MM", opts.StartTime)
	}

	n := len(commits)
	perDay := (n + opts.SpreadDays - 1) / opts.SpreadDays

	// A day's slots spanning 24h would collide with the next day's first
	// slot and break timestamp ordering.
	if (perDay-1)*opts.SpacingMinutes >= minutesPerDay {
		return nil, errors.NewValidationError("spacing",
			"%d commits per day with %d-minute spacing exceed 24 hours", perDay, opts.SpacingMinutes)
	}

	var warnings []string
	if !opts.PreserveOrder {
		warnings = append(warnings, "commit order is always preserved; disabling order preservation has no effect")
	}
	if opts.SpreadDays > n {
		warnings = append(warnings, fmt.Sprintf("spread of %d days exceeds %d commit(s); later days will be empty", opts.SpreadDays, n))
	}

	year, month, day := opts.TargetDate.Date()
	base := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	startMinutes := start.Hour()*60 + start.Minute()

	migrations := make([]types.CommitMigration, 0, n)
	midnightWarned := false
	for i, c := range commits {
		total := startMinutes + (i%perDay)*opts.SpacingMinutes
		dayOffset := i/perDay + total/minutesPerDay
		minuteOfDay := total % minutesPerDay

		if total >= minutesPerDay && !midnightWarned {
			warnings = append(warnings, "commit times extend past midnight and roll into the following day")
			midnightWarned = true
		}

		migrations = append(migrations, types.CommitMigration{
			OriginalHash: c.Hash,
			OriginalDate: c.Committer.When,
			NewDate:      base.AddDate(0, 0, dayOffset).Format(DateLayout),
			NewTime:      fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60),
			Author:       c.Author.String(),
			Message:      c.Summary(),
		})
	}

	return &types.MigrationPlan{
		Strategy:   types.StrategySpread,
		TargetDate: base.Format(DateLayout),
		SpreadDays: opts.SpreadDays,
		StartTime:  opts.StartTime,
		Commits:    migrations,
		Warnings:   warnings,
	}, nil
}
