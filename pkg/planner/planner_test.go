package planner_test

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/git"
	"github.com/histofy/histofy/pkg/planner"
	"github.com/histofy/histofy/pkg/types"
)

func makeCommits(n int) []git.Commit {
	commits := make([]git.Commit, 0, n)
	for i := 0; i < n; i++ {
		commits = append(commits, git.Commit{
			Hash: fmt.Sprintf("%040d", i),
			Author: git.Signature{
				Name:  "Dev",
				Email: "dev@example.com",
				When:  time.Date(2023, 5, 1, 12+i, 0, 0, 0, time.UTC),
			},
			Committer: git.Signature{
				Name:  "Dev",
				Email: "dev@example.com",
				When:  time.Date(2023, 5, 1, 12+i, 0, 0, 0, time.UTC),
			},
			Message: fmt.Sprintf("commit %d\n\nbody\n", i),
		})
	}
	return commits
}

func defaultOptions() planner.Options {
	return planner.Options{
		TargetDate:     time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		SpreadDays:     1,
		StartTime:      "09:00",
		SpacingMinutes: 1,
		PreserveOrder:  true,
	}
}

func TestPlanSingleDay(t *testing.T) {
	plan, err := planner.Plan(makeCommits(3), defaultOptions())
	require.NoError(t, err)

	require.Equal(t, 3, plan.CommitCount())
	assert.Equal(t, types.StrategySpread, plan.Strategy)
	assert.Equal(t, "2023-06-15", plan.TargetDate)
	assert.Empty(t, plan.Warnings)

	for i, wantTime := range []string{"09:00", "09:01", "09:02"} {
		assert.Equal(t, "2023-06-15", plan.Commits[i].NewDate)
		assert.Equal(t, wantTime, plan.Commits[i].NewTime)
	}
	assert.Equal(t, "commit 0", plan.Commits[0].Message)
	assert.Equal(t, "Dev <dev@example.com>", plan.Commits[0].Author)
}

func TestPlanSpreadAcrossDays(t *testing.T) {
	opts := defaultOptions()
	opts.SpreadDays = 2

	plan, err := planner.Plan(makeCommits(5), opts)
	require.NoError(t, err)

	// perDay = ceil(5/2) = 3: three commits on day one, two on day two.
	want := []struct{ date, tm string }{
		{"2023-06-15", "09:00"},
		{"2023-06-15", "09:01"},
		{"2023-06-15", "09:02"},
		{"2023-06-16", "09:00"},
		{"2023-06-16", "09:01"},
	}
	for i, w := range want {
		assert.Equal(t, w.date, plan.Commits[i].NewDate, "commit %d", i)
		assert.Equal(t, w.tm, plan.Commits[i].NewTime, "commit %d", i)
	}
}

func TestPlanCustomSpacing(t *testing.T) {
	opts := defaultOptions()
	opts.SpacingMinutes = 45
	opts.StartTime = "22:00"

	plan, err := planner.Plan(makeCommits(4), opts)
	require.NoError(t, err)

	want := []struct{ date, tm string }{
		{"2023-06-15", "22:00"},
		{"2023-06-15", "22:45"},
		{"2023-06-15", "23:30"},
		{"2023-06-16", "00:15"},
	}
	for i, w := range want {
		assert.Equal(t, w.date, plan.Commits[i].NewDate, "commit %d", i)
		assert.Equal(t, w.tm, plan.Commits[i].NewTime, "commit %d", i)
	}
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "past midnight")
}

func TestPlanSpreadExceedsCommits(t *testing.T) {
	opts := defaultOptions()
	opts.SpreadDays = 5

	plan, err := planner.Plan(makeCommits(2), opts)
	require.NoError(t, err)

	// One commit per day, trailing days unused.
	assert.Equal(t, "2023-06-15", plan.Commits[0].NewDate)
	assert.Equal(t, "2023-06-16", plan.Commits[1].NewDate)
	assert.Equal(t, "09:00", plan.Commits[0].NewTime)
	assert.Equal(t, "09:00", plan.Commits[1].NewTime)

	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "exceeds 2 commit(s)")
}

func TestPlanTimestampsStrictlyIncreasing(t *testing.T) {
	cases := []planner.Options{
		defaultOptions(),
		{TargetDate: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), SpreadDays: 3, StartTime: "23:50", SpacingMinutes: 30, PreserveOrder: true},
		{TargetDate: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), SpreadDays: 2, StartTime: "00:00", SpacingMinutes: 90, PreserveOrder: true},
	}
	for _, opts := range cases {
		plan, err := planner.Plan(makeCommits(7), opts)
		require.NoError(t, err)

		var prev time.Time
		for i, m := range plan.Commits {
			when, err := m.When(time.UTC)
			require.NoError(t, err)
			if i > 0 {
				assert.True(t, when.After(prev),
					"commit %d at %v not after %v (start %s spacing %d)",
					i, when, prev, opts.StartTime, opts.SpacingMinutes)
			}
			prev = when
		}
	}
}

func TestPlanPreserveOrderDisabledWarns(t *testing.T) {
	opts := defaultOptions()
	opts.PreserveOrder = false

	plan, err := planner.Plan(makeCommits(2), opts)
	require.NoError(t, err)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "order is always preserved")

	// The flag changes nothing else.
	opts.PreserveOrder = true
	same, err := planner.Plan(makeCommits(2), opts)
	require.NoError(t, err)
	assert.Equal(t, same.Commits, plan.Commits)
}

func TestPlanDeterministic(t *testing.T) {
	opts := defaultOptions()
	opts.SpreadDays = 3

	a, err := planner.Plan(makeCommits(10), opts)
	require.NoError(t, err)
	b, err := planner.Plan(makeCommits(10), opts)
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(a, b))
}

func TestPlanValidation(t *testing.T) {
	tests := []struct {
		name    string
		commits []git.Commit
		mutate  func(*planner.Options)
	}{
		{"no commits", nil, func(o *planner.Options) {}},
		{"zero spread", makeCommits(1), func(o *planner.Options) { o.SpreadDays = 0 }},
		{"negative spread", makeCommits(1), func(o *planner.Options) { o.SpreadDays = -2 }},
		{"zero spacing", makeCommits(1), func(o *planner.Options) { o.SpacingMinutes = 0 }},
		{"bad start time", makeCommits(1), func(o *planner.Options) { o.StartTime = "9am" }},
		{"day overflows 24h", makeCommits(2), func(o *planner.Options) { o.SpacingMinutes = 1440 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.mutate(&opts)
			_, err := planner.Plan(tt.commits, opts)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrValidation))
		})
	}
}
