package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histofy/histofy/pkg/types"
)

func TestOperationTypeMutating(t *testing.T) {
	tests := []struct {
		opType   types.OperationType
		mutating bool
	}{
		{types.OperationCommit, true},
		{types.OperationMigrate, true},
		{types.OperationUndo, true},
		{types.OperationBatch, true},
		{types.OperationConfig, false},
		{types.OperationStatus, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.opType), func(t *testing.T) {
			assert.Equal(t, tt.mutating, tt.opType.Mutating())
		})
	}
}

func TestCommitMigrationWhen(t *testing.T) {
	m := types.CommitMigration{
		OriginalHash: "abc123",
		NewDate:      "2023-06-15",
		NewTime:      "09:01",
	}

	when, err := m.When(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 15, 9, 1, 0, 0, time.UTC), when)

	_, err = types.CommitMigration{NewDate: "not-a-date", NewTime: "09:00"}.When(time.UTC)
	assert.Error(t, err)
}
