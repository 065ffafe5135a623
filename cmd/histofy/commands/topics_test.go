package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsCommand(t *testing.T) {
	// The topics command is a thin wrapper that runs "help topics". The
	// help system itself loads topic files relative to the executable,
	// which a unit test cannot see, so these tests cover the command
	// structure and the fallback error.

	t.Run("structure", func(t *testing.T) {
		cmd := NewRootCmd()

		topicsCmd := findCommand(t, cmd, "topics")
		require.NotNil(t, topicsCmd, "topics command should exist")
		assert.Equal(t, "topics", topicsCmd.Use)
		assert.Equal(t, MsgTopicsShort, topicsCmd.Short)
		assert.Equal(t, MsgTopicsLong, topicsCmd.Long)
		assert.Equal(t, "misc", topicsCmd.GroupID)
		assert.NotNil(t, topicsCmd.RunE)
		assert.Empty(t, topicsCmd.Commands(), "topics has no subcommands")
		assert.False(t, topicsCmd.HasLocalFlags(), "topics has no local flags")
	})

	t.Run("errors when help system is absent", func(t *testing.T) {
		// Without topic files on disk the help command is never
		// installed, so the wrapper has nothing to invoke.
		_, err := execute(t, "topics")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "help command not found")
	})
}

func TestTopicsCommandMessages(t *testing.T) {
	assert.NotEmpty(t, MsgTopicsShort)
	assert.NotEmpty(t, MsgTopicsLong)
	assert.NotContains(t, MsgTopicsShort, "\n", "short description is a single line")
}
