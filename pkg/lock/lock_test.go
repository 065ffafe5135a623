package lock

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/testutil"
)

func TestAcquireAndRelease(t *testing.T) {
	p := testutil.TempPaths(t, "")
	l := New(p)

	require.NoError(t, l.Acquire())
	assert.True(t, l.Acquired())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	require.NoError(t, l.Release())
	assert.False(t, l.Acquired())
	_, err = os.Stat(l.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	p := testutil.TempPaths(t, "")

	first := New(p)
	require.NoError(t, first.Acquire())
	defer func() { _ = first.Release() }()

	// A second open file description conflicts on the flock even within
	// the same process.
	second := New(p)
	err := second.Acquire()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConcurrency))

	details := errors.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, os.Getpid(), details["holder_pid"])
}

func TestStaleLockReclaimed(t *testing.T) {
	p := testutil.TempPaths(t, "")
	l := New(p)

	// A crashed process leaves the file behind but its flock dies with it.
	require.NoError(t, os.MkdirAll(p.RepoStateDir(), 0o755))
	require.NoError(t, os.WriteFile(l.Path(), []byte("999999"), 0o666))

	require.NoError(t, l.Acquire())
	defer func() { _ = l.Release() }()

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))
}

func TestReleaseWithoutAcquire(t *testing.T) {
	p := testutil.TempPaths(t, "")
	assert.NoError(t, New(p).Release())
}

func TestReacquireAfterRelease(t *testing.T) {
	p := testutil.TempPaths(t, "")
	l := New(p)

	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())

	again := New(p)
	require.NoError(t, again.Acquire())
	assert.NoError(t, again.Release())
}
