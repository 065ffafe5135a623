// Package lock serializes mutating operations per repository. A lock file
// under the repository's state directory holds the owner's PID and an
// exclusive flock; stale locks left by dead processes are reclaimed.
package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/logging"
	"github.com/histofy/histofy/pkg/paths"
)

// Locker prevents concurrent histofy instances from rewriting the same
// repository.
type Locker struct {
	lockFile string
	lockFd   *os.File
	pid      int
	acquired bool
}

// New creates a Locker for the repository described by p.
func New(p paths.Paths) *Locker {
	return &Locker{
		lockFile: p.LockPath(),
		pid:      os.Getpid(),
	}
}

// Path returns the lock file location.
func (l *Locker) Path() string {
	return l.lockFile
}

// Acquired reports whether this Locker currently holds the lock.
func (l *Locker) Acquired() bool {
	return l.acquired
}

// Acquire takes the repository lock. It fails with a CONCURRENCY_ERROR
// carrying the holder's PID when another live histofy process owns it.
func (l *Locker) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.lockFile), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create lock directory")
	}

	err := l.tryCreateLock()
	if err == nil {
		return nil
	}
	if os.IsExist(err) {
		return l.tryAcquireExistingLock()
	}
	return err
}

// tryCreateLock atomically creates and locks a fresh lock file.
func (l *Locker) tryCreateLock() error {
	var err error

	// O_EXCL with O_CREATE ensures the file is created atomically.
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o666)
	if err != nil {
		if os.IsExist(err) {
			return err
		}
		return errors.Wrap(err, errors.ErrInternal, "failed to create lock file")
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()
		return errors.Wrap(err, errors.ErrInternal, "failed to lock newly created lock file")
	}

	if err = l.writePid(); err != nil {
		_ = l.Release()
		return err
	}

	l.acquired = true
	return nil
}

// tryAcquireExistingLock takes over a lock file that already exists.
func (l *Locker) tryAcquireExistingLock() error {
	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_RDWR, 0o666)
	if err != nil {
		if os.IsNotExist(err) {
			// The holder released between our attempts.
			return l.tryCreateLock()
		}
		return errors.Wrap(err, errors.ErrInternal, "failed to open existing lock file")
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()

		// Older unices report EAGAIN as EWOULDBLOCK; treat both as "held".
		if err == syscall.EWOULDBLOCK || err == syscall.EAGAIN {
			return l.handleBlockedLock()
		}
		return errors.Wrap(err, errors.ErrInternal, "failed to acquire lock")
	}

	// Nobody held the flock, so the previous owner died without cleanup.
	if err = l.resetAndWritePid(); err != nil {
		_ = l.Release()
		return err
	}

	l.acquired = true
	return nil
}

// handleBlockedLock decides whether the flock holder is alive.
func (l *Locker) handleBlockedLock() error {
	otherPid, pidErr := l.readLockFilePid()
	if pidErr != nil {
		return errors.NewConcurrencyError(l.lockFile, 0)
	}

	if isProcessRunning(otherPid) {
		return errors.NewConcurrencyError(l.lockFile, otherPid)
	}

	return l.reclaimStaleLock(otherPid)
}

// reclaimStaleLock removes a dead holder's lock file and retries.
func (l *Locker) reclaimStaleLock(otherPid int) error {
	logger := logging.GetLogger("lock")
	logger.Warn().
		Int("stale_pid", otherPid).
		Str("lock_file", l.lockFile).
		Msg("Reclaiming stale lock from dead process")

	if err := os.Remove(l.lockFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrInternal, "failed to remove stale lock file")
	}

	err := l.tryCreateLock()
	if os.IsExist(err) {
		// Someone else grabbed it between the remove and the create.
		otherPid, pidErr := l.readLockFilePid()
		if pidErr != nil {
			otherPid = 0
		}
		return errors.NewConcurrencyError(l.lockFile, otherPid)
	}
	return err
}

func (l *Locker) acquireFlock() error {
	return syscall.Flock(int(l.lockFd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func (l *Locker) resetAndWritePid() error {
	if err := l.lockFd.Truncate(0); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to truncate lock file")
	}
	return l.writePid()
}

func (l *Locker) writePid() error {
	if _, err := l.lockFd.WriteAt([]byte(strconv.Itoa(l.pid)), 0); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to write PID to lock file")
	}
	return nil
}

func (l *Locker) closeFileDescriptor() {
	if l.lockFd != nil {
		_ = l.lockFd.Close()
		l.lockFd = nil
	}
}

func (l *Locker) readLockFilePid() (int, error) {
	data, err := os.ReadFile(l.lockFile)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// isProcessRunning probes a PID with signal 0.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Release unlocks and removes the lock file. Safe to call when the lock
// was never acquired.
func (l *Locker) Release() error {
	if l.lockFd == nil {
		return nil
	}

	var err error
	if flockErr := syscall.Flock(int(l.lockFd.Fd()), syscall.LOCK_UN); flockErr != nil {
		err = errors.Wrap(flockErr, errors.ErrInternal, "failed to release lock")
	}

	if closeErr := l.lockFd.Close(); closeErr != nil && err == nil {
		err = errors.Wrap(closeErr, errors.ErrInternal, "failed to close lock file")
	}
	l.lockFd = nil
	l.acquired = false

	// Clean up the file regardless of earlier errors.
	if removeErr := os.Remove(l.lockFile); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = errors.Wrap(removeErr, errors.ErrInternal, "failed to remove lock file")
	}

	return err
}
