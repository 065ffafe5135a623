package errors

// Detail keys read back by the typed accessors below.
const (
	detailSubcommand = "subcommand"
	detailOutput     = "output"
	detailRetryable  = "retryable"
	detailOperation  = "operation"
	detailLockFile   = "lock_file"
	detailHolderPID  = "holder_pid"
	detailReason     = "reason"
	detailField      = "field"
	detailBackup     = "backup_branch"
)

// NewValidationError reports malformed or out-of-range input for a named
// field. Raised before any repository mutation.
func NewValidationError(field, format string, args ...interface{}) *HistofyError {
	return Newf(ErrValidation, format, args...).WithDetail(detailField, field)
}

// NewGitError wraps a failed git primitive, recording which subcommand
// failed and any output it produced.
func NewGitError(subcommand, output string, err error) *HistofyError {
	e := Wrapf(err, ErrGit, "git %s failed", subcommand).
		WithDetail(detailSubcommand, subcommand)
	if output != "" {
		e = e.WithDetail(detailOutput, output)
	}
	return e
}

// NewNetworkError wraps a remote transfer failure. Retryable marks
// transient failures that a backoff loop may attempt again.
func NewNetworkError(operation string, retryable bool, err error) *HistofyError {
	return Wrapf(err, ErrNetwork, "%s failed", operation).
		WithDetail(detailOperation, operation).
		WithDetail(detailRetryable, retryable)
}

// NewConcurrencyError reports that another process holds the repository lock.
func NewConcurrencyError(lockFile string, holderPID int) *HistofyError {
	return Newf(ErrConcurrency, "another histofy operation is in progress (pid %d)", holderPID).
		WithDetail(detailLockFile, lockFile).
		WithDetail(detailHolderPID, holderPID)
}

// NewConfigurationError reports an invalid configuration value.
func NewConfigurationError(key, format string, args ...interface{}) *HistofyError {
	return Newf(ErrConfiguration, format, args...).WithDetail(detailField, key)
}

// NewCancelled builds the tagged cancellation error for an interrupted
// operation. The reason is a value, never parsed from message text.
func NewCancelled(reason CancelReason, message string) *HistofyError {
	return New(ErrCancelled, message).WithDetail(detailReason, string(reason))
}

// NewRollbackFailed reports that restoring from a backup branch failed.
// The backup branch name is preserved so the user can recover by hand.
func NewRollbackFailed(backupBranch string, err error) *HistofyError {
	return Wrapf(err, ErrRollbackFailed,
		"rollback failed, backup branch %s retained", backupBranch).
		WithDetail(detailBackup, backupBranch)
}

// GitSubcommand returns the failing git subcommand recorded on a GIT_ERROR,
// or "" when the error is not one.
func GitSubcommand(err error) string {
	if !IsErrorCode(err, ErrGit) {
		return ""
	}
	if s, ok := GetErrorDetails(err)[detailSubcommand].(string); ok {
		return s
	}
	return ""
}

// IsRetryable reports whether err is a NETWORK_ERROR marked transient.
func IsRetryable(err error) bool {
	if !IsErrorCode(err, ErrNetwork) {
		return false
	}
	r, ok := GetErrorDetails(err)[detailRetryable].(bool)
	return ok && r
}

// CancellationReason returns the reason recorded on a CANCELLED error,
// or "" when the error is not a cancellation.
func CancellationReason(err error) CancelReason {
	if !IsErrorCode(err, ErrCancelled) {
		return ""
	}
	if s, ok := GetErrorDetails(err)[detailReason].(string); ok {
		return CancelReason(s)
	}
	return ""
}

// BackupBranch returns the backup branch recorded on a ROLLBACK_FAILED
// error, or "" when none was recorded.
func BackupBranch(err error) string {
	if b, ok := GetErrorDetails(err)[detailBackup].(string); ok {
		return b
	}
	return ""
}

// String makes CancelReason printable in logs and messages.
func (r CancelReason) String() string { return string(r) }
