package types

import "time"

// OperationType identifies the kind of work an operation performs.
// Mutating types take the repository lock and capture a snapshot before
// touching anything; read-only types skip both.
type OperationType string

const (
	OperationCommit  OperationType = "commit"
	OperationMigrate OperationType = "migrate"
	OperationUndo    OperationType = "undo"
	OperationBatch   OperationType = "batch"
	OperationConfig  OperationType = "config"
	OperationStatus  OperationType = "status"
)

// Mutating reports whether operations of this type rewrite repository state.
func (t OperationType) Mutating() bool {
	switch t {
	case OperationCommit, OperationMigrate, OperationUndo, OperationBatch:
		return true
	default:
		return false
	}
}

// Status tracks an operation through its lifecycle. An operation
// reaches undone at most once; it never leaves that state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusUndone    Status = "undone"
)

// Operation is the durable record of one command execution. Created by the
// operation manager before any repository write, appended to the history
// ledger afterwards, and never deleted - undo marks it undone instead.
type Operation struct {
	ID          string           `json:"id" yaml:"id"`
	Type        OperationType    `json:"type" yaml:"type"`
	Command     string           `json:"command" yaml:"command"`
	Args        []string         `json:"args,omitempty" yaml:"args,omitempty"`
	Description string           `json:"description" yaml:"description"`
	Status      Status           `json:"status" yaml:"status"`
	Undoable    bool             `json:"undoable" yaml:"undoable"`
	StartedAt   time.Time        `json:"startedAt" yaml:"startedAt"`
	CompletedAt time.Time        `json:"completedAt,omitzero" yaml:"completedAt,omitempty"`
	Snapshot    *Snapshot        `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Result      *OperationResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Snapshot captures repository state immediately before a mutating
// operation. Exactly one snapshot belongs to each mutating operation and
// restore paths read from it, never from live state.
type Snapshot struct {
	RepoPath     string    `json:"repoPath" yaml:"repoPath"`
	HeadCommit   string    `json:"headCommit" yaml:"headCommit"`
	Branch       string    `json:"branch" yaml:"branch"`
	BackupBranch string    `json:"backupBranch,omitempty" yaml:"backupBranch,omitempty"`
	StashRef     string    `json:"stashRef,omitempty" yaml:"stashRef,omitempty"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
}

// OperationResult records what a completed operation produced. ResultHead
// is the repository HEAD after the operation; undo safety compares it
// against the current HEAD to detect newer history.
type OperationResult struct {
	MigratedCount int      `json:"migratedCount,omitempty" yaml:"migratedCount,omitempty"`
	CommitHashes  []string `json:"commitHashes,omitempty" yaml:"commitHashes,omitempty"`
	BackupBranch  string   `json:"backupBranch,omitempty" yaml:"backupBranch,omitempty"`
	ResultHead    string   `json:"resultHead,omitempty" yaml:"resultHead,omitempty"`
	Pushed        bool     `json:"pushed,omitempty" yaml:"pushed,omitempty"`
}

// UndoSafetyCheck is the verdict on whether an operation can be undone
// right now. It is computed from live repository state at undo time and
// never cached.
type UndoSafetyCheck struct {
	Safe   bool   `json:"safe" yaml:"safe"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}
