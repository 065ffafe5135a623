package history

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/paths"
	"github.com/histofy/histofy/pkg/types"
)

// Store is the persistence capability behind the operation ledger.
// Implementations keep operations in append order and never delete them;
// undo only flips an operation's status.
type Store interface {
	Append(op types.Operation) error
	List() ([]types.Operation, error)
	Get(id string) (*types.Operation, error)
	MarkUndone(id string) error
	Clear() error
}

// FileStore keeps the ledger in one JSON file under the per-repository
// state directory. Writes go through a temp file and rename, so a crash
// mid-write leaves the previous ledger intact.
type FileStore struct {
	path string
}

// NewFileStore returns a store over the repository's history file.
func NewFileStore(p paths.Paths) *FileStore {
	return &FileStore{path: p.HistoryPath()}
}

// Path returns the ledger file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() ([]types.Operation, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to read operation history")
	}
	var ops []types.Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "operation history is corrupt")
	}
	return ops, nil
}

func (s *FileStore) save(ops []types.Operation) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create state directory")
	}

	data, err := json.MarshalIndent(ops, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode operation history")
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create temp history file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrInternal, "failed to write operation history")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrInternal, "failed to write operation history")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrInternal, "failed to replace operation history")
	}
	return nil
}

// Append adds an operation to the end of the ledger.
func (s *FileStore) Append(op types.Operation) error {
	ops, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(ops, op))
}

// List returns all operations in append order, oldest first.
func (s *FileStore) List() ([]types.Operation, error) {
	return s.load()
}

// Get returns the operation with the exact id.
func (s *FileStore) Get(id string) (*types.Operation, error) {
	ops, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range ops {
		if ops[i].ID == id {
			return &ops[i], nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "operation %s not found", id)
}

// MarkUndone flips the operation's status to undone.
func (s *FileStore) MarkUndone(id string) error {
	ops, err := s.load()
	if err != nil {
		return err
	}
	for i := range ops {
		if ops[i].ID == id {
			ops[i].Status = types.StatusUndone
			return s.save(ops)
		}
	}
	return errors.Newf(errors.ErrNotFound, "operation %s not found", id)
}

// Clear removes the ledger file.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrInternal, "failed to clear operation history")
	}
	return nil
}
