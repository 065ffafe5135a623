// Package paths provides centralized path handling for histofy.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/histofy/histofy/pkg/errors"
)

// Environment variable names
const (
	// EnvRepoRoot overrides repository discovery
	EnvRepoRoot = "HISTOFY_REPO"

	// EnvConfigDir overrides the XDG config directory for histofy
	EnvConfigDir = "HISTOFY_CONFIG_DIR"

	// EnvDataDir overrides the XDG data directory for histofy
	EnvDataDir = "HISTOFY_DATA_DIR"

	// EnvStateDir overrides the XDG state directory for histofy
	EnvStateDir = "HISTOFY_STATE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Default directories and files.
// These constants define histofy's internal state layout and are NOT
// user-configurable. User-configurable paths belong in pkg/config.
const (
	// HistofyDirName is the directory name for histofy-specific files
	HistofyDirName = "histofy"

	// RepoConfigFile is the name of the repository-local configuration file
	RepoConfigFile = ".histofy.toml"

	// ConfigFileName is the name of the user configuration file
	ConfigFileName = "config.toml"

	// ReposDir is the subdirectory holding per-repository state
	ReposDir = "repos"

	// HistoryFileName is the name of the operation ledger file
	HistoryFileName = "operations.json"

	// LockFileName is the name of the per-repository lock file
	LockFileName = "repo.lock"

	// LogFileName is the name of the log file
	LogFileName = "histofy.log"
)

// Paths provides centralized path management for histofy
type Paths interface {
	RepoRoot() string
	UsedFallback() bool
	ConfigDir() string
	DataDir() string
	StateDir() string
	ConfigFilePath() string
	RepoConfigPath() string
	RepoStateDir() string
	HistoryPath() string
	LockPath() string
	LogFilePath() string
	NormalizePath(path string) (string, error)
}

type paths struct {
	// repoRoot is the root of the repository being operated on
	repoRoot string

	// xdgConfig is the XDG config directory
	xdgConfig string

	// xdgData is the XDG data directory
	xdgData string

	// xdgState is the XDG state directory
	xdgState string

	// usedFallback indicates if we fell back to cwd (for warning display)
	usedFallback bool
}

// New creates a new Paths instance rooted at the given repository.
// If repoRoot is empty, it is determined from HISTOFY_REPO or by walking
// up from the working directory looking for a .git entry.
func New(repoRoot string) (Paths, error) {
	p := &paths{}

	if repoRoot == "" {
		root, usedFallback, err := findRepoRoot()
		if err != nil {
			return nil, err
		}
		p.repoRoot = root
		p.usedFallback = usedFallback
	} else {
		p.repoRoot = expandHome(repoRoot)
		p.usedFallback = false
	}

	// Ensure repo root is absolute
	absRoot, err := filepath.Abs(p.repoRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to get absolute path for repository root")
	}
	p.repoRoot = absRoot

	p.setupXDGDirs()

	return p, nil
}

// setupXDGDirs initializes XDG directories, respecting environment overrides
func (p *paths) setupXDGDirs() {
	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		p.xdgConfig = expandHome(configDir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, HistofyDirName)
	}

	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		p.xdgData = expandHome(dataDir)
	} else {
		p.xdgData = filepath.Join(xdg.DataHome, HistofyDirName)
	}

	// State directory - xdg exposes StateHome but the env override wins
	if stateDir := os.Getenv(EnvStateDir); stateDir != "" {
		p.xdgState = expandHome(stateDir)
	} else if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		p.xdgState = filepath.Join(stateHome, HistofyDirName)
	} else {
		homeDir, _ := os.UserHomeDir()
		p.xdgState = filepath.Join(homeDir, ".local", "state", HistofyDirName)
	}
}

// findRepoRoot determines the repository root using the following priority:
// 1. HISTOFY_REPO environment variable (if set)
// 2. Nearest ancestor directory containing a .git entry
// 3. Current working directory (fallback)
//
// The bool return reports whether the working directory was used as fallback.
func findRepoRoot() (string, bool, error) {
	if root := os.Getenv(EnvRepoRoot); root != "" {
		return expandHome(root), false, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false, errors.Wrapf(err, errors.ErrInternal, "failed to get current directory")
	}

	if gitRoot := findGitRoot(cwd); gitRoot != "" {
		return gitRoot, false, nil
	}

	return cwd, true, nil
}

// findGitRoot walks up from dir looking for a .git entry. A .git file
// (worktree pointer) counts the same as a .git directory.
func findGitRoot(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandHome expands ~ to the home directory
func expandHome(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to HOME env var
			homeDir = os.Getenv(EnvHome)
			if homeDir == "" {
				// Can't expand, return as-is
				return path
			}
		}

		if len(path) == 1 {
			return homeDir
		}

		// Handle both ~/ and ~
		if path[1] == '/' || path[1] == filepath.Separator {
			return filepath.Join(homeDir, path[2:])
		}

		// ~something (not the user's home)
		return path
	}

	return path
}

// RepoRoot returns the root of the repository being operated on
func (p *paths) RepoRoot() string {
	return p.repoRoot
}

// UsedFallback returns true if the current working directory was used as fallback
func (p *paths) UsedFallback() bool {
	return p.usedFallback
}

// ConfigDir returns the XDG config directory for histofy
func (p *paths) ConfigDir() string {
	return p.xdgConfig
}

// DataDir returns the XDG data directory for histofy
func (p *paths) DataDir() string {
	return p.xdgData
}

// StateDir returns the XDG state directory for histofy
func (p *paths) StateDir() string {
	return p.xdgState
}

// ConfigFilePath returns the path to the user configuration file
func (p *paths) ConfigFilePath() string {
	return filepath.Join(p.xdgConfig, ConfigFileName)
}

// RepoConfigPath returns the path to the repository-local configuration file
func (p *paths) RepoConfigPath() string {
	return filepath.Join(p.repoRoot, RepoConfigFile)
}

// RepoStateDir returns the state directory for the current repository.
// Repositories are keyed by a hash of their absolute path so that state
// survives renames of the directory the tool is invoked from.
func (p *paths) RepoStateDir() string {
	return filepath.Join(p.xdgState, ReposDir, RepoKey(p.repoRoot))
}

// HistoryPath returns the path to the operation ledger for the current repository
func (p *paths) HistoryPath() string {
	return filepath.Join(p.RepoStateDir(), HistoryFileName)
}

// LockPath returns the path to the lock file for the current repository
func (p *paths) LockPath() string {
	return filepath.Join(p.RepoStateDir(), LockFileName)
}

// LogFilePath returns the path to the histofy log file
func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}

// NormalizePath normalizes a path by expanding home, making it absolute,
// and cleaning it
func (p *paths) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrValidation, "empty path")
	}

	expanded := expandHome(path)

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal, "failed to get absolute path")
	}

	return filepath.Clean(abs), nil
}

// RepoKey returns the stable state key for a repository path
func RepoKey(repoPath string) string {
	abs, err := filepath.Abs(expandHome(repoPath))
	if err != nil {
		abs = repoPath
	}
	abs = filepath.Clean(abs)
	// Trailing separators would change the hash of the same directory
	if len(abs) > 1 {
		abs = strings.TrimRight(abs, string(filepath.Separator))
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(abs)))[:16]
}

// ExpandHome is a utility function that expands ~ in paths
func ExpandHome(path string) string {
	return expandHome(path)
}

// GetHomeDirectory returns the user's home directory with proper error handling
func GetHomeDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Try the HOME environment variable as a fallback
		if home := os.Getenv(EnvHome); home != "" {
			return home, nil
		}
		return "", errors.Wrapf(err, errors.ErrInternal, "failed to get home directory")
	}
	return homeDir, nil
}
