// Package dryrun simulates operations without executing them. Commands
// build the same plans they would execute, feed them through the builders
// here, and render or export the result. Nothing in this package touches
// a repository.
package dryrun

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/types"
)

// RiskDistribution counts simulated operations per risk grade.
type RiskDistribution struct {
	Low    int `json:"low" yaml:"low"`
	Medium int `json:"medium" yaml:"medium"`
	High   int `json:"high" yaml:"high"`
}

// Summary aggregates everything a preview needs to answer "what would
// happen, and how risky is it".
type Summary struct {
	TotalOperations        int
	EstimatedTime          time.Duration
	AffectedFilesCount     int
	GitOperationsCount     int
	RiskDistribution       RiskDistribution
	ReversibleOperations   int
	IrreversibleOperations int
	WarningsCount          int
}

// Manager accumulates simulated operations and warnings for one command
// invocation.
type Manager struct {
	mu         sync.Mutex
	operations []types.DryRunOperation
	warnings   []string
	nextID     int
}

// NewManager returns an empty accumulator.
func NewManager() *Manager {
	return &Manager{}
}

// AddOperation records a simulated operation, assigning a sequential ID
// when the builder left it empty. Sequential IDs keep exports of the same
// plan byte-identical.
func (m *Manager) AddOperation(op types.DryRunOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	if op.ID == "" {
		op.ID = fmt.Sprintf("dry-%03d", m.nextID)
	}
	m.operations = append(m.operations, op)
}

// AddOperations records a builder's output in order.
func (m *Manager) AddOperations(ops []types.DryRunOperation) {
	for _, op := range ops {
		m.AddOperation(op)
	}
}

// AddWarning records a preview warning.
func (m *Manager) AddWarning(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

// Operations returns a copy of the recorded operations.
func (m *Manager) Operations() []types.DryRunOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.DryRunOperation, len(m.operations))
	copy(out, m.operations)
	return out
}

// Warnings returns a copy of the recorded warnings.
func (m *Manager) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.warnings))
	copy(out, m.warnings)
	return out
}

// GenerateSummary projects the accumulated operations into totals. Pure:
// calling it twice gives equal results.
func (m *Manager) GenerateSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		TotalOperations: len(m.operations),
		WarningsCount:   len(m.warnings),
	}
	files := make(map[string]struct{})
	for _, op := range m.operations {
		s.EstimatedTime += op.EstimatedDuration
		if op.GitCommand != "" {
			s.GitOperationsCount++
		}
		if op.Reversible {
			s.ReversibleOperations++
		} else {
			s.IrreversibleOperations++
		}
		switch op.Risk {
		case types.RiskLow:
			s.RiskDistribution.Low++
		case types.RiskMedium:
			s.RiskDistribution.Medium++
		case types.RiskHigh:
			s.RiskDistribution.High++
		}
		for _, f := range op.AffectedFiles {
			files[f] = struct{}{}
		}
	}
	s.AffectedFilesCount = len(files)
	return s
}

// RenderPreview writes a plain-text preview and returns the summary it
// rendered.
func (m *Manager) RenderPreview(w io.Writer) (Summary, error) {
	summary := m.GenerateSummary()
	ops := m.Operations()
	warnings := m.Warnings()

	if _, err := fmt.Fprintln(w, "Dry run: no changes will be made."); err != nil {
		return summary, err
	}
	fmt.Fprintln(w)
	for i, op := range ops {
		marker := "reversible"
		if !op.Reversible {
			marker = "IRREVERSIBLE"
		}
		fmt.Fprintf(w, "%3d. [%-6s] %s (%s)\n", i+1, op.Risk, op.Description, marker)
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
	fmt.Fprintln(w)
	_, err := fmt.Fprintf(w, "%d operation(s), estimated %s, %d git command(s), %d reversible, %d irreversible\n",
		summary.TotalOperations, summary.EstimatedTime, summary.GitOperationsCount,
		summary.ReversibleOperations, summary.IrreversibleOperations)
	return summary, err
}

// exportDocument is the stable wire schema for preview exports.
type exportDocument struct {
	TotalOperations        int                     `json:"totalOperations" yaml:"totalOperations"`
	EstimatedTime          string                  `json:"estimatedTime" yaml:"estimatedTime"`
	AffectedFilesCount     int                     `json:"affectedFilesCount" yaml:"affectedFilesCount"`
	GitOperationsCount     int                     `json:"gitOperationsCount" yaml:"gitOperationsCount"`
	RiskDistribution       RiskDistribution        `json:"riskDistribution" yaml:"riskDistribution"`
	ReversibleOperations   int                     `json:"reversibleOperations" yaml:"reversibleOperations"`
	IrreversibleOperations int                     `json:"irreversibleOperations" yaml:"irreversibleOperations"`
	WarningsCount          int                     `json:"warningsCount" yaml:"warningsCount"`
	Operations             []types.DryRunOperation `json:"operations" yaml:"operations"`
	Warnings               []string                `json:"warnings" yaml:"warnings"`
	AffectedFiles          []string                `json:"affectedFiles" yaml:"affectedFiles"`
	GitOperations          []string                `json:"gitOperations" yaml:"gitOperations"`
}

// Export writes the preview as json or yaml.
func (m *Manager) Export(w io.Writer, format string) error {
	summary := m.GenerateSummary()
	ops := m.Operations()

	fileSet := make(map[string]struct{})
	var gitOps []string
	for _, op := range ops {
		for _, f := range op.AffectedFiles {
			fileSet[f] = struct{}{}
		}
		if op.GitCommand != "" {
			cmd := "git " + op.GitCommand
			for _, arg := range op.GitArgs {
				cmd += " " + arg
			}
			gitOps = append(gitOps, cmd)
		}
	}
	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)

	doc := exportDocument{
		TotalOperations:        summary.TotalOperations,
		EstimatedTime:          summary.EstimatedTime.String(),
		AffectedFilesCount:     summary.AffectedFilesCount,
		GitOperationsCount:     summary.GitOperationsCount,
		RiskDistribution:       summary.RiskDistribution,
		ReversibleOperations:   summary.ReversibleOperations,
		IrreversibleOperations: summary.IrreversibleOperations,
		WarningsCount:          summary.WarningsCount,
		Operations:             ops,
		Warnings:               m.Warnings(),
		AffectedFiles:          files,
		GitOperations:          gitOps,
	}

	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(doc)
	default:
		return errors.NewValidationError("format", "unsupported export format %q, expected json or yaml", format)
	}
}
