package types

import "time"

// RiskLevel grades how much damage a simulated operation could do if it
// went wrong.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DryRunOperation describes one step a command would perform, without
// performing it. Builders produce these from the same plans the real
// executors consume, so previews match execution step for step.
type DryRunOperation struct {
	ID                string            `json:"id" yaml:"id"`
	Type              OperationType     `json:"type" yaml:"type"`
	Description       string            `json:"description" yaml:"description"`
	Details           map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
	EstimatedDuration time.Duration     `json:"estimatedDuration" yaml:"estimatedDuration"`
	Risk              RiskLevel         `json:"risk" yaml:"risk"`
	Reversible        bool              `json:"reversible" yaml:"reversible"`
	GitCommand        string            `json:"gitCommand,omitempty" yaml:"gitCommand,omitempty"`
	GitArgs           []string          `json:"gitArgs,omitempty" yaml:"gitArgs,omitempty"`
	AffectedFiles     []string          `json:"affectedFiles,omitempty" yaml:"affectedFiles,omitempty"`
}
