package style

import (
	"github.com/pterm/pterm"

	"github.com/histofy/histofy/pkg/types"
)

// StatusStyle returns the pterm style for an operation lifecycle state.
func StatusStyle(status types.Status) *pterm.Style {
	switch status {
	case types.StatusCompleted:
		return pterm.NewStyle(pterm.FgGreen)
	case types.StatusFailed:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case types.StatusUndone:
		return pterm.NewStyle(pterm.FgGray)
	case types.StatusRunning:
		return pterm.NewStyle(pterm.FgCyan)
	default:
		return pterm.NewStyle(pterm.FgYellow)
	}
}

// StatusIndicator returns the glyph for an operation lifecycle state.
func StatusIndicator(status types.Status) string {
	switch status {
	case types.StatusCompleted:
		return SuccessIndicator
	case types.StatusFailed:
		return ErrorIndicator
	case types.StatusUndone:
		return UndoneIndicator
	case types.StatusRunning:
		return ProgressIndicator
	default:
		return PendingIndicator
	}
}

// TypeStyle returns the pterm style for an operation type column.
func TypeStyle(t types.OperationType) *pterm.Style {
	switch t {
	case types.OperationMigrate:
		return pterm.NewStyle(pterm.FgMagenta, pterm.Bold)
	case types.OperationCommit:
		return pterm.NewStyle(pterm.FgBlue, pterm.Bold)
	case types.OperationBatch:
		return pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	case types.OperationUndo:
		return pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	default:
		return pterm.Info.MessageStyle
	}
}

// RiskStyle returns the pterm style for a dry-run risk level.
func RiskStyle(risk types.RiskLevel) *pterm.Style {
	switch risk {
	case types.RiskHigh:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case types.RiskMedium:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgGreen)
	}
}
