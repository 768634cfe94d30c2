package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// theme is shared with the dashboard so both surfaces use one palette.
var theme = styles.DefaultStyles()

var (
	titleStyle   = theme.Title
	mutedStyle   = theme.Muted
	successStyle = theme.Success
	warningStyle = theme.Warning
	errorStyle   = theme.Error
	headerStyle  = theme.TableHead
	cellStyle    = theme.TableCell
	borderStyle  = theme.TableFrame
)

// stateStyle picks the colour for a run state.
func stateStyle(state domain.RunState) lipgloss.Style {
	return theme.RunState(state)
}

// recordStyle picks the colour for a ledger record status.
func recordStyle(status domain.RecordStatus) lipgloss.Style {
	return theme.RecordStatus(status)
}

// failureStyle picks the colour for a task's consecutive failure count.
func failureStyle(failures int) lipgloss.Style {
	return theme.FailureStreak(failures, domain.FailureAlertThreshold)
}
