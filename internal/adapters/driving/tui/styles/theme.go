// Package styles provides the colour palette shared by the dashboard and the
// plain CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

// Palette names the colours by what they signal rather than by hue.
type Palette struct {
	Accent   lipgloss.Color // titles and the selected ledger row
	Activity lipgloss.Color // spinner while a sync runs
	Text     lipgloss.Color
	Subtle   lipgloss.Color // hints, timestamps, empty states
	Good     lipgloss.Color // completed runs, successful windows
	Degraded lipgloss.Color // partial runs, skipped windows, refresh due
	Bad      lipgloss.Color // failed runs, expired tokens
	Frame    lipgloss.Color // table and panel borders
	BarFill  lipgloss.Color // status bar background
}

// DefaultPalette returns the palette used when nothing else is configured.
func DefaultPalette() *Palette {
	return &Palette{
		Accent:   lipgloss.Color("#7C3AED"),
		Activity: lipgloss.Color("#06B6D4"),
		Text:     lipgloss.Color("#CDD6F4"),
		Subtle:   lipgloss.Color("#6C7086"),
		Good:     lipgloss.Color("#A6E3A1"),
		Degraded: lipgloss.Color("#F9E2AF"),
		Bad:      lipgloss.Color("#F38BA8"),
		Frame:    lipgloss.Color("#45475A"),
		BarFill:  lipgloss.Color("#181825"),
	}
}

// Styles are the lipgloss styles built from a palette.
type Styles struct {
	Title    lipgloss.Style
	Spinner  lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style

	// Panel frames the connection summary.
	Panel     lipgloss.Style
	StatusBar lipgloss.Style

	TableHead  lipgloss.Style
	TableCell  lipgloss.Style
	TableFrame lipgloss.Style
}

// NewStyles builds styles from p, falling back to the default palette.
func NewStyles(p *Palette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Styles{
		Title:    fg(p.Accent).Bold(true),
		Spinner:  fg(p.Activity),
		Normal:   fg(p.Text),
		Muted:    fg(p.Subtle),
		Selected: fg(p.Text).Background(p.Accent).Bold(true),
		Success:  fg(p.Good),
		Warning:  fg(p.Degraded),
		Error:    fg(p.Bad),
		Help:     fg(p.Subtle).Italic(true),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 1),
		StatusBar: fg(p.Subtle).Background(p.BarFill).Padding(0, 1),

		TableHead:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		TableCell:  lipgloss.NewStyle().Padding(0, 1),
		TableFrame: fg(p.Frame),
	}
}

// DefaultStyles returns styles built from the default palette.
func DefaultStyles() *Styles {
	return NewStyles(nil)
}

// RunState picks the style for a run state.
func (s *Styles) RunState(state domain.RunState) lipgloss.Style {
	switch state {
	case domain.RunCompleted:
		return s.Success
	case domain.RunPartiallyFailed:
		return s.Warning
	case domain.RunFailed:
		return s.Error
	default:
		return s.Muted
	}
}

// RecordStatus picks the style for a ledger record status.
func (s *Styles) RecordStatus(status domain.RecordStatus) lipgloss.Style {
	switch status {
	case domain.StatusSuccess:
		return s.Success
	case domain.StatusPartial, domain.StatusSkipped:
		return s.Warning
	case domain.StatusFailed:
		return s.Error
	default:
		return s.Muted
	}
}

// FailureStreak picks the style for a scheduled task's consecutive failure
// count. A streak of alertAt or more is shown as an error.
func (s *Styles) FailureStreak(failures, alertAt int) lipgloss.Style {
	switch {
	case failures <= 0:
		return s.Muted
	case failures < alertAt:
		return s.Warning
	default:
		return s.Error
	}
}
