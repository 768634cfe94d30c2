// Package status provides the dashboard status bar.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// State represents what the dashboard is doing.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Bar is the bottom line of the dashboard: run progress or the last
// outcome on the left, key hints on the right.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	progress driving.SyncStatus
	width    int
}

// NewBar creates a status bar. Nil arguments select the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateIdle, width: 80}
}

// View renders the bar at its configured width. Hints are dropped before
// the left side is truncated.
func (s *Bar) View() string {
	left := s.summary()
	right := s.hints()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right, gap = "", max(inner-lipgloss.Width(left), 1)
	}
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *Bar) summary() string {
	switch s.state {
	case StateSyncing:
		p := s.progress
		text := "Syncing"
		if p.CurrentEntity != "" {
			text += " " + string(p.CurrentEntity)
		}
		text += fmt.Sprintf("... %d records", p.RecordsProcessed)
		line := s.styles.Normal.Render(text)
		if p.ErrorCount > 0 {
			line += s.styles.Warning.Render(fmt.Sprintf(" (%d errors)", p.ErrorCount))
		}
		return line
	case StateError:
		if s.message == "" {
			return s.styles.Error.Render("Error")
		}
		return s.styles.Error.Render("Error: " + s.message)
	default:
		if s.message == "" {
			return s.styles.Muted.Render("Ready")
		}
		return s.styles.Normal.Render(s.message)
	}
}

func (s *Bar) hints() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateSyncing {
		bindings = s.keymap.SyncingHelp()
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return s.styles.Muted.Render(strings.Join(parts, " | "))
}

// SetState sets the current state. Entering StateSyncing clears the
// previous run's progress.
func (s *Bar) SetState(state State) {
	if state == StateSyncing && s.state != StateSyncing {
		s.progress = driving.SyncStatus{}
	}
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State { return s.state }

// SetMessage sets the text shown when idle or in error.
func (s *Bar) SetMessage(message string) { s.message = message }

// Message returns the current message.
func (s *Bar) Message() string { return s.message }

// SetProgress updates the in-flight run counters.
func (s *Bar) SetProgress(p driving.SyncStatus) { s.progress = p }

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) { s.width = width }
