package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"

	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tdsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/ports/driving"
)

// pollInterval is how often the dashboard samples progress of its own run.
var pollInterval = 500 * time.Millisecond

// recentRuns bounds the ledger table.
const recentRuns = 15

// App is the dashboard following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports   *Ports
	ctx     context.Context
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	bar     *status.Bar
	help    help.Model
	spinner spinner.Model

	connection *domain.ConnectionStatus
	runs       []domain.SyncRunRecord
	cursor     int

	// runID is the run this dashboard started. Empty when idle.
	runID      string
	cancelRun  context.CancelFunc
	progress   *driving.SyncStatus
	lastReport *domain.RunReport

	showHelp bool
	err      error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a dashboard with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Spinner

	h := help.New()
	h.ShowAll = true

	return &App{
		ports:   ports,
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		bar:     status.NewBar(s, km),
		help:    h,
		spinner: sp,
	}, nil
}

// WithContext sets the context runs are started under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("tdsync"),
		a.loadConnection(),
		a.loadRuns(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ConnectionLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.connection = msg.Status
		return a, nil

	case messages.RunsLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.runs = msg.Records
		if a.cursor >= len(a.runs) {
			a.cursor = max(len(a.runs)-1, 0)
		}
		return a, nil

	case messages.SyncPoll:
		if msg.RunID == "" || msg.RunID != a.runID {
			return a, nil
		}
		return a, a.fetchProgress(msg.RunID)

	case messages.SyncProgress:
		if a.runID == "" || msg.Status == nil || msg.Status.RunID != a.runID {
			return a, nil
		}
		a.progress = msg.Status
		a.bar.SetProgress(*msg.Status)
		return a, a.pollAfter(a.runID)

	case messages.SyncFinished:
		return a, a.finishRun(msg)

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		a.stopRun()
		return a, tea.Quit

	case spinner.TickMsg:
		if a.runID == "" {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		a.stopRun()
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Help):
		a.showHelp = !a.showHelp
		return a, nil

	case a.showHelp && msg.Type == tea.KeyEsc:
		a.showHelp = false
		return a, nil

	case keymap.Matches(k, a.keymap.Sync):
		return a, a.startRun(false)

	case keymap.Matches(k, a.keymap.Resume):
		return a, a.startRun(true)

	case keymap.Matches(k, a.keymap.Refresh):
		return a, tea.Batch(a.loadConnection(), a.loadRuns())

	case keymap.Matches(k, a.keymap.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case keymap.Matches(k, a.keymap.Down):
		if a.cursor < len(a.runs)-1 {
			a.cursor++
		}
		return a, nil
	}
	return a, nil
}

// startRun launches a sync of every entity type. Only one run at a time.
func (a *App) startRun(resume bool) tea.Cmd {
	if a.runID != "" {
		return nil
	}

	ctx, cancel := context.WithCancel(a.ctx)
	req := domain.SyncRequest{RunID: uuid.NewString(), Resume: resume}
	a.runID = req.RunID
	a.cancelRun = cancel
	a.progress = nil
	a.err = nil
	a.bar.SetState(status.StateSyncing)

	orch := a.ports.Sync
	run := func() tea.Msg {
		report, err := orch.TriggerSync(ctx, req)
		return messages.SyncFinished{Report: report, Err: err}
	}
	return tea.Batch(run, a.pollAfter(req.RunID), a.spinner.Tick)
}

func (a *App) finishRun(msg messages.SyncFinished) tea.Cmd {
	a.stopRun()
	a.progress = nil

	if msg.Err != nil {
		a.setError(msg.Err)
		return a.loadRuns()
	}

	a.lastReport = msg.Report
	a.bar.SetState(status.StateIdle)
	if msg.Report != nil {
		a.bar.SetMessage("Last run: " + runSummary(msg.Report))
	}
	return tea.Batch(a.loadConnection(), a.loadRuns())
}

func (a *App) stopRun() {
	if a.cancelRun != nil {
		a.cancelRun()
		a.cancelRun = nil
	}
	a.runID = ""
}

func (a *App) setError(err error) {
	a.err = err
	a.bar.SetState(status.StateError)
	a.bar.SetMessage(err.Error())
}

func (a *App) pollAfter(runID string) tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return messages.SyncPoll{RunID: runID}
	})
}

func (a *App) fetchProgress(runID string) tea.Cmd {
	orch, ctx := a.ports.Sync, a.ctx
	return func() tea.Msg {
		st, err := orch.Status(ctx, runID)
		if err != nil {
			// The run finished between polls.
			return nil
		}
		return messages.SyncProgress{Status: st}
	}
}

func (a *App) loadConnection() tea.Cmd {
	conn, ctx := a.ports.Connection, a.ctx
	return func() tea.Msg {
		st, err := conn.ConnectionStatus(ctx)
		return messages.ConnectionLoaded{Status: st, Err: err}
	}
}

func (a *App) loadRuns() tea.Cmd {
	ledger, ctx := a.ports.Ledger, a.ctx
	if ledger == nil {
		return nil
	}
	return func() tea.Msg {
		records, err := ledger.ListRuns(ctx, recentRuns)
		return messages.RunsLoaded{Records: records, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("tdsync"))
	b.WriteString("\n\n")

	if a.showHelp {
		b.WriteString(a.help.View(a.keymap))
		b.WriteString("\n\n")
		b.WriteString(a.styles.Help.Render("[?] close help"))
		b.WriteString("\n")
		b.WriteString(a.bar.View())
		return b.String()
	}

	b.WriteString(a.styles.Panel.Render(a.viewConnection()))
	b.WriteString("\n")
	b.WriteString(a.viewRun())
	b.WriteString("\n\n")
	b.WriteString(a.viewLedger())
	b.WriteString("\n")
	b.WriteString(a.bar.View())
	return b.String()
}

func (a *App) viewConnection() string {
	st := a.connection
	var line string
	switch {
	case st == nil:
		line = a.styles.Muted.Render("Loading connection...")
	case !st.Connected && st.ExpiresAt.IsZero():
		line = a.styles.Error.Render("Not connected") +
			a.styles.Muted.Render("  run 'tdsync connect' to log in")
	case !st.Connected:
		line = a.styles.Error.Render("Token expired " + formatTime(st.ExpiresAt))
	case st.NeedsRefresh:
		line = a.styles.Warning.Render("Connected, refresh due") +
			a.styles.Muted.Render("  expires "+formatTime(st.ExpiresAt))
	default:
		line = a.styles.Success.Render("Connected") +
			a.styles.Muted.Render("  expires "+formatTime(st.ExpiresAt))
	}
	if st != nil && st.LastRefreshError != "" {
		line += "\n" + a.styles.Error.Render("Last refresh error: "+st.LastRefreshError)
	}
	return line
}

func (a *App) viewRun() string {
	if a.runID != "" {
		line := a.spinner.View() + " Syncing"
		if p := a.progress; p != nil {
			if p.CurrentEntity != "" {
				line += " " + string(p.CurrentEntity)
			}
			line += fmt.Sprintf("... %d records", p.RecordsProcessed)
			if p.ErrorCount > 0 {
				line += a.styles.Warning.Render(fmt.Sprintf(", %d errors", p.ErrorCount))
			}
		} else {
			line += "..."
		}
		return line
	}
	if r := a.lastReport; r != nil {
		line := a.styles.RunState(r.State).Render(runSummary(r))
		if r.ErrorSummary != "" {
			line += "\n" + a.styles.Error.Render(r.ErrorSummary)
		}
		return line
	}
	return a.styles.Muted.Render("No run started from this session.")
}

func (a *App) viewLedger() string {
	if a.ports.Ledger == nil {
		return ""
	}
	if len(a.runs) == 0 {
		return a.styles.Muted.Render("No sync runs recorded.")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(a.styles.TableFrame).
		Headers("RUN", "WINDOW", "STARTED", "STATUS", "RECORDS")

	for i := range a.runs {
		r := &a.runs[i]
		t.Row(
			shortID(r.RunID),
			r.Window().String(),
			formatTime(r.StartedAt),
			string(r.Status),
			fmt.Sprintf("%d", r.RecordsProcessed),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return a.styles.TableHead
		}
		if row == a.cursor {
			return a.styles.Selected.Padding(0, 1)
		}
		if col == 3 {
			return a.styles.RecordStatus(a.runs[row].Status).Padding(0, 1)
		}
		return a.styles.TableCell
	})

	out := t.Render()
	if sel := a.selectedRun(); sel != nil && sel.ErrorSummary != "" {
		out += "\n" + a.styles.Error.Render(sel.ErrorSummary)
	}
	return out
}

func (a *App) selectedRun() *domain.SyncRunRecord {
	if a.cursor < 0 || a.cursor >= len(a.runs) {
		return nil
	}
	return &a.runs[a.cursor]
}

// Run starts the dashboard in the alternate screen.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Syncing reports whether a run started from the dashboard is in flight.
func (a *App) Syncing() bool {
	return a.runID != ""
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.bar.SetWidth(width)
	a.help.Width = width
}

func runSummary(r *domain.RunReport) string {
	return fmt.Sprintf("%s %s, %d records", shortID(r.RunID), r.State, r.RecordsProcessed)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
