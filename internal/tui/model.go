package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-reqtime-dash/internal/stats"
	"github.com/randomizedcoder/go-reqtime-dash/internal/timeseries"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg drives the poll loop.
type TickMsg time.Time

// QuitMsg asks the TUI to exit through the normal quit path.
type QuitMsg struct{}

// IngestFailedMsg reports that the ingestion service stopped with a fatal error.
type IngestFailedMsg struct {
	Err error
}

// =============================================================================
// Model
// =============================================================================

// RateSource provides the ingest rate for the status line.
type RateSource interface {
	Stats() timeseries.RateStats
}

// Config holds TUI configuration.
type Config struct {
	State        *stats.State
	Rates        RateSource    // optional
	PollInterval time.Duration // default 10ms
	OnQuit       func()        // called once when the user quits
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	state        *stats.State
	rates        RateSource
	pollInterval time.Duration
	onQuit       func()

	width  int
	height int

	frame     string
	frames    int
	ingestErr error
	quitting  bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	return Model{
		state:        cfg.State,
		rates:        cfg.Rates,
		pollInterval: poll,
		onQuit:       cfg.OnQuit,
		width:        80,
		height:       24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init starts the poll loop. The alt screen is requested by the program
// options, not here.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.pollInterval)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "ctrl+c":
			return m.quit()
		}

	case tea.WindowSizeMsg:
		// Only record the size; the next tick redraws.
		m.width = msg.Width
		m.height = msg.Height
		m.state.MarkLayoutDirty()
		return m, nil

	case TickMsg:
		if m.state.ShutdownRequested() {
			m.quitting = true
			return m, tea.Quit
		}
		m.refresh()
		return m, tickCmd(m.pollInterval)

	case QuitMsg:
		return m.quit()

	case IngestFailedMsg:
		m.ingestErr = msg.Err
		m.state.RequestShutdown()
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.frame
}

// refresh redraws the cached frame when records arrived or the terminal
// changed size. Both flags are cleared before the snapshot so a record
// applied during rendering marks the next frame dirty.
func (m *Model) refresh() {
	render, layout := m.state.ConsumeDirty()
	if !render && !layout && m.frame != "" {
		return
	}

	snap := m.state.Snapshot(VisibleRows(m.height))
	var rates timeseries.RateStats
	if m.rates != nil {
		rates = m.rates.Stats()
	}
	m.frame = renderFrame(snap, rates, m.width, m.height)
	m.frames++
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if !m.quitting && m.onQuit != nil {
		m.onQuit()
	}
	m.state.RequestShutdown()
	m.quitting = true
	return m, tea.Quit
}

// =============================================================================
// Commands
// =============================================================================

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Err returns the fatal ingest error that ended the TUI, if any.
func (m Model) Err() error {
	return m.ingestErr
}

// Size returns the last known terminal size.
func (m Model) Size() (width, height int) {
	return m.width, m.height
}

// Frames returns how many frames have been rendered.
func (m Model) Frames() int {
	return m.frames
}

// =============================================================================
// Helpers for external use
// =============================================================================

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// SendIngestFailed reports a fatal ingest error to the TUI.
func SendIngestFailed(p *tea.Program, err error) {
	if p != nil {
		p.Send(IngestFailedMsg{Err: err})
	}
}
