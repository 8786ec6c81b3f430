// Package tui implements the interactive terminal dashboard. It talks to the
// daemon through the same HTTP client the CLI commands use, refetches whenever
// the daemon pushes an event, and polls on a fixed interval as fallback.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrejvysny/open-webui-desktop/internal/cliclient"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

// tab represents TUI tabs
type tab int

const (
	tabStatus tab = iota
	tabRuns
	tabLogs
)

const logFetchLines = 200

// Client defines the interface for API operations
type Client interface {
	ServerInfo(ctx context.Context) (contracts.ServerInfo, error)
	RuntimeStatus(ctx context.Context) (contracts.RuntimeStatus, error)
	PackageStatus(ctx context.Context) (contracts.PackageStatus, error)
	RecentRuns(ctx context.Context, limit int) ([]contracts.RunRecord, error)
	ServerLogs(ctx context.Context, lines int) ([]string, error)
	StartServer(ctx context.Context) (contracts.ServerInfo, error)
	StopServer(ctx context.Context) (contracts.ServerInfo, error)
	RestartServer(ctx context.Context) (contracts.ServerInfo, error)
}

// EventSource is implemented by clients that can stream daemon events. The
// dashboard subscribes when available and falls back to interval polling
// alone when it is not.
type EventSource interface {
	Events(ctx context.Context) (<-chan cliclient.Event, error)
}

// model is the main Bubble Tea model
type model struct {
	client Client
	ctx    context.Context

	// UI state
	activeTab tab
	cursor    int
	width     int
	height    int

	// Data
	server     contracts.ServerInfo
	runtime    contracts.RuntimeStatus
	pkg        contracts.PackageStatus
	runs       []contracts.RunRecord
	logLines   []string
	lastUpdate time.Time
	err        error

	// Pending control action shown in the status bar until the next refresh
	pending string

	// Refresh
	refreshInterval time.Duration

	// Event stream from the daemon, nil when unavailable
	events <-chan cliclient.Event
}

// Messages

type statusMsg struct {
	server  contracts.ServerInfo
	runtime contracts.RuntimeStatus
	pkg     contracts.PackageStatus
}

type runsMsg struct {
	runs []contracts.RunRecord
}

type logsMsg struct {
	lines []string
}

type errMsg struct {
	err error
}

// refreshMsg requests an immediate refetch without touching the tick chain.
type refreshMsg struct{}

type tickMsg time.Time

// eventStreamMsg delivers the subscribed event channel.
type eventStreamMsg struct {
	ch <-chan cliclient.Event
}

// eventMsg reports one daemon event; the payload itself is not needed, any
// event means state may have changed.
type eventMsg struct{}

// eventsDoneMsg reports the stream ended. The interval tick keeps polling.
type eventsDoneMsg struct{}

// Commands

func fetchStatus(client Client, ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		info, err := client.ServerInfo(ctx)
		if err != nil {
			return errMsg{err}
		}
		rt, err := client.RuntimeStatus(ctx)
		if err != nil {
			return errMsg{err}
		}
		pkg, err := client.PackageStatus(ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg{server: info, runtime: rt, pkg: pkg}
	}
}

func fetchRuns(client Client, ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		runs, err := client.RecentRuns(ctx, 50)
		if err != nil {
			return errMsg{err}
		}
		return runsMsg{runs}
	}
}

func fetchLogs(client Client, ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		lines, err := client.ServerLogs(ctx, logFetchLines)
		if err != nil {
			return errMsg{err}
		}
		return logsMsg{lines}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func subscribeEvents(client Client, ctx context.Context) tea.Cmd {
	es, ok := client.(EventSource)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ch, err := es.Events(ctx)
		if err != nil {
			return eventsDoneMsg{}
		}
		return eventStreamMsg{ch: ch}
	}
}

// waitEvent blocks on the stream and reports the next event. Re-armed after
// every receipt.
func waitEvent(ch <-chan cliclient.Event) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return eventsDoneMsg{}
		}
		return eventMsg{}
	}
}

// NewModel creates a new TUI model
func NewModel(client Client, refreshInterval time.Duration) model {
	return model{
		client:          client,
		ctx:             context.Background(),
		activeTab:       tabStatus,
		refreshInterval: refreshInterval,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchStatus(m.client, m.ctx),
		fetchRuns(m.client, m.ctx),
		fetchLogs(m.client, m.ctx),
		tickCmd(m.refreshInterval),
		subscribeEvents(m.client, m.ctx),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.server = msg.server
		m.runtime = msg.runtime
		m.pkg = msg.pkg
		m.lastUpdate = time.Now()
		m.pending = ""
		m.err = nil
		return m, nil

	case runsMsg:
		m.runs = msg.runs
		m.lastUpdate = time.Now()
		m.err = nil
		if m.activeTab == tabRuns {
			m.cursor = clampCursor(m.cursor, m.maxIndex())
		}
		return m, nil

	case logsMsg:
		m.logLines = msg.lines
		m.lastUpdate = time.Now()
		m.err = nil
		if m.activeTab == tabLogs {
			m.cursor = clampCursor(m.cursor, m.maxIndex())
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.pending = ""
		return m, nil

	case refreshMsg:
		return m, tea.Batch(
			fetchStatus(m.client, m.ctx),
			fetchRuns(m.client, m.ctx),
			fetchLogs(m.client, m.ctx),
		)

	case tickMsg:
		return m, tea.Batch(
			fetchStatus(m.client, m.ctx),
			fetchRuns(m.client, m.ctx),
			fetchLogs(m.client, m.ctx),
			tickCmd(m.refreshInterval),
		)

	case eventStreamMsg:
		m.events = msg.ch
		return m, waitEvent(m.events)

	case eventMsg:
		return m, tea.Batch(
			fetchStatus(m.client, m.ctx),
			fetchRuns(m.client, m.ctx),
			fetchLogs(m.client, m.ctx),
			waitEvent(m.events),
		)

	case eventsDoneMsg:
		m.events = nil
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.activeTab = (m.activeTab + 1) % 3
		m.cursor = 0
		return m, nil

	case "1":
		m.activeTab = tabStatus
		m.cursor = 0
		return m, nil

	case "2":
		m.activeTab = tabRuns
		m.cursor = 0
		return m, nil

	case "3":
		m.activeTab = tabLogs
		m.cursor = 0
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.maxIndex() {
			m.cursor++
		}
		return m, nil

	case "G":
		m.cursor = m.maxIndex()
		return m, nil

	case "r":
		return m, func() tea.Msg { return refreshMsg{} }

	case "s":
		m.pending = "starting"
		return m, m.controlCmd(func(ctx context.Context) error {
			_, err := m.client.StartServer(ctx)
			return err
		})

	case "d":
		m.pending = "stopping"
		return m, m.controlCmd(func(ctx context.Context) error {
			_, err := m.client.StopServer(ctx)
			return err
		})

	case "R":
		m.pending = "restarting"
		return m, m.controlCmd(func(ctx context.Context) error {
			_, err := m.client.RestartServer(ctx)
			return err
		})
	}

	return m, nil
}

// controlCmd runs a server control call and refetches on completion. Launch
// errors surface when the call returns; probe results land on a later
// refresh once the session flips out of starting.
func (m model) controlCmd(action func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := action(ctx); err != nil {
			return errMsg{err}
		}
		return refreshMsg{}
	}
}

func (m model) maxIndex() int {
	switch m.activeTab {
	case tabRuns:
		if len(m.runs) == 0 {
			return 0
		}
		return len(m.runs) - 1
	case tabLogs:
		if len(m.logLines) == 0 {
			return 0
		}
		return len(m.logLines) - 1
	}
	return 0
}

func clampCursor(cursor, max int) int {
	if cursor > max {
		return max
	}
	return cursor
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	return renderView(m)
}
