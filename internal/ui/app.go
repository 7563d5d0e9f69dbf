// Package ui provides the Bubble Tea TUI for hostdiff.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/hostdiff/internal/api"
	"github.com/five82/hostdiff/internal/compare"
	"github.com/five82/hostdiff/internal/prefs"
	"github.com/five82/hostdiff/internal/state"
)

// pane identifies the focused column.
type pane int

const (
	paneHosts pane = iota
	paneSnapshots
	paneDiff
	paneCount
)

func (p pane) next() pane { return (p + 1) % paneCount }
func (p pane) prev() pane { return (p + paneCount - 1) % paneCount }

// Refresher requests an immediate host list refresh.
type Refresher interface {
	Trigger()
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Backend   api.Backend
	Store     *state.Store
	Refresher Refresher
	Logger    *zap.Logger
	PollTick  time.Duration
	ThemeName string
	LastHost  string
	PrefsPath string
	LogPath   string
	APIBase   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	backend   api.Backend
	store     *state.Store
	refresher Refresher
	logger    *zap.Logger
	prefsPath string
	logPath   string
	pollTick  time.Duration
	apiBase   string

	// UI state
	keys   keyMap
	theme  Theme
	width  int
	height int
	ready  bool
	focus  pane

	// Selection, compare lifecycle and result
	session *compare.Session

	// Host list, fed by the poller through the state store
	hosts       state.Snapshot
	lastUpdated time.Time
	hostRow     int
	lastHost    string

	// Snapshot list for the selected host
	snapshots        []string
	snapshotsErr     error
	snapshotsLoading bool
	snapRow          int

	diffViewport viewport.Model

	showHelp  bool
	modal     Modal
	status    string
	statusErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ui")

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}

	return Model{
		ctx:       ctx,
		backend:   opts.Backend,
		store:     store,
		refresher: opts.Refresher,
		logger:    logger,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		pollTick:  pollTick,
		apiBase:   opts.APIBase,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(opts.ThemeName),
		session:   compare.NewSession(compare.New(opts.Backend, logger)),
		lastHost:  strings.TrimSpace(opts.LastHost),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchHostsCmd(m.store),
		tickCmd(m.pollTick),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateDiffViewport()
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchHostsCmd(m.store), tickCmd(m.pollTick))

	case hostsMsg:
		return m.handleHosts(state.Snapshot(msg))

	case snapshotsMsg:
		m.handleSnapshots(msg)
		return m, nil

	case compareResultMsg:
		if m.session.Resolve(msg.req, msg.result, msg.err) {
			m.updateDiffViewport()
			m.diffViewport.GotoTop()
		}
		return m, nil

	case uploadRequestMsg:
		m.status = "Uploading " + truncateMiddle(msg.path, 60) + "..."
		m.statusErr = false
		return m, uploadCmd(m.ctx, m.backend, msg.path)

	case uploadResultMsg:
		return m.handleUploadResult(msg)
	}

	// Cursor blink and other input-component messages.
	if m.modal != nil {
		var cmd tea.Cmd
		m.modal, cmd, _ = m.modal.Update(msg, m.keys)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		var (
			cmd    tea.Cmd
			closed bool
		)
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.updateDiffViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.focus = m.focus.next()
		m.updateDiffViewport()
		return m, nil

	case key.Matches(msg, m.keys.ShiftTab):
		m.focus = m.focus.prev()
		m.updateDiffViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.focus = paneHosts
		m.updateDiffViewport()
		return m, nil

	case key.Matches(msg, m.keys.Upload):
		prompt := newUploadPrompt()
		m.modal = prompt
		return m, prompt.Init()

	case key.Matches(msg, m.keys.Logs):
		if m.logPath == "" {
			m.status = "No log file configured"
			m.statusErr = true
			return m, nil
		}
		m.modal = newLogsView(m.logPath)
		return m, loadLogsCmd(m.logPath)

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.Compare):
		cmd := m.requestCompare()
		return m, cmd
	}

	switch m.focus {
	case paneHosts:
		return m.handleHostsKey(msg)
	case paneSnapshots:
		return m.handleSnapshotsKey(msg)
	case paneDiff:
		return m.handleDiffKey(msg)
	}
	return m, nil
}

func (m Model) handleHostsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	hosts := m.hosts.Hosts
	if len(hosts) == 0 {
		return m, nil
	}
	if key.Matches(msg, m.keys.Select) {
		m.focus = paneSnapshots
		cmd := m.selectHost(hosts[m.hostRow])
		return m, cmd
	}
	m.hostRow = moveCursor(m.keys, msg, m.hostRow, len(hosts), m.listHeight())
	return m, nil
}

func (m Model) handleSnapshotsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.snapshots) == 0 {
		return m, nil
	}
	ts := m.snapshots[m.snapRow]
	sel := m.session.Selection()
	switch {
	case key.Matches(msg, m.keys.MarkA):
		// Marking the row already in slot A clears the slot.
		if sel.A == ts {
			ts = ""
		}
		if err := m.session.SelectSnapshotA(ts); err == nil {
			m.updateDiffViewport()
		}
		return m, nil
	case key.Matches(msg, m.keys.MarkB):
		if sel.B == ts {
			ts = ""
		}
		if err := m.session.SelectSnapshotB(ts); err == nil {
			m.updateDiffViewport()
		}
		return m, nil
	}
	m.snapRow = moveCursor(m.keys, msg, m.snapRow, len(m.snapshots), m.listHeight())
	return m, nil
}

func (m Model) handleDiffKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.diffViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.diffViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.diffViewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.diffViewport.HalfPageUp()
	case key.Matches(msg, m.keys.Top):
		m.diffViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.diffViewport.GotoBottom()
	}
	return m, nil
}

// moveCursor applies a navigation key to a list cursor.
func moveCursor(keys keyMap, msg tea.KeyMsg, row, count, page int) int {
	half := max(page/2, 1)
	switch {
	case key.Matches(msg, keys.Down):
		row++
	case key.Matches(msg, keys.Up):
		row--
	case key.Matches(msg, keys.Top):
		row = 0
	case key.Matches(msg, keys.Bottom):
		row = count - 1
	case key.Matches(msg, keys.HalfPageDown):
		row += half
	case key.Matches(msg, keys.HalfPageUp):
		row -= half
	}
	return clamp(row, count)
}

func (m Model) handleHosts(snap state.Snapshot) (tea.Model, tea.Cmd) {
	m.hosts = snap
	m.lastUpdated = snap.LastUpdated
	m.hostRow = clamp(m.hostRow, len(snap.Hosts))

	if m.lastHost == "" || m.session.Selection().Host != "" {
		return m, nil
	}
	for i, host := range snap.Hosts {
		if host == m.lastHost {
			m.hostRow = i
			cmd := m.selectHost(host)
			return m, cmd
		}
	}
	return m, nil
}

// selectHost resets the selection to host and loads its snapshot list.
func (m *Model) selectHost(host string) tea.Cmd {
	gen := m.session.SelectHost(host)
	m.lastHost = ""
	m.snapshots = nil
	m.snapshotsErr = nil
	m.snapshotsLoading = true
	m.snapRow = 0
	m.savePrefs()
	m.updateDiffViewport()
	m.logger.Debug("host selected", zap.String("host", host), zap.Uint64("generation", gen))
	return fetchSnapshotsCmd(m.ctx, m.backend, host, gen)
}

// handleSnapshots applies a snapshot list unless the selection has moved on
// since it was requested.
func (m *Model) handleSnapshots(msg snapshotsMsg) {
	if msg.generation != m.session.Generation() || msg.host != m.session.Selection().Host {
		m.logger.Debug("stale snapshot list discarded",
			zap.String("host", msg.host),
			zap.Uint64("generation", msg.generation),
		)
		return
	}
	m.snapshotsLoading = false
	m.snapshotsErr = msg.err
	if msg.err == nil {
		m.snapshots = msg.timestamps
	}
	m.snapRow = clamp(m.snapRow, len(m.snapshots))
}

func (m *Model) requestCompare() tea.Cmd {
	req, err := m.session.RequestCompare()
	m.updateDiffViewport()
	if err != nil {
		return nil
	}
	return compareCmd(m.ctx, m.session, req)
}

// refresh asks the poller for a new host list and reloads the snapshot list
// of the selected host.
func (m *Model) refresh() tea.Cmd {
	if m.refresher != nil {
		m.refresher.Trigger()
	}
	host := m.session.Selection().Host
	if host == "" {
		return nil
	}
	m.snapshotsLoading = true
	return fetchSnapshotsCmd(m.ctx, m.backend, host, m.session.Generation())
}

func (m Model) handleUploadResult(msg uploadResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "Error: " + msg.err.Error()
		m.statusErr = true
		m.logger.Warn("upload failed", zap.String("path", msg.path), zap.Error(msg.err))
		return m, nil
	}

	m.status = fmt.Sprintf("Uploaded %s @ %s", msg.resp.IP, msg.resp.Timestamp)
	if !msg.resp.Created {
		m.status += " (already stored)"
	}
	m.statusErr = false
	m.logger.Info("upload stored",
		zap.String("ip", msg.resp.IP),
		zap.String("timestamp", msg.resp.Timestamp),
		zap.Bool("created", msg.resp.Created),
	)

	if m.refresher != nil {
		m.refresher.Trigger()
	}
	if host := m.session.Selection().Host; host != "" && host == msg.resp.IP {
		return m, fetchSnapshotsCmd(m.ctx, m.backend, host, m.session.Generation())
	}
	return m, nil
}

func (m *Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, LastHost: m.session.Selection().Host}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", zap.Error(err))
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(contextOrBackground(opts.Context)))
	_, err := p.Run()
	if err != nil && contextOrBackground(opts.Context).Err() != nil {
		return nil
	}
	return err
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
