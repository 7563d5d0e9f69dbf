package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hostdiff/internal/logtail"
)

// logTailLines is how much of the log file the overlay loads.
const logTailLines = 500

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

func loadLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines)
		return logsMsg{entries: entries, err: err}
	}
}

// logsView shows the tail of the client's own log file.
type logsView struct {
	path    string
	entries []logtail.Entry
	err     error
	loaded  bool
	vp      viewport.Model
}

func newLogsView(path string) *logsView {
	return &logsView{path: path}
}

// Update implements Modal.
func (v *logsView) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case logsMsg:
		v.entries = msg.entries
		v.err = msg.err
		v.loaded = true
		return v, nil, false
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Logs):
			return v, nil, true
		case msg.Type == tea.KeyCtrlC:
			return v, tea.Quit, true
		case key.Matches(msg, keys.Refresh):
			return v, loadLogsCmd(v.path), false
		case key.Matches(msg, keys.Down):
			v.vp.ScrollDown(1)
		case key.Matches(msg, keys.Up):
			v.vp.ScrollUp(1)
		case key.Matches(msg, keys.HalfPageDown):
			v.vp.HalfPageDown()
		case key.Matches(msg, keys.HalfPageUp):
			v.vp.HalfPageUp()
		case key.Matches(msg, keys.Top):
			v.vp.GotoTop()
		case key.Matches(msg, keys.Bottom):
			v.vp.GotoBottom()
		}
	}
	return v, nil, false
}

// View implements Modal.
func (v *logsView) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	innerWidth := max(width-6, 10)
	innerHeight := max(height-6, 3)

	atBottom := v.vp.Height == 0 || v.vp.AtBottom()
	if v.vp.Width != innerWidth || v.vp.Height != innerHeight {
		v.vp = viewport.New(innerWidth, innerHeight)
	}
	v.vp.SetContent(v.renderEntries(styles, innerWidth))
	if atBottom {
		v.vp.GotoBottom()
	}

	title := styles.Text.Bold(true).Render("Logs") + "  " +
		styles.FaintText.Render(truncateMiddle(v.path, max(innerWidth-20, 10)))
	footer := styles.FaintText.Render("j/k scroll  r reload  esc close")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.BorderFocus)).
		Padding(0, 1).
		Render(title + "\n" + v.vp.View() + "\n" + footer)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

func (v *logsView) renderEntries(styles Styles, width int) string {
	switch {
	case !v.loaded:
		return styles.MutedText.Render("Loading...")
	case v.err != nil:
		return styles.DangerText.Render("Error: " + v.err.Error())
	case len(v.entries) == 0:
		return styles.MutedText.Render("No log entries yet")
	}

	lines := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		lines = append(lines, levelStyle(styles, e.Level).Render(truncate(e.String(), width)))
	}
	return strings.Join(lines, "\n")
}

func levelStyle(styles Styles, level string) lipgloss.Style {
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.Text
	}
}
