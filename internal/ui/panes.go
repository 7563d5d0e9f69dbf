package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderPanes())
	return b.String()
}

// contentHeight is the height below the header and command bar.
func (m Model) contentHeight() int {
	return max(m.height-2, 3)
}

// listHeight is the number of rows visible inside a list pane.
func (m Model) listHeight() int {
	return max(m.contentHeight()-2, 1)
}

// paneWidths splits the terminal between hosts, snapshots and diff.
// Extra wide (>= 160): 15% / 25% / 60%. Default: 20% / 30% / 50%.
func (m Model) paneWidths() (hosts, snapshots, diffWidth int) {
	if m.width >= LayoutExtraWideWidth {
		hosts = m.width * 15 / 100
		snapshots = m.width * 25 / 100
	} else {
		hosts = m.width * 20 / 100
		snapshots = m.width * 30 / 100
	}
	hosts = max(hosts, 18)
	snapshots = max(snapshots, 26)
	diffWidth = max(m.width-hosts-snapshots, 10)
	return hosts, snapshots, diffWidth
}

func (m Model) paneBg(p pane) string {
	if m.focus == p {
		return m.theme.FocusBg
	}
	return m.theme.SurfaceAlt
}

// renderPanes renders the hosts, snapshots and diff columns side by side.
func (m Model) renderPanes() string {
	height := m.contentHeight()
	hostsWidth, snapsWidth, diffWidth := m.paneWidths()

	hostsTitle := "Hosts"
	if n := len(m.hosts.Hosts); n > 0 {
		hostsTitle = "Hosts (" + strconv.Itoa(n) + ")"
	}
	hostsPane := m.renderTitledBox(hostsTitle, m.renderHostList(hostsWidth-2), hostsWidth, height, m.focus == paneHosts)

	snapsTitle := "Snapshots"
	if host := m.session.Selection().Host; host != "" {
		snapsTitle = truncate(host, snapsWidth-6)
	}
	snapsPane := m.renderTitledBox(snapsTitle, m.renderSnapshotList(snapsWidth-2), snapsWidth, height, m.focus == paneSnapshots)

	diffPane := m.renderTitledBox(m.diffTitle(), m.diffViewport.View(), diffWidth, height, m.focus == paneDiff)

	return lipgloss.JoinHorizontal(lipgloss.Top, hostsPane, snapsPane, diffPane)
}

func (m Model) renderHostList(width int) string {
	styles := m.theme.Styles()
	bgColor := m.paneBg(paneHosts)
	bg := NewBgStyle(bgColor)

	hosts := m.hosts.Hosts
	if len(hosts) == 0 {
		msg := "No hosts yet"
		if !m.hosts.HasHosts {
			msg = "Loading..."
		}
		return bg.Render(msg, styles.MutedText)
	}

	selected := m.session.Selection().Host
	start, end := visibleRange(m.hostRow, len(hosts), m.listHeight())
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		marker := "  "
		if hosts[i] == selected {
			marker = "● "
		}
		text := padRight(marker+truncate(hosts[i], width-3), width)
		lines = append(lines, m.renderRow(text, i == m.hostRow, hosts[i] == selected, bgColor))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSnapshotList(width int) string {
	styles := m.theme.Styles()
	bgColor := m.paneBg(paneSnapshots)
	bg := NewBgStyle(bgColor)

	sel := m.session.Selection()
	switch {
	case sel.Host == "":
		return bg.Render("Select a host", styles.MutedText)
	case m.snapshotsLoading && len(m.snapshots) == 0:
		return bg.Render("Loading...", styles.MutedText)
	case m.snapshotsErr != nil && len(m.snapshots) == 0:
		return bg.Render("Error: "+truncate(m.snapshotsErr.Error(), width-8), styles.DangerText)
	case len(m.snapshots) == 0:
		return bg.Render("No snapshots", styles.MutedText)
	}

	start, end := visibleRange(m.snapRow, len(m.snapshots), m.listHeight())
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		ts := m.snapshots[i]
		text := padRight(snapshotMarker(ts, sel.A, sel.B)+" "+truncateMiddle(ts, width-5), width)
		lines = append(lines, m.renderRow(text, i == m.snapRow, ts == sel.A || ts == sel.B, bgColor))
	}
	return strings.Join(lines, "\n")
}

// snapshotMarker labels a timestamp with the slots it fills.
func snapshotMarker(ts, a, b string) string {
	switch {
	case ts == a && ts == b:
		return "AB"
	case ts == a:
		return "A "
	case ts == b:
		return " B"
	default:
		return "  "
	}
}

func (m Model) renderRow(text string, cursor, marked bool, bgColor string) string {
	if cursor {
		return lipgloss.NewStyle().
			Background(lipgloss.Color(m.theme.SelectionBg)).
			Foreground(lipgloss.Color(m.theme.SelectionText)).
			Render(text)
	}
	fg := m.theme.Text
	if marked {
		fg = m.theme.Accent
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(bgColor)).
		Foreground(lipgloss.Color(fg)).
		Render(text)
}

// visibleRange returns the window of rows that keeps cursor on screen.
func visibleRange(cursor, count, height int) (start, end int) {
	if count <= height {
		return 0, count
	}
	start = max(cursor-height+1, 0)
	end = min(start+height, count)
	return start, end
}

// updateDiffViewport sizes the diff viewport and refreshes its content.
func (m *Model) updateDiffViewport() {
	if !m.ready {
		return
	}
	_, _, diffWidth := m.paneWidths()
	width := max(diffWidth-2, 1)
	height := max(m.contentHeight()-2, 1)

	if m.diffViewport.Width == 0 {
		m.diffViewport = viewport.New(width, height)
	}
	m.diffViewport.Width = width
	m.diffViewport.Height = height
	m.diffViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.paneBg(paneDiff)))
	m.diffViewport.SetContent(m.renderDiffContent(width, m.paneBg(paneDiff)))
}

// renderTitledBox draws a bordered pane with the title embedded in the top
// border and content padded to fill it.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColorStr := m.theme.Border
	bgColorStr := m.theme.SurfaceAlt
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := len([]rune(title))
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))
	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	lines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(lines, "\n") + "\n" + bottomBorder
}
