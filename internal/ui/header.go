package ui

import (
	"strconv"
	"strings"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("hostdiff", styles.Logo)}

	switch {
	case m.hosts.LastError != nil:
		last := "soon"
		if !m.lastUpdated.IsZero() {
			last = m.lastUpdated.Format("15:04:05")
		}
		label := "API " + classifyConnectionError(m.hosts.LastError)
		parts = append(parts,
			bg.Render(label, styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render(last, styles.MutedText),
		)
		if m.apiBase != "" {
			parts = append(parts, bg.Render(truncateMiddle(m.apiBase, 40), styles.FaintText))
		}
	case !m.hosts.HasHosts:
		target := "server"
		if m.apiBase != "" {
			target = m.apiBase
		}
		parts = append(parts, bg.Render("Connecting to "+target+"...", styles.WarningText.Bold(true)))
	default:
		parts = append(parts, m.buildSelectionStatus(styles, bg)...)
	}

	if m.status != "" {
		style := styles.SuccessText
		if m.statusErr {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(truncate(m.status, max(m.width/2, 20)), style))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// buildSelectionStatus describes the selection state and current picks.
func (m Model) buildSelectionStatus(styles Styles, bg BgStyle) []string {
	compact := m.width < LayoutCompactWidth
	view := m.session.View()

	parts := []string{
		styles.StateStyle(view.State.String()).Render(strings.ToUpper(view.State.String())),
		bg.Render("Hosts", styles.MutedText) + bg.Space() +
			bg.Render(strconv.Itoa(len(m.hosts.Hosts)), styles.Text),
	}

	sel := view.Selection
	if sel.Host != "" {
		parts = append(parts, bg.Render(sel.Host, styles.AccentText))
	}
	if !compact {
		parts = append(parts,
			bg.Render("A", styles.FaintText)+bg.Space()+bg.Render(orDash(sel.A), styles.Text),
			bg.Render("B", styles.FaintText)+bg.Space()+bg.Render(orDash(sel.B), styles.Text),
		)
		if !m.lastUpdated.IsZero() {
			parts = append(parts, bg.Render("Updated "+m.lastUpdated.Format("15:04:05"), styles.FaintText))
		}
	}
	return parts
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints for the focused pane.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.focus {
	case paneSnapshots:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"a", "Mark A"},
			{"b", "Mark B"},
			{"c", "Compare"},
		}
	case paneDiff:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"ctrl+d/u", "Page"},
			{"g/G", "Top/Bottom"},
			{"c", "Compare"},
		}
	default:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Select"},
			{"c", "Compare"},
		}
	}
	commands = append(commands,
		cmd{"u", "Upload"},
		cmd{"r", "Refresh"},
		cmd{"Tab", "Focus"},
		cmd{"?", "More"},
	)

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
