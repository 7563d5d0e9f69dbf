package ui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// uploadPrompt asks for the path of a snapshot file to upload.
type uploadPrompt struct {
	input textinput.Model
	err   string
}

func newUploadPrompt() *uploadPrompt {
	ti := textinput.New()
	ti.Placeholder = "~/scans/host_10.0.0.1_2025-09-10T03-00-00Z.json"
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()
	return &uploadPrompt{input: ti}
}

// Init starts the cursor blinking.
func (p *uploadPrompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements Modal.
func (p *uploadPrompt) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return p, nil, true
		case km.Type == tea.KeyCtrlC:
			return p, tea.Quit, true
		case key.Matches(km, keys.Confirm):
			path, err := expandUploadPath(p.input.Value())
			if err != "" {
				p.err = err
				return p, nil, false
			}
			return p, func() tea.Msg { return uploadRequestMsg{path: path} }, true
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.err = ""
	return p, cmd, false
}

// View implements Modal.
func (p *uploadPrompt) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Upload snapshot"))
	b.WriteString("\n\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")
	if p.err != "" {
		b.WriteString(styles.DangerText.Render(p.err))
	} else {
		b.WriteString(styles.FaintText.Render("enter upload  esc cancel"))
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(70)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

// expandUploadPath resolves ~ and checks that value names a regular file.
// The second return value is a user-facing problem description.
func expandUploadPath(value string) (string, string) {
	path := strings.TrimSpace(value)
	if path == "" {
		return "", "Enter a file path"
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "Cannot resolve home directory"
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", "File not found: " + truncateMiddle(path, 50)
	}
	if info.IsDir() {
		return "", "Not a file: " + truncateMiddle(path, 50)
	}
	return path, ""
}
