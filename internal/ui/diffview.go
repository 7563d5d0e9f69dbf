package ui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/selection"
	"github.com/five82/hostdiff/internal/snapshot"
)

// diffTitle labels the diff pane with the compared range once known.
func (m Model) diffTitle() string {
	out := m.session.View().Outcome
	if out.Request.Seq == 0 || (!out.Pending && out.Result == nil && out.Err == "") {
		return "Diff"
	}
	return fmt.Sprintf("Diff %s..%s", out.Request.A, out.Request.B)
}

// renderDiffContent renders the compare outcome for the diff viewport.
func (m Model) renderDiffContent(width int, bgColor string) string {
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)
	view := m.session.View()
	out := view.Outcome

	line := func(text string, style lipgloss.Style) string {
		return bg.Render(truncate(text, width), style)
	}

	switch {
	case out.Pending:
		req := out.Request
		return line(fmt.Sprintf("Comparing %s %s..%s", req.Host, req.A, req.B), styles.WarningText)
	case out.Err != "":
		return wrapLines("Error: "+out.Err, width, func(s string) string { return bg.Render(s, styles.DangerText) })
	case out.Result != nil:
		return m.renderResult(*out.Result, out.Request.Host, width, styles, bg)
	case out.Notice != "":
		return line(out.Notice, styles.WarningText)
	}

	return line(selectionHint(view.State), styles.MutedText)
}

func selectionHint(s selection.State) string {
	switch s {
	case selection.HostSelected:
		return "Mark snapshots with a and b."
	case selection.PartialSnapshots:
		return "Mark the other snapshot."
	case selection.ReadyToCompare:
		return "Press c to compare."
	default:
		return "Select a host."
	}
}

func (m Model) renderResult(res diff.Result, host string, width int, styles Styles, bg BgStyle) string {
	var lines []string
	add := func(text string, style lipgloss.Style) {
		lines = append(lines, bg.Render(truncate(text, width), style))
	}

	sum := res.Summary()
	lines = append(lines,
		bg.Render(host, styles.AccentText)+bg.Spaces(2)+
			bg.Render(fmt.Sprintf("+%d", sum.Added), styles.SuccessText)+bg.Space()+
			bg.Render(fmt.Sprintf("-%d", sum.Removed), styles.DangerText)+bg.Space()+
			bg.Render(fmt.Sprintf("~%d", sum.Modified), styles.WarningText),
		"",
	)
	if res.Empty() {
		add("No differences.", styles.MutedText)
		return strings.Join(lines, "\n")
	}

	section := func(title string, n int, style lipgloss.Style) {
		add(fmt.Sprintf("%s (%d)", title, n), style.Bold(true))
		if n == 0 {
			add("  none", styles.FaintText)
		}
	}

	section("Added services", len(res.Added), styles.SuccessText)
	for _, svc := range res.Added {
		add("  + "+svc.Key().String(), styles.SuccessText)
		lines = append(lines, renderFields(svc, width, styles, bg)...)
	}
	lines = append(lines, "")

	section("Removed services", len(res.Removed), styles.DangerText)
	for _, svc := range res.Removed {
		add("  - "+svc.Key().String(), styles.DangerText)
		lines = append(lines, renderFields(svc, width, styles, bg)...)
	}
	lines = append(lines, "")

	section("Modified services", len(res.Modified), styles.WarningText)
	for _, mod := range res.Modified {
		add("  ~ "+mod.Key().String(), styles.WarningText)
		for _, field := range mod.Fields() {
			change := mod.Changes[field]
			before := truncate(change.Before.String(), max(width/3, 8))
			after := truncate(change.After.String(), max(width/3, 8))
			lines = append(lines,
				bg.Render("      "+field+":", styles.MutedText)+bg.Space()+
					bg.Render(before, styles.DangerText)+
					bg.Render(" -> ", styles.FaintText)+
					bg.Render(after, styles.SuccessText))
		}
	}
	return strings.Join(lines, "\n")
}

func renderFields(svc snapshot.Service, width int, styles Styles, bg BgStyle) []string {
	names := slices.Sorted(maps.Keys(svc.Fields))
	lines := make([]string, 0, len(names))
	for _, name := range names {
		value := diff.ValueOf(svc.Fields[name]).String()
		lines = append(lines,
			bg.Render("      "+name+":", styles.FaintText)+bg.Space()+
				bg.Render(truncate(value, max(width-len(name)-8, 8)), styles.Text))
	}
	return lines
}

// wrapLines breaks text at width and renders each line.
func wrapLines(text string, width int, render func(string) string) string {
	if width <= 0 {
		return render(text)
	}
	var out []string
	runes := []rune(text)
	for len(runes) > width {
		out = append(out, render(string(runes[:width])))
		runes = runes[width:]
	}
	out = append(out, render(string(runes)))
	return strings.Join(out, "\n")
}
