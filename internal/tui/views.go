package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

func renderView(m model) string {
	var b strings.Builder

	// Title bar
	b.WriteString(RenderTitle(" Open WebUI Desktop "))
	b.WriteString("\n\n")

	// Tabs
	b.WriteString(renderTabs(m.activeTab))
	b.WriteString("\n\n")

	// Content area (use remaining height minus header/footer)
	contentHeight := m.height - 8 // title + tabs + status + help
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch m.activeTab {
	case tabStatus:
		b.WriteString(renderStatus(m))
	case tabRuns:
		b.WriteString(renderRuns(m, contentHeight))
	case tabLogs:
		b.WriteString(renderLogs(m, contentHeight))
	}

	// Error display
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(RenderError(m.err))
		b.WriteString("\n")
	}

	// Status bar
	b.WriteString("\n")
	b.WriteString(renderStatusBar(m))
	b.WriteString("\n")

	// Help
	b.WriteString(renderHelp(m))

	return b.String()
}

func renderTabs(active tab) string {
	tabs := []struct {
		label string
		key   string
		t     tab
	}{
		{"Status", "1", tabStatus},
		{"Runs", "2", tabRuns},
		{"Logs", "3", tabLogs},
	}

	var parts []string
	for _, t := range tabs {
		label := fmt.Sprintf("[%s] %s", t.key, t.label)
		if t.t == active {
			parts = append(parts, tabActiveStyle.Render(label))
		} else {
			parts = append(parts, tabInactiveStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderStatus(m model) string {
	var b strings.Builder

	s := m.server

	writeField := func(label, value string) {
		b.WriteString(HeaderStyle.Render(fmt.Sprintf("  %-12s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	state := fmt.Sprintf("%s %s", statusIndicator(s.Status), statusStyle(s.Status).Render(statusLabel(s.Status)))
	writeField("State", state)

	url := s.URL
	if url == "" {
		url = MutedStyle.Render("-")
	}
	writeField("URL", url)

	if s.LANURL != "" {
		writeField("LAN URL", s.LANURL)
	}

	if s.PID > 0 {
		writeField("PID", fmt.Sprintf("%d", s.PID))
	}

	if s.Status == "started" || s.Status == "starting" {
		reach := "no"
		if s.Reachable {
			reach = "yes"
		}
		writeField("Reachable", reach)
	}

	if s.StartedAt != nil && !s.StartedAt.IsZero() && (s.Status == "started" || s.Status == "starting") {
		writeField("Uptime", formatDuration(time.Since(*s.StartedAt)))
	}

	if s.LastError != "" {
		writeField("Last error", failedStyle.Render(truncateString(s.LastError, 72)))
	}

	b.WriteString("\n")

	writeField("Python", runtimeLine(m.runtime))
	writeField("Package", packageLine(m.pkg))

	return b.String()
}

func runtimeLine(rt contracts.RuntimeStatus) string {
	if !rt.Installed {
		return MutedStyle.Render("not installed")
	}
	if rt.Version == "" {
		return "installed"
	}
	return rt.Version
}

func packageLine(pkg contracts.PackageStatus) string {
	if !pkg.Installed {
		return MutedStyle.Render("not installed")
	}
	line := pkg.Version
	if line == "" {
		line = "installed"
	}
	if pkg.UpdateAvailable && pkg.Latest != "" {
		line += startingStyle.Render(fmt.Sprintf("  (update available: %s)", pkg.Latest))
	}
	return line
}

func renderRuns(m model, maxHeight int) string {
	if len(m.runs) == 0 {
		return MutedStyle.Render("  No runs recorded")
	}

	var b strings.Builder

	header := fmt.Sprintf("  %-3s %-20s %-10s %-10s %-8s %-6s %s",
		"", "STARTED", "DURATION", "OUTCOME", "PID", "EXIT", "DETAIL")
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n")

	visible := maxHeight - 2 // header + spacing
	if visible > len(m.runs) {
		visible = len(m.runs)
	}
	if visible < 1 {
		visible = 1
	}

	// Scroll offset
	offset := 0
	if m.cursor >= visible {
		offset = m.cursor - visible + 1
	}

	for i := offset; i < offset+visible && i < len(m.runs); i++ {
		run := m.runs[i]

		indicator := runIndicator(run.Status)
		started := formatRunStart(run.StartedAt)
		duration := formatDuration(runDuration(run))
		exit := "-"
		if run.ExitCode != nil {
			exit = fmt.Sprintf("%d", *run.ExitCode)
		}
		detail := truncateString(run.Error, 40)

		row := fmt.Sprintf("  %s %-20s %-10s %-10s %-8d %-6s %s",
			indicator, started, duration, run.Status, run.PID, exit, detail)

		if i == m.cursor {
			b.WriteString(SelectedStyle.Render(row))
		} else {
			prefix := fmt.Sprintf("  %s %-20s %-10s ", indicator, started, duration)
			b.WriteString(BaseStyle.Render(prefix))
			b.WriteString(runStyle(run.Status).Render(fmt.Sprintf("%-10s", run.Status)))
			b.WriteString(MutedStyle.Render(fmt.Sprintf(" %-8d %-6s %s", run.PID, exit, detail)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderLogs(m model, maxHeight int) string {
	if len(m.logLines) == 0 {
		return MutedStyle.Render("  No server output captured")
	}

	var b strings.Builder

	visible := maxHeight
	if visible > len(m.logLines) {
		visible = len(m.logLines)
	}
	if visible < 1 {
		visible = 1
	}

	offset := 0
	if m.cursor >= visible {
		offset = m.cursor - visible + 1
	}

	for i := offset; i < offset+visible && i < len(m.logLines); i++ {
		line := truncateString(m.logLines[i], maxLineWidth(m.width))
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("  " + line))
		} else {
			b.WriteString(BaseStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func maxLineWidth(width int) int {
	if width <= 4 {
		return 80
	}
	return width - 4
}

func renderStatusBar(m model) string {
	// Left side: current tab and item count
	var left string
	switch m.activeTab {
	case tabStatus:
		left = fmt.Sprintf(" [Status] %s", statusLabel(m.server.Status))
	case tabRuns:
		left = fmt.Sprintf(" [Runs] %d runs", len(m.runs))
	case tabLogs:
		left = fmt.Sprintf(" [Logs] %d lines", len(m.logLines))
	}

	// Center: in-flight control action
	var center string
	if m.pending != "" {
		center = m.pending + "..."
	}

	// Right side: cursor position and last update time
	var right string
	if m.activeTab != tabStatus {
		right = fmt.Sprintf("Row %d/%d  ", m.cursor+1, m.maxIndex()+1)
	}
	if !m.lastUpdate.IsZero() {
		right = fmt.Sprintf("%sUpdated %s ago ", right, formatDuration(time.Since(m.lastUpdate)))
	}

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	availableWidth := m.width - leftWidth - rightWidth
	if availableWidth >= centerWidth {
		gap1 := (availableWidth - centerWidth) / 2
		gap2 := availableWidth - centerWidth - gap1
		bar := left + strings.Repeat(" ", gap1) + center + strings.Repeat(" ", gap2) + right
		return StatusBarStyle.Width(m.width).Render(bar)
	}

	gap := m.width - leftWidth - centerWidth - rightWidth
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + center + right
	return StatusBarStyle.Width(m.width).Render(bar)
}

func renderHelp(m model) string {
	common := "q: quit  1/2/3: tabs  r: refresh  s: start  d: stop  R: restart"

	switch m.activeTab {
	case tabRuns, tabLogs:
		return RenderHelp(" " + common + "  j/k: nav  G: end")
	default:
		return RenderHelp(" " + common)
	}
}

func runIndicator(outcome string) string {
	switch outcome {
	case "running":
		return runningStyle.Render("●")
	case "failed":
		return failedStyle.Render("○")
	default:
		return stoppedStyle.Render("○")
	}
}

func runStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "running":
		return runningStyle
	case "failed":
		return failedStyle
	default:
		return stoppedStyle
	}
}

func runDuration(run contracts.RunRecord) time.Duration {
	if run.StartedAt.IsZero() {
		return 0
	}
	if run.EndedAt != nil && !run.EndedAt.IsZero() {
		return run.EndedAt.Sub(run.StartedAt)
	}
	return time.Since(run.StartedAt)
}

func formatRunStart(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	local := t.Local()
	if time.Since(t) > 24*time.Hour {
		return local.Format("Jan 02 15:04:05")
	}
	return local.Format("15:04:05")
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// truncateString truncates s to maxRunes runes, appending "..." if truncated.
// Uses []rune to avoid splitting multi-byte UTF-8 characters.
func truncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}
