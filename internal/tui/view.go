package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/utils"
)

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	// === Handle Modal States First ===

	if m.state == InputState {
		labelStyle := lipgloss.NewStyle().Width(6).Foreground(ColorLightGray)
		content := lipgloss.JoinVertical(lipgloss.Left,
			"", // Top spacer
			lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render("URL:"), m.input.View()),
			"",
			lipgloss.NewStyle().Foreground(ColorGray).Render("Saved to "+m.Settings.DownloadsDir()),
			"",
			m.help.View(InputKeys),
		)
		paddedContent := lipgloss.NewStyle().Padding(0, 2).Render(content)
		box := renderBtopBox("Add Download", paddedContent, 80, 9, ColorNeonPink, false)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	if m.state == SettingsState {
		return m.viewSettings()
	}

	// === MAIN DASHBOARD LAYOUT ===

	availableHeight := m.height - 2 // footer
	availableWidth := m.width - 2

	leftWidth := int(float64(availableWidth) * ListWidthRatio)
	rightWidth := availableWidth - leftWidth

	listHeight := availableHeight - HeaderHeight
	if listHeight < MinListHeight {
		listHeight = MinListHeight
	}

	// --- HEADER ---
	queued, active, done := m.CalculateStats()
	header := lipgloss.NewStyle().
		Width(availableWidth).
		Height(HeaderHeight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			LogoStyle.Render("▌SBSample"),
			SubtitleStyle.Render(fmt.Sprintf("%d downloads · saving to %s", len(m.downloads), m.Settings.DownloadsDir())),
		))

	// --- DOWNLOAD LIST ---
	tabBar := renderTabs(m.activeTab, queued, active, done)

	var listContent string
	visible := m.visibleDownloads()
	if len(visible) == 0 {
		listContent = lipgloss.Place(leftWidth-8, listHeight-6, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("No downloads"))
	} else {
		listContent = m.renderList(visible, leftWidth-8, listHeight-6)
	}

	listInner := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left,
		tabBar,
		"",
		listContent,
	))
	listBox := renderBtopBox("Downloads", listInner, leftWidth, listHeight, ColorNeonPink, true)

	// --- DETAILS PANE ---
	var detailContent string
	if d := m.GetSelectedDownload(); d != nil {
		detailContent = renderFocusedDetails(d, rightWidth-4)
	} else {
		detailContent = lipgloss.Place(rightWidth-4, listHeight-4, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("No Download Selected"))
	}
	detailBox := renderBtopBox("File Details", detailContent, rightWidth, listHeight, ColorGray, true)

	body := lipgloss.JoinHorizontal(lipgloss.Top, listBox, detailBox)

	// Footer - show notification if active, otherwise show keybindings
	var footer string
	if m.notification != "" {
		footer = lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center,
			NotificationStyle.Render(m.notification))
	} else {
		footer = lipgloss.NewStyle().Padding(0, 1).Render(m.help.View(DashboardKeys))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		footer,
	)
}

// renderList draws one card per row, scrolled so the cursor stays visible
func (m RootModel) renderList(rows []*DownloadModel, width, height int) string {
	perPage := height / CardHeight
	if perPage < 1 {
		perPage = 1
	}
	start := 0
	if m.cursor >= perPage {
		start = m.cursor - perPage + 1
	}
	end := start + perPage
	if end > len(rows) {
		end = len(rows)
	}

	var cards []string
	for i := start; i < end; i++ {
		cards = append(cards, renderCard(rows[i], width, i == m.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func renderCard(d *DownloadModel, width int, selected bool) string {
	titleStyle := CardTitleStyle
	marker := "  "
	if selected {
		titleStyle = SelectedCardTitleStyle
		marker = "> "
	}

	barWidth := width - 10
	if barWidth < ProgressMinWidth {
		barWidth = ProgressMinWidth
	}
	d.progress.Width = barWidth

	title := titleStyle.Render(marker + truncateString(d.URL, width-4))
	bar := "  " + d.progress.ViewAs(d.Progress)
	stats := CardStatsStyle.Render(fmt.Sprintf("  %s · %s", getDownloadStatus(d), d.Elapsed.Round(time.Second)))

	return lipgloss.JoinVertical(lipgloss.Left, title, bar, stats, "")
}

// Helper to render the detailed info pane
func renderFocusedDetails(d *DownloadModel, w int) string {
	progressWidth := w - 12
	if progressWidth < ProgressMinWidth {
		progressWidth = ProgressMinWidth
	}
	d.progress.Width = progressWidth

	contentWidth := w - 6
	divider := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.Repeat("─", max(contentWidth, 1)))

	location := d.Location
	if location == "" {
		location = "-"
	}

	fileInfo := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("Filename:"), StatsValueStyle.Render(truncateString(d.Filename, contentWidth-14))),
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("Status:"), StatsValueStyle.Render(getDownloadStatus(d))),
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("Saved to:"), StatsValueStyle.Render(truncateString(location, contentWidth-14))),
	)

	progressSection := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true).Render("Progress "+utils.FormatPercent(d.Progress)),
		"",
		lipgloss.NewStyle().MarginLeft(1).Render(d.progress.ViewAs(d.Progress)),
	)

	statsLines := []string{
		lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render("Elapsed:"), StatsValueStyle.Render(d.Elapsed.Round(time.Second).String())),
	}
	if d.Err != nil {
		statsLines = append(statsLines, lipgloss.JoinHorizontal(lipgloss.Left,
			StatsLabelStyle.Render("Error:"),
			lipgloss.NewStyle().Foreground(ColorStateError).Render(truncateString(d.Err.Error(), contentWidth-14)),
		))
	}

	urlSection := lipgloss.JoinHorizontal(lipgloss.Left,
		StatsLabelStyle.Render("URL:"),
		lipgloss.NewStyle().Foreground(ColorLightGray).Render(truncateString(d.URL, contentWidth-14)),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		"",
		fileInfo,
		divider,
		"",
		progressSection,
		divider,
		"",
		lipgloss.JoinVertical(lipgloss.Left, statsLines...),
		divider,
		"",
		urlSection,
	)

	return lipgloss.NewStyle().
		Padding(0, 2).
		Render(content)
}

func getDownloadStatus(d *DownloadModel) string {
	style := lipgloss.NewStyle()

	switch d.State {
	case types.StateFailed:
		return style.Foreground(ColorStateError).Render("✖ Error")
	case types.StateFinished:
		return style.Foreground(ColorStateDone).Render("✔ Completed")
	case types.StateDownloading:
		return style.Foreground(ColorStateDownloading).Render("⬇ Downloading")
	default:
		return style.Foreground(ColorStateWaiting).Render("o Waiting")
	}
}

func truncateString(s string, i int) string {
	if i < 1 {
		i = 1
	}
	runes := []rune(s)
	if len(runes) > i {
		return string(runes[:i]) + "..."
	}
	return s
}

func renderTabs(activeTab, queuedCount, activeCount, doneCount int) string {
	tabs := []struct {
		Label string
		Count int
	}{
		{"Queued", queuedCount},
		{"Active", activeCount},
		{"Done", doneCount},
	}
	var rendered []string
	for i, t := range tabs {
		style := TabStyle
		if i == activeTab {
			style = ActiveTabStyle
		}
		rendered = append(rendered, style.Render(fmt.Sprintf("%s (%d)", t.Label, t.Count)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderBtopBox creates a btop-style box with title embedded in the top border
// titleRight: if true, title appears on the right side; if false, title appears on the left
// Example (left):  ╭─ TITLE ─────────────────────────────────╮
// Example (right): ╭─────────────────────────────────── TITLE ─╮
func renderBtopBox(title string, content string, width, height int, borderColor lipgloss.TerminalColor, titleRight bool) string {
	const (
		topLeft     = "╭"
		topRight    = "╮"
		bottomLeft  = "╰"
		bottomRight = "╯"
		horizontal  = "─"
		vertical    = "│"
	)

	innerWidth := width - 2 // Account for left and right borders
	if innerWidth < 1 {
		innerWidth = 1
	}

	border := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true)

	titleText := fmt.Sprintf(" %s ", title)
	remainingWidth := innerWidth - lipgloss.Width(titleText) - 1 // -1 for the dash after topLeft
	if remainingWidth < 0 {
		remainingWidth = 0
	}

	var topBorder string
	if titleRight {
		topBorder = border.Render(topLeft+strings.Repeat(horizontal, remainingWidth)) +
			titleStyle.Render(titleText) +
			border.Render(horizontal+topRight)
	} else {
		topBorder = border.Render(topLeft+horizontal) +
			titleStyle.Render(titleText) +
			border.Render(strings.Repeat(horizontal, remainingWidth)+topRight)
	}

	bottomBorder := border.Render(bottomLeft + strings.Repeat(horizontal, innerWidth) + bottomRight)

	contentLines := strings.Split(content, "\n")
	innerHeight := height - 2 // Account for top and bottom borders

	var wrappedLines []string
	for i := 0; i < innerHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		// Pad or truncate line to fit innerWidth
		lineWidth := lipgloss.Width(line)
		if lineWidth < innerWidth {
			line += strings.Repeat(" ", innerWidth-lineWidth)
		} else if lineWidth > innerWidth {
			line = lipgloss.NewStyle().MaxWidth(innerWidth).Render(line)
		}
		wrappedLines = append(wrappedLines, border.Render(vertical)+line+border.Render(vertical))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBorder,
		strings.Join(wrappedLines, "\n"),
		bottomBorder,
	)
}
