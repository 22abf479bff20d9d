package tui

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/utils"
)

// viewSettings renders the Btop-style settings page. Values are read-only
// here; they are edited in settings.json.
func (m RootModel) viewSettings() string {
	width := SettingsWidth
	height := SettingsHeight
	if m.width < width+4 {
		width = m.width - 4
	}
	if m.height < height+4 {
		height = m.height - 4
	}

	categories := config.CategoryOrder()
	metadata := config.GetSettingsMetadata()

	// === TAB BAR ===
	var tabItems []string
	for i, cat := range categories {
		label := fmt.Sprintf("[%d] %s", i+1, cat)
		if i == m.SettingsActiveTab {
			tabItems = append(tabItems, ActiveTabStyle.Render(label))
		} else {
			tabItems = append(tabItems, TabStyle.Render(label))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Left, tabItems...)

	// === CONTENT AREA ===
	currentCategory := categories[m.SettingsActiveTab]
	settingsMeta := metadata[currentCategory]
	settingsValues := m.getSettingsValues(currentCategory)

	leftWidth := 24
	rightWidth := width - leftWidth - 5

	var listLines []string
	for i, meta := range settingsMeta {
		line := meta.Label
		if i == m.SettingsSelectedRow {
			line = lipgloss.NewStyle().
				Foreground(ColorNeonPink).
				Bold(true).
				Render("> " + line)
		} else {
			line = lipgloss.NewStyle().
				Foreground(ColorLightGray).
				Render("  " + line)
		}
		listLines = append(listLines, line)
	}
	listBox := lipgloss.NewStyle().
		Width(leftWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, listLines...))

	separator := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.TrimSuffix(strings.Repeat("│\n", len(settingsMeta)), "\n"))

	var rightContent string
	if m.SettingsSelectedRow < len(settingsMeta) {
		meta := settingsMeta[m.SettingsSelectedRow]
		valueDisplay := lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Bold(true).
			Render("Value: " + formatSettingValue(settingsValues[meta.Key], meta.Type))
		descDisplay := lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Width(rightWidth - 2).
			Render(meta.Description)
		rightContent = valueDisplay + "\n\n" + descDisplay
	}
	rightBox := lipgloss.NewStyle().
		Width(rightWidth).
		PaddingLeft(1).
		Render(rightContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listBox, separator, rightBox)

	fullContent := lipgloss.JoinVertical(lipgloss.Left,
		tabBar,
		"",
		content,
		"",
		m.help.View(SettingsKeys),
		lipgloss.NewStyle().Foreground(ColorGray).Render(truncateString(config.GetSettingsPath(), width-8)),
	)

	box := renderBtopBox("Settings", fullContent, width, height, ColorNeonPink, false)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// getSettingsValues returns a map of setting key -> value for a category
func (m RootModel) getSettingsValues(category string) map[string]any {
	values := make(map[string]any)
	s := m.Settings

	switch category {
	case "General":
		values["download_root"] = s.General.DownloadRoot
		values["subfolder"] = s.General.Subfolder
		values["intercept_patterns"] = s.General.InterceptPatterns
		values["sniff_content_type"] = s.General.SniffContentType
		values["theme"] = themeName(s.General.Theme)
	case "Network":
		values["user_agent"] = s.Connections.UserAgent
		values["proxy_url"] = s.Connections.ProxyURL
		values["skip_tls_verification"] = s.Connections.SkipTLSVerification
		values["max_concurrent_transfers"] = s.Connections.MaxConcurrentTransfers
	case "Performance":
		values["worker_buffer_size"] = s.Performance.WorkerBufferSize
		values["progress_batch_size"] = s.Performance.ProgressBatchSize
		values["progress_batch_interval"] = s.Performance.ProgressBatchInterval
		values["event_buffer_size"] = s.Performance.EventBufferSize
	case "Logging":
		values["level"] = s.Logging.Level
		values["format"] = s.Logging.Format
		values["file"] = s.Logging.File
	}

	return values
}

func themeName(theme int) string {
	switch theme {
	case config.ThemeLight:
		return "Light"
	case config.ThemeDark:
		return "Dark"
	default:
		return "System"
	}
}

// getSettingsCount returns the number of settings in the current category
func (m RootModel) getSettingsCount() int {
	categories := config.CategoryOrder()
	return len(config.GetSettingsMetadata()[categories[m.SettingsActiveTab]])
}

// formatSettingValue formats a setting value for display
func formatSettingValue(value any, typ string) string {
	if value == nil {
		return "-"
	}

	switch typ {
	case "bool":
		if b, ok := value.(bool); ok {
			if b {
				return "True"
			}
			return "False"
		}
	case "duration":
		if d, ok := value.(time.Duration); ok {
			return d.String()
		}
	case "int64":
		if v, ok := value.(int64); ok {
			return utils.FormatBytes(v)
		}
	case "strings":
		if v, ok := value.([]string); ok {
			if len(v) == 0 {
				return "(none)"
			}
			return strings.Join(v, ", ")
		}
	case "string":
		if s, ok := value.(string); ok {
			if s == "" {
				return "(default)"
			}
			return truncateString(s, 30)
		}
	}

	// Fallback using reflection for numeric types
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int64:
		return fmt.Sprintf("%d", v.Int())
	case reflect.Float64:
		return fmt.Sprintf("%.2f", v.Float())
	default:
		return fmt.Sprintf("%v", value)
	}
}
