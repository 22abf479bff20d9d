package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/djyunz/SBSample/internal/config"
)

var (
	// Colors
	ColorNeonPink   = lipgloss.AdaptiveColor{Light: "#d6336c", Dark: "#ff79c6"}
	ColorNeonPurple = lipgloss.AdaptiveColor{Light: "#6f42c1", Dark: "#bd93f9"}
	ColorNeonCyan   = lipgloss.AdaptiveColor{Light: "#0c8599", Dark: "#8be9fd"}
	ColorGray       = lipgloss.AdaptiveColor{Light: "#adb5bd", Dark: "#44475a"}
	ColorLightGray  = lipgloss.AdaptiveColor{Light: "#495057", Dark: "#a9b1d6"}
	ColorText       = lipgloss.AdaptiveColor{Light: "#212529", Dark: "#f8f8f2"}

	ColorStateWaiting     = lipgloss.AdaptiveColor{Light: "#e67700", Dark: "#ffb86c"}
	ColorStateDownloading = ColorNeonCyan
	ColorStateDone        = lipgloss.AdaptiveColor{Light: "#2b8a3e", Dark: "#50fa7b"}
	ColorStateError       = lipgloss.AdaptiveColor{Light: "#c92a2a", Dark: "#ff5555"}

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPurple).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Italic(true)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(DefaultPaddingY, DefaultPaddingX)

	ActiveTabStyle = TabStyle.
			Foreground(ColorNeonPink).
			Bold(true).
			Underline(true)

	// Card inside the list
	CardTitleStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	SelectedCardTitleStyle = CardTitleStyle.
				Foreground(ColorNeonPink)

	CardStatsStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Italic(true)

	StatsLabelStyle = lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Width(11)

	StatsValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	NotificationStyle = lipgloss.NewStyle().
				Foreground(ColorNeonPink).
				Bold(true)
)

// ApplyTheme points lipgloss at the configured background. The adaptive
// theme asks the terminal through termenv.
func ApplyTheme(theme int) {
	switch theme {
	case config.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case config.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}
}
