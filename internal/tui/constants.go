package tui

import "time"

const (
	// Timeouts and Intervals
	TickInterval         = 200 * time.Millisecond
	NotificationDuration = 3 * time.Second

	// Input Dimensions
	InputWidth = 60

	// Layout
	ListWidthRatio   = 0.6 // List takes 60% width
	HeaderHeight     = 5
	CardHeight       = 4
	MinListHeight    = 10
	SettingsWidth    = 70
	SettingsHeight   = 18
	DefaultPaddingX  = 1
	DefaultPaddingY  = 0
	ProgressMinWidth = 20
)
