package tui

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/engine/types"
)

type UIState int //Defines UIState as int to be used in rootModel

const (
	DashboardState UIState = iota //DashboardState is 0 increments after each line
	InputState                    //InputState is 1
	SettingsState                 //SettingsState is 2
)

// Tabs of the download list
const (
	TabQueued = iota
	TabActive
	TabDone
)

// Starter requests downloads. The registry implements it.
type Starter interface {
	StartDownload(rawURL string) (id string, ok bool)
}

type DownloadModel struct {
	ID       string
	URL      string
	Filename string
	Progress float64
	State    types.StateKind
	Location string
	Err      error

	StartTime time.Time
	Elapsed   time.Duration

	progress progress.Model
}

func (d *DownloadModel) done() bool {
	return d.State == types.StateFinished || d.State == types.StateFailed
}

type tickMsg time.Time

type RootModel struct {
	service  Starter
	events   <-chan any
	Settings *config.Settings

	downloads []*DownloadModel
	width     int
	height    int
	state     UIState
	input     textinput.Model
	help      help.Model

	// Navigation
	cursor    int
	activeTab int

	notification      string
	notificationUntil time.Time

	readClipboard func() (string, error)

	SettingsActiveTab   int
	SettingsSelectedRow int
}

// NewDownloadModel creates the row for a download the registry announced
func NewDownloadModel(id, url string) *DownloadModel {
	return &DownloadModel{
		ID:        id,
		URL:       url,
		Filename:  "Queued",
		State:     types.StateWaiting,
		StartTime: time.Now(),
		progress:  progress.New(progress.WithDefaultGradient()),
	}
}

// InitialRootModel builds the dashboard. events is the registry's message
// channel; settings may be nil.
func InitialRootModel(service Starter, events <-chan any, settings *config.Settings) RootModel {
	urlInput := textinput.New()
	urlInput.Placeholder = "https://example.com/report.pdf"
	urlInput.Width = InputWidth
	urlInput.Prompt = ""

	if settings == nil {
		settings = config.DefaultSettings()
	}

	return RootModel{
		service:       service,
		events:        events,
		Settings:      settings,
		downloads:     make([]*DownloadModel, 0),
		input:         urlInput,
		help:          help.New(),
		state:         DashboardState,
		readClipboard: clipboard.ReadAll,
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(listenForActivity(m.events), tick())
}

func listenForActivity(sub <-chan any) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-sub
		if !ok {
			return nil
		}
		return msg
	}
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// find returns the row for id, creating it when the registry announced
// the id through a message that arrived first.
func (m *RootModel) find(id, url string) *DownloadModel {
	for _, d := range m.downloads {
		if d.ID == id {
			return d
		}
	}
	d := NewDownloadModel(id, url)
	m.downloads = append(m.downloads, d)
	return d
}

// visibleDownloads returns the rows of the active tab in insertion order
func (m RootModel) visibleDownloads() []*DownloadModel {
	var out []*DownloadModel
	for _, d := range m.downloads {
		if tabOf(d) == m.activeTab {
			out = append(out, d)
		}
	}
	return out
}

func tabOf(d *DownloadModel) int {
	switch {
	case d.done():
		return TabDone
	case d.State == types.StateDownloading:
		return TabActive
	default:
		return TabQueued
	}
}

// GetSelectedDownload returns the row under the cursor in the active tab
func (m RootModel) GetSelectedDownload() *DownloadModel {
	visible := m.visibleDownloads()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return nil
	}
	return visible[m.cursor]
}

// CalculateStats counts rows per tab
func (m RootModel) CalculateStats() (queued, active, done int) {
	for _, d := range m.downloads {
		switch tabOf(d) {
		case TabDone:
			done++
		case TabActive:
			active++
		default:
			queued++
		}
	}
	return
}
