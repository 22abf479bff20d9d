package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/engine/events"
	"github.com/djyunz/SBSample/internal/engine/types"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case events.DownloadQueuedMsg:
		m.find(msg.DownloadID, msg.URL)
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadStartedMsg:
		d := m.find(msg.DownloadID, msg.URL)
		if !d.done() {
			d.State = types.StateDownloading
			d.Filename = "Downloading"
			d.StartTime = time.Now()
		}
		cmds = append(cmds, listenForActivity(m.events))

	case events.ProgressMsg:
		d := m.find(msg.DownloadID, "")
		// Late progress after a terminal message is ignored
		if !d.done() && msg.Progress >= d.Progress {
			d.Progress = msg.Progress
			d.Elapsed = msg.Elapsed
			cmds = append(cmds, d.progress.SetPercent(d.Progress))
		}
		cmds = append(cmds, listenForActivity(m.events))

	case events.DownloadCompleteMsg:
		d := m.find(msg.DownloadID, msg.URL)
		d.State = types.StateFinished
		d.Progress = 1.0
		d.Location = msg.Location
		d.Filename = filepath.Base(msg.Location)
		d.Elapsed = msg.Elapsed
		cmds = append(cmds, d.progress.SetPercent(1.0), listenForActivity(m.events))

	case events.DownloadErrorMsg:
		d := m.find(msg.DownloadID, msg.URL)
		d.State = types.StateFailed
		d.Err = msg.Err
		d.Filename = "Failed"
		cmds = append(cmds, listenForActivity(m.events))

	case tickMsg:
		if m.notification != "" && time.Time(msg).After(m.notificationUntil) {
			m.notification = ""
		}
		for _, d := range m.downloads {
			if d.State == types.StateDownloading {
				d.Elapsed = time.Since(d.StartTime)
			}
		}
		cmds = append(cmds, tick())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case DashboardState:
			return m.updateDashboard(msg)
		case InputState:
			return m.updateInput(msg)
		case SettingsState:
			return m.updateSettings(msg)
		}
	}

	// Propagate messages to progress bars
	for i := range m.downloads {
		newModel, cmd := m.downloads[i].progress.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			m.downloads[i].progress = p
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DashboardKeys.Quit):
		return m, tea.Quit

	case key.Matches(msg, DashboardKeys.Add):
		m.state = InputState
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, DashboardKeys.Paste):
		text, err := m.readClipboard()
		if err != nil {
			m.notify("Clipboard unavailable: " + err.Error())
			return m, nil
		}
		m.submit(text)
		return m, nil

	case key.Matches(msg, DashboardKeys.Settings):
		m.state = SettingsState
		m.SettingsActiveTab = 0
		m.SettingsSelectedRow = 0
		return m, nil

	case key.Matches(msg, DashboardKeys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, DashboardKeys.NextTab):
		m.activeTab = (m.activeTab + 1) % 3
		m.cursor = 0
		return m, nil

	case key.Matches(msg, DashboardKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, DashboardKeys.Down):
		if m.cursor < len(m.visibleDownloads())-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m RootModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, InputKeys.Cancel):
		m.state = DashboardState
		m.input.Blur()
		return m, nil

	case key.Matches(msg, InputKeys.Submit):
		url := strings.TrimSpace(m.input.Value())
		if url == "" {
			// URL is mandatory - stay in the popup
			return m, nil
		}
		m.state = DashboardState
		m.input.Blur()
		m.submit(url)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m RootModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	categories := config.CategoryOrder()

	switch {
	case key.Matches(msg, SettingsKeys.Close):
		m.state = DashboardState
	case key.Matches(msg, SettingsKeys.NextTab):
		m.SettingsActiveTab = (m.SettingsActiveTab + 1) % len(categories)
		m.SettingsSelectedRow = 0
	case key.Matches(msg, SettingsKeys.PrevTab):
		m.SettingsActiveTab = (m.SettingsActiveTab + len(categories) - 1) % len(categories)
		m.SettingsSelectedRow = 0
	case key.Matches(msg, SettingsKeys.Up):
		if m.SettingsSelectedRow > 0 {
			m.SettingsSelectedRow--
		}
	case key.Matches(msg, SettingsKeys.Down):
		if m.SettingsSelectedRow < m.getSettingsCount()-1 {
			m.SettingsSelectedRow++
		}
	}
	return m, nil
}

// submit hands url to the registry. Rows appear once the registry reports them.
func (m *RootModel) submit(url string) {
	url = strings.TrimSpace(url)
	if m.service == nil {
		return
	}
	if _, ok := m.service.StartDownload(url); !ok {
		m.notify(fmt.Sprintf("Not a download URL: %s", truncateString(url, 40)))
		return
	}
	m.notify("Download added")
}

func (m *RootModel) notify(text string) {
	m.notification = text
	m.notificationUntil = time.Now().Add(NotificationDuration)
}
