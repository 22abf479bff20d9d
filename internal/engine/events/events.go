package events

import (
	"encoding/json"
	"errors"
	"time"
)

// DownloadQueuedMsg is sent when an item enters the registry in the waiting state
type DownloadQueuedMsg struct {
	DownloadID string
	URL        string
}

// DownloadStartedMsg is sent when an item moves to downloading
type DownloadStartedMsg struct {
	DownloadID          string
	URL                 string
	ExpectedContentType string `json:",omitempty"`
}

// ProgressMsg represents a progress update for an item
type ProgressMsg struct {
	DownloadID string
	Progress   float64 // fraction 0-1
	Elapsed    time.Duration
}

// DownloadCompleteMsg signals that the download finished successfully
type DownloadCompleteMsg struct {
	DownloadID string
	URL        string
	Location   string
	Elapsed    time.Duration
}

// DownloadErrorMsg signals that an item failed
type DownloadErrorMsg struct {
	DownloadID string
	URL        string
	Progress   float64
	Err        error
}

func (m DownloadErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		DownloadID string  `json:"DownloadID"`
		URL        string  `json:"URL,omitempty"`
		Progress   float64 `json:"Progress"`
		Err        string  `json:"Err,omitempty"`
	}

	out := encoded{
		DownloadID: m.DownloadID,
		URL:        m.URL,
		Progress:   m.Progress,
	}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}

	return json.Marshal(out)
}

func (m *DownloadErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		DownloadID string          `json:"DownloadID"`
		URL        string          `json:"URL"`
		Progress   float64         `json:"Progress"`
		Err        json.RawMessage `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.DownloadID = aux.DownloadID
	m.URL = aux.URL
	m.Progress = aux.Progress
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	// Most common case: server sends Err as a string.
	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	// Accept non-string payloads (e.g. {}).
	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}
