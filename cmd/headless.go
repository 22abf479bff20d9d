package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/djyunz/SBSample/internal/engine/events"
	"github.com/djyunz/SBSample/internal/utils"
)

type jsonEvent struct {
	Type  string `json:"type"`
	Event any    `json:"event"`
}

func eventType(msg any) string {
	switch msg.(type) {
	case events.DownloadQueuedMsg:
		return "queued"
	case events.DownloadStartedMsg:
		return "started"
	case events.ProgressMsg:
		return "progress"
	case events.DownloadCompleteMsg:
		return "complete"
	case events.DownloadErrorMsg:
		return "error"
	default:
		return ""
	}
}

// consumeHeadless prints lifecycle messages until msgs is closed and
// returns how many downloads failed. JSON output is one object per line
// and includes progress.
func consumeHeadless(w io.Writer, msgs <-chan any, jsonOut bool) int {
	failed := 0
	enc := json.NewEncoder(w)

	for msg := range msgs {
		if _, ok := msg.(events.DownloadErrorMsg); ok {
			failed++
		}

		if jsonOut {
			if typ := eventType(msg); typ != "" {
				_ = enc.Encode(jsonEvent{Type: typ, Event: msg})
			}
			continue
		}

		switch m := msg.(type) {
		case events.DownloadQueuedMsg:
			fmt.Fprintf(w, "Queued: %s [%s]\n", m.URL, shortID(m.DownloadID))
		case events.DownloadStartedMsg:
			fmt.Fprintf(w, "Started: %s [%s]\n", m.URL, shortID(m.DownloadID))
		case events.DownloadCompleteMsg:
			fmt.Fprintf(w, "Completed: %s [%s] -> %s (in %s)\n", m.URL, shortID(m.DownloadID), m.Location, m.Elapsed.Round(time.Millisecond))
		case events.DownloadErrorMsg:
			fmt.Fprintf(w, "Error: %s [%s] at %s: %v\n", m.URL, shortID(m.DownloadID), utils.FormatPercent(m.Progress), m.Err)
		}
	}
	return failed
}

// logEvents writes lifecycle messages to logger until msgs is closed
func logEvents(logger zerolog.Logger, msgs <-chan any) {
	for msg := range msgs {
		switch m := msg.(type) {
		case events.DownloadQueuedMsg:
			logger.Info().Str("id", m.DownloadID).Str("url", m.URL).Msg("queued")
		case events.DownloadStartedMsg:
			logger.Info().Str("id", m.DownloadID).Str("accept", m.ExpectedContentType).Msg("started")
		case events.ProgressMsg:
			logger.Trace().Str("id", m.DownloadID).Float64("progress", m.Progress).Msg("progress")
		case events.DownloadCompleteMsg:
			logger.Info().Str("id", m.DownloadID).Str("location", m.Location).Dur("elapsed", m.Elapsed).Msg("complete")
		case events.DownloadErrorMsg:
			logger.Warn().Str("id", m.DownloadID).Err(m.Err).Float64("progress", m.Progress).Msg("failed")
		}
	}
}
