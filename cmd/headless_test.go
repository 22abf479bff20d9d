package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djyunz/SBSample/internal/engine/events"
)

func sampleMessages() chan any {
	msgs := make(chan any, 8)
	msgs <- events.DownloadQueuedMsg{DownloadID: "0123456789abcdef", URL: "https://example.com/a.pdf"}
	msgs <- events.DownloadStartedMsg{DownloadID: "0123456789abcdef", URL: "https://example.com/a.pdf", ExpectedContentType: "application/pdf"}
	msgs <- events.ProgressMsg{DownloadID: "0123456789abcdef", Progress: 0.5}
	msgs <- events.DownloadCompleteMsg{DownloadID: "0123456789abcdef", URL: "https://example.com/a.pdf", Location: "/tmp/MyDownloads/a.pdf", Elapsed: 1500 * time.Millisecond}
	msgs <- events.DownloadErrorMsg{DownloadID: "fedcba9876543210", URL: "https://example.com/b.pdf", Progress: 0.25, Err: errors.New("unexpected status code: 500")}
	msgs <- "ignored"
	close(msgs)
	return msgs
}

func TestConsumeHeadless_Text(t *testing.T) {
	var out bytes.Buffer
	failed := consumeHeadless(&out, sampleMessages(), false)

	assert.Equal(t, 1, failed)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4, out.String())
	assert.Equal(t, "Queued: https://example.com/a.pdf [01234567]", lines[0])
	assert.Equal(t, "Started: https://example.com/a.pdf [01234567]", lines[1])
	assert.Equal(t, "Completed: https://example.com/a.pdf [01234567] -> /tmp/MyDownloads/a.pdf (in 1.5s)", lines[2])
	assert.Equal(t, "Error: https://example.com/b.pdf [fedcba98] at  25%: unexpected status code: 500", lines[3])
}

func TestConsumeHeadless_JSON(t *testing.T) {
	var out bytes.Buffer
	failed := consumeHeadless(&out, sampleMessages(), true)
	assert.Equal(t, 1, failed)

	var types []string
	var errEvent map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var line struct {
			Type  string         `json:"type"`
			Event map[string]any `json:"event"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		types = append(types, line.Type)
		if line.Type == "error" {
			errEvent = line.Event
		}
	}

	assert.Equal(t, []string{"queued", "started", "progress", "complete", "error"}, types)
	require.NotNil(t, errEvent)
	assert.Equal(t, "unexpected status code: 500", errEvent["Err"])
	assert.Equal(t, "fedcba9876543210", errEvent["DownloadID"])
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "01234567", shortID("0123456789"))
}
