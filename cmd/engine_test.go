package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/core"
	"github.com/djyunz/SBSample/internal/testutil"
)

func newTestEngine(t *testing.T) (*engine, string) {
	t.Helper()
	t.Setenv("SBSAMPLE_HOME", t.TempDir())
	root := t.TempDir()

	settings := config.DefaultSettings()
	settings.Performance.ProgressBatchSize = 16 * config.KB
	settings.Performance.ProgressBatchInterval = time.Millisecond

	eng, err := newEngine(context.Background(), settings, engineOptions{
		OutputDir: root,
		LogOut:    io.Discard,
	})
	require.NoError(t, err)
	require.NotNil(t, eng.store, "history should be enabled")
	return eng, root
}

func TestEngine_HeadlessRun(t *testing.T) {
	ok := testutil.NewMockServerT(t,
		testutil.WithFileSize(128*1024),
		testutil.WithRandomData(true),
		testutil.WithContentType("application/pdf"),
		testutil.WithFilename(""),
	)
	missing := testutil.NewMockServerT(t,
		testutil.WithStatusCode(http.StatusNotFound),
		testutil.WithFileSize(16),
		testutil.WithContentType("text/html"),
		testutil.WithFilename(""),
	)
	eng, root := newTestEngine(t)

	var out bytes.Buffer
	failedCh := make(chan int, 1)
	go func() {
		failedCh <- consumeHeadless(&out, eng.events, false)
	}()

	okURL := ok.FileURL("/y.pdf")
	missingURL := missing.FileURL("/gone.pdf")
	accepted := eng.startAll([]string{okURL, missingURL, "not a url"})
	assert.Equal(t, 2, accepted)

	eng.registry.Wait()
	history, err := eng.registry.History()
	require.NoError(t, err)
	assert.Len(t, history, 2)

	eng.Close()

	var failed int
	select {
	case failed = <-failedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after Close")
	}
	assert.Equal(t, 1, failed)

	data, err := os.ReadFile(filepath.Join(root, "MyDownloads", "y.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(ok.Data(), data))

	text := out.String()
	assert.Contains(t, text, "Queued: "+okURL)
	assert.Contains(t, text, "Completed: "+okURL)
	assert.Contains(t, text, "Error: "+missingURL)
	assert.Contains(t, text, "unexpected status code: 404")
}

func TestEngine_RemoteRoundTrip(t *testing.T) {
	server := testutil.NewMockServerT(t,
		testutil.WithFileSize(64*1024),
		testutil.WithContentType("application/pdf"),
		testutil.WithFilename(""),
	)
	eng, root := newTestEngine(t)

	drained := make(chan struct{})
	go func() {
		logEvents(zerolog.Nop(), eng.events)
		close(drained)
	}()
	t.Cleanup(func() {
		eng.Close()
		<-drained
	})

	api := testutil.NewHTTPServerT(t, newAPIHandler(eng.registry, config.DefaultInterceptPatterns, 0, zerolog.Nop()))
	remote := core.NewRemoteDownloadService(api.URL)
	defer func() { _ = remote.Shutdown() }()

	require.NoError(t, remote.Health())

	id, err := remote.Add(server.FileURL("/report.pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = remote.Add("ftp://example.com/report.pdf")
	assert.Error(t, err)

	require.Eventually(t, func() bool {
		items, err := remote.List()
		return err == nil && len(items) == 1 && items[0].Status == "finished"
	}, 10*time.Second, 10*time.Millisecond)

	items, err := remote.List()
	require.NoError(t, err)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, filepath.Join(root, "MyDownloads", "report.pdf"), items[0].LocalFileLocation)
	assert.InDelta(t, 1.0, items[0].Progress, 1e-9)

	history, err := remote.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
}

func TestEngine_NavigateStartsDownload(t *testing.T) {
	server := testutil.NewMockServerT(t,
		testutil.WithFileSize(1024),
		testutil.WithContentType("application/pdf"),
		testutil.WithFilename(""),
	)
	eng, _ := newTestEngine(t)

	drained := make(chan struct{})
	go func() {
		logEvents(zerolog.Nop(), eng.events)
		close(drained)
	}()
	t.Cleanup(func() {
		eng.Close()
		<-drained
	})

	api := testutil.NewHTTPServerT(t, newAPIHandler(eng.registry, config.DefaultInterceptPatterns, 0, zerolog.Nop()))
	remote := core.NewRemoteDownloadService(api.URL)
	defer func() { _ = remote.Shutdown() }()

	cancelled, err := remote.Navigate(server.FileURL("/download/invoice.pdf"))
	require.NoError(t, err)
	assert.True(t, cancelled)

	cancelled, err = remote.Navigate(server.FileURL("/about.html"))
	require.NoError(t, err)
	assert.False(t, cancelled)

	eng.registry.Wait()
	items := eng.registry.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "finished", items[0].Status)
}
