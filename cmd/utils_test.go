package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/engine/types"
)

func TestReadURLsFromFile(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("a", 100*1024) + ".pdf"
	content := strings.Join([]string{
		"# reports",
		"https://example.com/a.pdf",
		"",
		"   https://example.com/b.pdf   ",
		"#https://example.com/skipped.pdf",
		long,
	}, "\n")
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	urls, err := readURLsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.pdf", "https://example.com/b.pdf", long}, urls)
}

func TestReadURLsFromFile_Missing(t *testing.T) {
	_, err := readURLsFromFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestCollectURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://example.com/b.pdf\n"), 0o644))

	urls, err := collectURLs([]string{"https://example.com/a.pdf"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.pdf", "https://example.com/b.pdf"}, urls)

	urls, err = collectURLs([]string{"https://example.com/a.pdf"}, "")
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestActivePortFile(t *testing.T) {
	t.Setenv("SBSAMPLE_HOME", t.TempDir())

	assert.Equal(t, 0, readActivePort())
	_, err := resolveBaseURL("")
	assert.ErrorIs(t, err, errNoInstance)

	require.NoError(t, saveActivePort(9123))
	assert.Equal(t, 9123, readActivePort())

	base, err := resolveBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9123", base)

	removeActivePort()
	assert.Equal(t, 0, readActivePort())
}

func TestResolveBaseURL_Host(t *testing.T) {
	base, err := resolveBaseURL("10.0.0.2:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8080", base)

	base, err = resolveBaseURL("https://box.local/")
	require.NoError(t, err)
	assert.Equal(t, "https://box.local", base)
}

func TestLock_SingleInstance(t *testing.T) {
	t.Setenv("SBSAMPLE_HOME", t.TempDir())

	ok, err := AcquireLock()
	require.NoError(t, err)
	require.True(t, ok)

	other := flock.New(filepath.Join(config.GetStateDir(), "sbsample.lock"))
	locked, err := other.TryLock()
	require.NoError(t, err)
	assert.False(t, locked, "second holder must be refused while the lock is held")

	require.NoError(t, ReleaseLock())

	locked, err = other.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)
	require.NoError(t, other.Unlock())
}

func TestAddURLs(t *testing.T) {
	svc := &fakeService{}
	var out, errOut bytes.Buffer

	err := addURLs(&out, &errOut, svc, []string{"https://example.com/a.pdf", "a.pdf"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out.String(), "Queued: https://example.com/a.pdf [id-1]")
	assert.Contains(t, errOut.String(), "Error adding a.pdf")
}

func TestPrintItemsAndHistory(t *testing.T) {
	var out bytes.Buffer
	printItems(&out, nil)
	assert.Equal(t, "No downloads.\n", out.String())

	out.Reset()
	printItems(&out, []types.ItemStatus{
		{ID: "0123456789", URL: "https://example.com/a.pdf", Status: "failed", Progress: 0.4, Error: "unexpected status code: 500"},
	})
	assert.Contains(t, out.String(), "01234567")
	assert.Contains(t, out.String(), "unexpected status code: 500")

	out.Reset()
	printHistory(&out, []types.DownloadEntry{
		{ID: "aaaaaaaaaa", URL: "https://example.com/a.pdf", Status: "finished", DestPath: "/tmp/MyDownloads/a.pdf", TimeTaken: 1200},
		{ID: "bbbbbbbbbb", URL: "https://example.com/b.pdf", Status: "failed", Error: "boom", Progress: 0.5},
	})
	text := out.String()
	assert.Contains(t, text, "/tmp/MyDownloads/a.pdf")
	assert.Contains(t, text, "1.2s")
	assert.Contains(t, text, "https://example.com/b.pdf (boom at  50%)")
}

func TestSettingsPathCommand(t *testing.T) {
	t.Setenv("SBSAMPLE_HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"settings", "path"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, config.GetSettingsPath()+"\n", out.String())
}
