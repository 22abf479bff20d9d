package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/core"
	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/testutil"
)

type fakeService struct {
	mu      sync.Mutex
	added   []string
	items   []types.ItemStatus
	history []types.DownloadEntry
	listErr error
}

func (f *fakeService) List() ([]types.ItemStatus, error) {
	return f.items, f.listErr
}

func (f *fakeService) History() ([]types.DownloadEntry, error) {
	return f.history, nil
}

func (f *fakeService) Add(url string) (string, error) {
	if !strings.HasPrefix(url, "http") {
		return "", fmt.Errorf("%w: %s", core.ErrRejected, url)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, url)
	return fmt.Sprintf("id-%d", len(f.added)), nil
}

func (f *fakeService) Shutdown() error { return nil }

func (f *fakeService) addedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...)
}

func newTestAPI(svc core.DownloadService) http.Handler {
	return newAPIHandler(svc, config.DefaultInterceptPatterns, 8080, zerolog.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAPI_Health(t *testing.T) {
	rec := doJSON(t, newTestAPI(&fakeService{}), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeMap(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 8080, body["port"])
}

func TestConnect_AgainstAPI(t *testing.T) {
	svc := &fakeService{items: []types.ItemStatus{{ID: "a", URL: "https://example.com/a.pdf", Status: "queued"}}}
	api := testutil.NewHTTPServerT(t, newTestAPI(svc))

	remote, err := connect(api.URL)
	require.NoError(t, err)
	defer func() { _ = remote.Shutdown() }()

	items, err := remote.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestConnect_NotResponding(t *testing.T) {
	api := testutil.NewHTTPServerT(t, http.NotFoundHandler())

	_, err := connect(api.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not responding")
}

func TestAPI_Download(t *testing.T) {
	svc := &fakeService{}
	h := newTestAPI(svc)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"url":"https://example.com/a.pdf"}`, http.StatusOK},
		{"rejected url", `{"url":"a.pdf"}`, http.StatusBadRequest},
		{"missing url", `{}`, http.StatusBadRequest},
		{"invalid json", `{"url":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/download", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, []string{"https://example.com/a.pdf"}, svc.addedURLs())
}

func TestAPI_DownloadResponse(t *testing.T) {
	rec := doJSON(t, newTestAPI(&fakeService{}), http.MethodPost, "/download", `{"url":"https://example.com/a.pdf"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, "id-1", body["id"])
}

func TestAPI_DownloadRequiresPost(t *testing.T) {
	rec := doJSON(t, newTestAPI(&fakeService{}), http.MethodGet, "/download", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPI_Navigate(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantPolicy string
		wantAdded  bool
	}{
		{"download path", "https://example.com/download/report.pdf", "cancel", true},
		{"firsthand endpoint", "https://portal.example.com/firsthand/download.do?id=7", "cancel", true},
		{"ordinary page", "https://example.com/index.html", "allow", false},
		{"matching but unusable", "/download/relative.pdf", "allow", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			body, _ := json.Marshal(DownloadRequest{URL: tt.url})
			rec := doJSON(t, newTestAPI(svc), http.MethodPost, "/navigate", string(body))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantPolicy, decodeMap(t, rec)["policy"])
			if tt.wantAdded {
				assert.Equal(t, []string{tt.url}, svc.addedURLs())
			} else {
				assert.Empty(t, svc.addedURLs())
			}
		})
	}
}

func TestAPI_ListAndHistory(t *testing.T) {
	svc := &fakeService{
		items: []types.ItemStatus{
			{ID: "a", URL: "https://example.com/a.pdf", Status: "downloading", Progress: 0.5},
		},
		history: []types.DownloadEntry{
			{ID: "b", URL: "https://example.com/b.pdf", Status: "finished", DestPath: "/tmp/MyDownloads/b.pdf"},
		},
	}
	h := newTestAPI(svc)

	rec := doJSON(t, h, http.MethodGet, "/list", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []types.ItemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "downloading", items[0].Status)
	assert.InDelta(t, 0.5, items[0].Progress, 1e-9)

	rec = doJSON(t, h, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []types.DownloadEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "/tmp/MyDownloads/b.pdf", history[0].DestPath)
}

func TestAPI_ListError(t *testing.T) {
	rec := doJSON(t, newTestAPI(&fakeService{listErr: errors.New("boom")}), http.MethodGet, "/list", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPI_CORSPreflight(t *testing.T) {
	rec := doJSON(t, newTestAPI(&fakeService{}), http.MethodOptions, "/download", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
