package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/djyunz/SBSample/internal/engine/types"
)

// RemoteDownloadService implements DownloadService for a running instance.
type RemoteDownloadService struct {
	BaseURL string
	Client  *http.Client
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRemoteDownloadService creates a new remote service instance.
func NewRemoteDownloadService(baseURL string) *RemoteDownloadService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteDownloadService{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *RemoteDownloadService) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		// Limit error body read to 1KB to prevent DoS
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, bytes.TrimSpace(bodyBytes))
	}

	return resp, nil
}

func (s *RemoteDownloadService) getJSON(path string, out any) error {
	resp, err := s.doRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health reports whether the instance answers its health check.
func (s *RemoteDownloadService) Health() error {
	var result struct {
		Status string `json:"status"`
		Port   int    `json:"port"`
	}
	if err := s.getJSON("/health", &result); err != nil {
		return err
	}
	if result.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", result.Status)
	}
	return nil
}

// List returns the items of the remote registry.
func (s *RemoteDownloadService) List() ([]types.ItemStatus, error) {
	var items []types.ItemStatus
	if err := s.getJSON("/list", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// History returns finished and failed downloads
func (s *RemoteDownloadService) History() ([]types.DownloadEntry, error) {
	var history []types.DownloadEntry
	if err := s.getJSON("/history", &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Add requests a download on the remote instance.
func (s *RemoteDownloadService) Add(url string) (string, error) {
	resp, err := s.doRequest(http.MethodPost, "/download", map[string]string{"url": url})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result["id"], nil
}

// Navigate reports a browser navigation. It returns true when the
// instance took the URL as a download and the navigation should be cancelled.
func (s *RemoteDownloadService) Navigate(url string) (bool, error) {
	resp, err := s.doRequest(http.MethodPost, "/navigate", map[string]string{"url": url})
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	var result struct {
		Policy string `json:"policy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, err
	}
	return result.Policy == "cancel", nil
}

// Shutdown stops the service.
func (s *RemoteDownloadService) Shutdown() error {
	s.cancel()
	return nil
}
