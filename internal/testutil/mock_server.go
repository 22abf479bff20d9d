// Package testutil provides testing utilities for the SBSample download manager.
package testutil

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// MockServer is a configurable HTTP test server for download testing.
type MockServer struct {
	Server *httptest.Server

	// Configuration
	FileSize          int64         // Size of the served file
	StatusCode        int           // Response status (default 200)
	ContentType       string        // Content-Type header value ("" omits the header)
	Filename          string        // Filename in Content-Disposition header ("" omits the header)
	OmitContentLength bool          // Stream the body without a Content-Length header
	RandomData        bool          // If true, serve random data; otherwise serve zeros
	Latency           time.Duration // Artificial latency per request
	ByteLatency       time.Duration // Latency per KB served (simulates slow connection)
	FailAfterBytes    int64         // Fail connection after this many bytes (0 = no fail)

	// Tracking
	RequestCount   atomic.Int64
	BytesServed    atomic.Int64
	ActiveRequests atomic.Int64
	MaxActive      atomic.Int64
	FailedRequests atomic.Int64

	mu          sync.Mutex
	lastHeaders http.Header
	gate        chan struct{}

	// Internal
	data          []byte
	CustomHandler http.HandlerFunc
}

// MockServerOption is a function that configures a MockServer.
type MockServerOption func(*MockServer)

// WithHandler sets a custom request handler.
func WithHandler(h http.HandlerFunc) MockServerOption {
	return func(m *MockServer) {
		m.CustomHandler = h
	}
}

// WithFileSize sets the file size to serve.
func WithFileSize(size int64) MockServerOption {
	return func(m *MockServer) {
		m.FileSize = size
	}
}

// WithStatusCode sets the response status code.
func WithStatusCode(code int) MockServerOption {
	return func(m *MockServer) {
		m.StatusCode = code
	}
}

// WithContentType sets the Content-Type header.
func WithContentType(ct string) MockServerOption {
	return func(m *MockServer) {
		m.ContentType = ct
	}
}

// WithFilename sets the filename in Content-Disposition header.
func WithFilename(name string) MockServerOption {
	return func(m *MockServer) {
		m.Filename = name
	}
}

// WithoutContentLength streams the body with unknown length.
func WithoutContentLength() MockServerOption {
	return func(m *MockServer) {
		m.OmitContentLength = true
	}
}

// WithRandomData enables serving random bytes instead of zeros.
func WithRandomData(random bool) MockServerOption {
	return func(m *MockServer) {
		m.RandomData = random
	}
}

// WithLatency adds artificial latency per request.
func WithLatency(d time.Duration) MockServerOption {
	return func(m *MockServer) {
		m.Latency = d
	}
}

// WithByteLatency adds artificial latency per KB served.
func WithByteLatency(d time.Duration) MockServerOption {
	return func(m *MockServer) {
		m.ByteLatency = d
	}
}

// WithFailAfterBytes causes the connection to fail after serving N bytes.
func WithFailAfterBytes(n int64) MockServerOption {
	return func(m *MockServer) {
		m.FailAfterBytes = n
	}
}

// WithGate holds every response after its headers until Release is called.
func WithGate() MockServerOption {
	return func(m *MockServer) {
		m.gate = make(chan struct{})
	}
}

func newMockServer(opts []MockServerOption) *MockServer {
	m := &MockServer{
		FileSize:    1024 * 1024, // 1MB default
		StatusCode:  http.StatusOK,
		ContentType: "application/octet-stream",
		Filename:    "testfile.bin",
	}

	for _, opt := range opts {
		opt(m)
	}

	// Pre-generate data
	m.data = make([]byte, m.FileSize)
	if m.RandomData {
		_, _ = rand.Read(m.data)
	}
	return m
}

// NewMockServer creates a new mock HTTP server with the given options.
func NewMockServer(opts ...MockServerOption) *MockServer {
	m := newMockServer(opts)
	m.Server = NewHTTPServer(http.HandlerFunc(m.handleRequest))
	return m
}

// NewMockServerT creates a new mock HTTP server and skips the test if binding fails.
// The server is closed when the test ends.
func NewMockServerT(t *testing.T, opts ...MockServerOption) *MockServer {
	t.Helper()
	m := newMockServer(opts)
	m.Server = NewHTTPServerT(t, http.HandlerFunc(m.handleRequest))
	t.Cleanup(m.Close)
	return m
}

// URL returns the server's URL.
func (m *MockServer) URL() string {
	return m.Server.URL
}

// FileURL returns the server URL with path appended, e.g. FileURL("/y.pdf").
func (m *MockServer) FileURL(path string) string {
	return m.Server.URL + path
}

// Data returns the bytes the server serves.
func (m *MockServer) Data() []byte {
	return m.data
}

// LastHeaders returns the request headers of the most recent request.
func (m *MockServer) LastHeaders() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeaders.Clone()
}

// Release lets gated responses continue. Safe to call more than once.
func (m *MockServer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		return
	}
	select {
	case <-m.gate:
	default:
		close(m.gate)
	}
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.Release()
	if m.Server != nil {
		m.Server.Close()
	}
}

// Reset clears all tracking counters.
func (m *MockServer) Reset() {
	m.RequestCount.Store(0)
	m.BytesServed.Store(0)
	m.ActiveRequests.Store(0)
	m.MaxActive.Store(0)
	m.FailedRequests.Store(0)
}

// Stats returns a summary of server statistics.
func (m *MockServer) Stats() MockServerStats {
	return MockServerStats{
		TotalRequests:  m.RequestCount.Load(),
		BytesServed:    m.BytesServed.Load(),
		MaxActive:      m.MaxActive.Load(),
		FailedRequests: m.FailedRequests.Load(),
	}
}

// MockServerStats contains server statistics.
type MockServerStats struct {
	TotalRequests  int64
	BytesServed    int64
	MaxActive      int64
	FailedRequests int64
}

func (m *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.lastHeaders = r.Header.Clone()
	gate := m.gate
	m.mu.Unlock()

	if m.CustomHandler != nil {
		m.CustomHandler(w, r)
		return
	}

	m.RequestCount.Add(1)
	active := m.ActiveRequests.Add(1)
	defer m.ActiveRequests.Add(-1)
	for {
		peak := m.MaxActive.Load()
		if active <= peak || m.MaxActive.CompareAndSwap(peak, active) {
			break
		}
	}

	// Add request latency
	if m.Latency > 0 {
		time.Sleep(m.Latency)
	}

	m.setCommonHeaders(w)
	w.WriteHeader(m.StatusCode)

	if r.Method == http.MethodHead {
		return
	}

	if gate != nil {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	// Write in chunks to support byte latency and fail-after-bytes
	length := m.FileSize
	bytesWritten := int64(0)
	chunkSize := int64(32 * 1024) // 32KB chunks
	for bytesWritten < length {
		if m.FailAfterBytes > 0 && bytesWritten >= m.FailAfterBytes {
			m.FailedRequests.Add(1)
			// Abruptly close connection by not writing more
			panic(http.ErrAbortHandler)
		}

		remaining := length - bytesWritten
		if remaining < chunkSize {
			chunkSize = remaining
		}

		n, err := w.Write(m.data[bytesWritten : bytesWritten+chunkSize])
		if err != nil {
			return // Client disconnected
		}

		bytesWritten += int64(n)
		m.BytesServed.Add(int64(n))
		if f, ok := w.(http.Flusher); ok && m.OmitContentLength {
			f.Flush()
		}

		if m.ByteLatency > 0 {
			time.Sleep(m.ByteLatency * time.Duration(n) / 1024)
		}
	}
}

func (m *MockServer) setCommonHeaders(w http.ResponseWriter) {
	if m.ContentType != "" {
		w.Header().Set("Content-Type", m.ContentType)
	} else {
		// Keep net/http from sniffing one in
		w.Header()["Content-Type"] = nil
	}
	if !m.OmitContentLength {
		w.Header().Set("Content-Length", strconv.FormatInt(m.FileSize, 10))
	}
	if m.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, m.Filename))
	}
}
