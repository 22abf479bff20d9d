package types

import (
	"time"
)

// Size constants
const (
	KB = 1024
	MB = 1024 * KB
)

// Placement defaults
const (
	// DefaultSubfolder is created under the download root for placed files
	DefaultSubfolder = "MyDownloads"

	// TempFilePattern names transport temp files while a body is being received
	TempFilePattern = "sbsample-download-*.tmp"
)

// Transport tuning
const (
	WorkerBuffer = 32 * KB

	// Batching constants for progress reports
	ProgressBatchSize     = 1 * MB                 // Report once this many bytes arrived
	ProgressBatchInterval = 200 * time.Millisecond // Or once this much time passed

	DialTimeout                  = 10 * time.Second
	KeepAliveDuration            = 30 * time.Second
	DefaultMaxIdleConns          = 100
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
)

// Channel buffer sizes
const (
	EventChannelBuffer = 100
)

// RuntimeConfig holds dynamic settings that can override defaults
type RuntimeConfig struct {
	UserAgent              string
	ProxyURL               string
	SkipTLSVerification    bool
	MaxConcurrentTransfers int
	WorkerBufferSize       int
	ProgressBatchSize      int64
	ProgressBatchInterval  time.Duration
}

// GetUserAgent returns the configured user agent or the default
func (r *RuntimeConfig) GetUserAgent() string {
	if r == nil || r.UserAgent == "" {
		return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return r.UserAgent
}

// GetMaxConcurrentTransfers returns the transfer slot limit, 0 meaning unlimited
func (r *RuntimeConfig) GetMaxConcurrentTransfers() int {
	if r == nil || r.MaxConcurrentTransfers < 0 {
		return 0
	}
	return r.MaxConcurrentTransfers
}

// GetWorkerBufferSize returns configured value or default
func (r *RuntimeConfig) GetWorkerBufferSize() int {
	if r == nil || r.WorkerBufferSize <= 0 {
		return WorkerBuffer
	}
	return r.WorkerBufferSize
}

// GetProgressBatchSize returns configured value or default
func (r *RuntimeConfig) GetProgressBatchSize() int64 {
	if r == nil || r.ProgressBatchSize <= 0 {
		return ProgressBatchSize
	}
	return r.ProgressBatchSize
}

// GetProgressBatchInterval returns configured value or default
func (r *RuntimeConfig) GetProgressBatchInterval() time.Duration {
	if r == nil || r.ProgressBatchInterval <= 0 {
		return ProgressBatchInterval
	}
	return r.ProgressBatchInterval
}
