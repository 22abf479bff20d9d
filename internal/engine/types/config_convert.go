package types

import "github.com/djyunz/SBSample/internal/config"

// ConvertRuntimeConfig converts the app-level RuntimeConfig to the engine-level RuntimeConfig.
func ConvertRuntimeConfig(rc *config.RuntimeConfig) *RuntimeConfig {
	if rc == nil {
		return nil
	}
	return &RuntimeConfig{
		UserAgent:              rc.UserAgent,
		ProxyURL:               rc.ProxyURL,
		SkipTLSVerification:    rc.SkipTLSVerification,
		MaxConcurrentTransfers: rc.MaxConcurrentTransfers,
		WorkerBufferSize:       rc.WorkerBufferSize,
		ProgressBatchSize:      rc.ProgressBatchSize,
		ProgressBatchInterval:  rc.ProgressBatchInterval,
	}
}
