package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General     GeneralSettings     `json:"general" mapstructure:"general"`
	Connections ConnectionSettings  `json:"connections" mapstructure:"connections"`
	Performance PerformanceSettings `json:"performance" mapstructure:"performance"`
	Logging     LoggingSettings     `json:"logging" mapstructure:"logging"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DownloadRoot      string   `json:"download_root" mapstructure:"download_root"`
	Subfolder         string   `json:"subfolder" mapstructure:"subfolder"`
	InterceptPatterns []string `json:"intercept_patterns" mapstructure:"intercept_patterns"`
	SniffContentType  bool     `json:"sniff_content_type" mapstructure:"sniff_content_type"`
	Theme             int      `json:"theme" mapstructure:"theme"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// ConnectionSettings contains network connection parameters.
type ConnectionSettings struct {
	UserAgent              string `json:"user_agent" mapstructure:"user_agent"`
	ProxyURL               string `json:"proxy_url" mapstructure:"proxy_url"`
	SkipTLSVerification    bool   `json:"skip_tls_verification" mapstructure:"skip_tls_verification"`
	MaxConcurrentTransfers int    `json:"max_concurrent_transfers" mapstructure:"max_concurrent_transfers"`
}

// PerformanceSettings contains transport tuning parameters.
type PerformanceSettings struct {
	WorkerBufferSize      int           `json:"worker_buffer_size" mapstructure:"worker_buffer_size"`
	ProgressBatchSize     int64         `json:"progress_batch_size" mapstructure:"progress_batch_size"`
	ProgressBatchInterval time.Duration `json:"progress_batch_interval" mapstructure:"progress_batch_interval"`
	EventBufferSize       int           `json:"event_buffer_size" mapstructure:"event_buffer_size"`
}

// LoggingSettings controls the application logger.
type LoggingSettings struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // "console" or "json"
	File   string `json:"file" mapstructure:"file"`     // empty means <state dir>/sbsample.log
}

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text
	Type        string // "string", "int", "int64", "bool", "duration", "float64", "strings"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "download_root", Label: "Download Root", Description: "Directory under which the downloads subfolder is created. Defaults to ~/Documents.", Type: "string"},
			{Key: "subfolder", Label: "Subfolder", Description: "Folder inside the download root that receives finished files.", Type: "string"},
			{Key: "intercept_patterns", Label: "Intercept Patterns", Description: "URL substrings that turn a browser navigation into a download.", Type: "strings"},
			{Key: "sniff_content_type", Label: "Sniff Content", Description: "Guess an extension from file contents when the server declares no MIME type.", Type: "bool"},
			{Key: "theme", Label: "App Theme", Description: "UI Theme (System, Light, Dark).", Type: "int"},
		},
		"Network": {
			{Key: "user_agent", Label: "User Agent", Description: "Custom User-Agent string for HTTP requests. Leave empty for default.", Type: "string"},
			{Key: "proxy_url", Label: "Proxy URL", Description: "HTTP/HTTPS/SOCKS5 proxy URL (e.g. http://127.0.0.1:8080). Leave empty to use system default.", Type: "string"},
			{Key: "skip_tls_verification", Label: "Skip TLS Verify", Description: "Accept invalid TLS certificates. Only for testing.", Type: "bool"},
			{Key: "max_concurrent_transfers", Label: "Max Transfers", Description: "Transfers allowed on the wire at once; 0 means unlimited.", Type: "int"},
		},
		"Performance": {
			{Key: "worker_buffer_size", Label: "Worker Buffer Size", Description: "I/O buffer size per transfer in bytes.", Type: "int"},
			{Key: "progress_batch_size", Label: "Progress Batch Size", Description: "Bytes received before a progress report is sent.", Type: "int64"},
			{Key: "progress_batch_interval", Label: "Progress Interval", Description: "Time between progress reports (e.g., 200ms).", Type: "duration"},
			{Key: "event_buffer_size", Label: "Event Buffer", Description: "Capacity of the channel feeding lifecycle events to the UI.", Type: "int"},
		},
		"Logging": {
			{Key: "level", Label: "Log Level", Description: "trace, debug, info, warn or error.", Type: "string"},
			{Key: "format", Label: "Log Format", Description: "console or json.", Type: "string"},
			{Key: "file", Label: "Log File", Description: "Log file path. Leave empty for the default in the state directory.", Type: "string"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Network", "Performance", "Logging"}
}

const (
	KB = 1024
	MB = 1024 * KB
)

// DefaultInterceptPatterns are the URL fragments treated as file downloads
// when a browser navigation is reported.
var DefaultInterceptPatterns = []string{"firsthand/download.do", "/download/"}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			DownloadRoot:      GetDocumentsDir(),
			Subfolder:         "MyDownloads",
			InterceptPatterns: append([]string(nil), DefaultInterceptPatterns...),
			SniffContentType:  false,
			Theme:             ThemeAdaptive,
		},
		Connections: ConnectionSettings{
			UserAgent:              "", // Empty means use default UA
			MaxConcurrentTransfers: 0,
		},
		Performance: PerformanceSettings{
			WorkerBufferSize:      32 * KB,
			ProgressBatchSize:     1 * MB,
			ProgressBatchInterval: 200 * time.Millisecond,
			EventBufferSize:       100,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetAppDir returns the directory holding settings and state.
// SBSAMPLE_HOME overrides the platform config directory.
func GetAppDir() string {
	if dir := os.Getenv("SBSAMPLE_HOME"); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "sbsample")
}

// GetStateDir returns the directory for the history database, lock, port and log files.
func GetStateDir() string {
	return filepath.Join(GetAppDir(), "state")
}

// GetDocumentsDir returns the user's documents directory, the default download root.
func GetDocumentsDir() string {
	if dir := os.Getenv("XDG_DOCUMENTS_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "Documents")
	}
	return filepath.Join(home, "Documents")
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from path, layering the file over the
// defaults and SBSAMPLE_* environment variables over the file.
func LoadSettingsFrom(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("SBSAMPLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return settings, nil
}

func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("general.download_root", d.General.DownloadRoot)
	v.SetDefault("general.subfolder", d.General.Subfolder)
	v.SetDefault("general.intercept_patterns", d.General.InterceptPatterns)
	v.SetDefault("general.sniff_content_type", d.General.SniffContentType)
	v.SetDefault("general.theme", d.General.Theme)

	v.SetDefault("connections.user_agent", d.Connections.UserAgent)
	v.SetDefault("connections.proxy_url", d.Connections.ProxyURL)
	v.SetDefault("connections.skip_tls_verification", d.Connections.SkipTLSVerification)
	v.SetDefault("connections.max_concurrent_transfers", d.Connections.MaxConcurrentTransfers)

	v.SetDefault("performance.worker_buffer_size", d.Performance.WorkerBufferSize)
	v.SetDefault("performance.progress_batch_size", d.Performance.ProgressBatchSize)
	v.SetDefault("performance.progress_batch_interval", d.Performance.ProgressBatchInterval)
	v.SetDefault("performance.event_buffer_size", d.Performance.EventBufferSize)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	return SaveSettingsTo(GetSettingsPath(), s)
}

// SaveSettingsTo writes s to path through a temp file and rename.
func SaveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// DownloadsDir returns the absolute folder finished files are placed in.
func (s *Settings) DownloadsDir() string {
	return filepath.Join(s.General.DownloadRoot, s.General.Subfolder)
}

// RuntimeConfig carries the settings the download engine reads at startup.
type RuntimeConfig struct {
	UserAgent              string
	ProxyURL               string
	SkipTLSVerification    bool
	MaxConcurrentTransfers int
	WorkerBufferSize       int
	ProgressBatchSize      int64
	ProgressBatchInterval  time.Duration
}

// ToRuntimeConfig creates a RuntimeConfig from user Settings
func (s *Settings) ToRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		UserAgent:              s.Connections.UserAgent,
		ProxyURL:               s.Connections.ProxyURL,
		SkipTLSVerification:    s.Connections.SkipTLSVerification,
		MaxConcurrentTransfers: s.Connections.MaxConcurrentTransfers,
		WorkerBufferSize:       s.Performance.WorkerBufferSize,
		ProgressBatchSize:      s.Performance.ProgressBatchSize,
		ProgressBatchInterval:  s.Performance.ProgressBatchInterval,
	}
}
