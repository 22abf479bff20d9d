package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/djyunz/SBSample/internal/config"
	"github.com/djyunz/SBSample/internal/core"
	"github.com/djyunz/SBSample/internal/dispatch"
	"github.com/djyunz/SBSample/internal/download"
	"github.com/djyunz/SBSample/internal/engine/placement"
	"github.com/djyunz/SBSample/internal/engine/state"
	"github.com/djyunz/SBSample/internal/engine/transport"
	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/logging"
)

// engine is the in-process download stack behind the TUI, get and server modes
type engine struct {
	settings *config.Settings
	logger   zerolog.Logger
	logClose io.Closer

	queue    *dispatch.Queue
	store    *state.Store
	manager  *download.Manager
	registry *core.Registry
	events   chan any
}

type engineOptions struct {
	// OutputDir replaces the configured download root
	OutputDir string
	// LogOut sends logs to this writer instead of the log file
	LogOut io.Writer
	// NoHistory skips opening the history database
	NoHistory bool
}

// loadSettings reads the settings file, falling back to defaults
func loadSettings() *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		return config.DefaultSettings()
	}
	return settings
}

func newLogger(settings *config.Settings, out io.Writer) (zerolog.Logger, io.Closer, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(settings.Logging.Level)
	cfg.Format = settings.Logging.Format
	if out != nil {
		cfg.Out = out
	} else {
		cfg.File = settings.Logging.File
		if cfg.File == "" {
			cfg.File = filepath.Join(config.GetStateDir(), "sbsample.log")
		}
	}
	return logging.New(cfg)
}

// newEngine wires settings into queue, manager, history and registry
func newEngine(ctx context.Context, settings *config.Settings, opts engineOptions) (*engine, error) {
	logger, logClose, err := newLogger(settings, opts.LogOut)
	if err != nil {
		return nil, err
	}

	e := &engine{
		settings: settings,
		logger:   logger,
		logClose: logClose,
		queue:    dispatch.NewQueue(),
	}

	if !opts.NoHistory {
		store, err := state.Open(ctx, filepath.Join(config.GetStateDir(), "history.db"))
		if err != nil {
			// History is optional; downloads still work without it
			logger.Warn().Err(err).Msg("history disabled")
		} else {
			e.store = store
		}
	}

	root := settings.General.DownloadRoot
	if opts.OutputDir != "" {
		root = opts.OutputDir
	}

	e.manager = download.NewManager(download.Options{
		Queue: e.queue,
		Transport: transport.Config{
			Runtime: types.ConvertRuntimeConfig(settings.ToRuntimeConfig()),
		},
		Policy: placement.NewPolicy(root, settings.General.Subfolder, settings.General.SniffContentType),
		Logger: logger,
	})

	bufSize := settings.Performance.EventBufferSize
	if bufSize <= 0 {
		bufSize = types.EventChannelBuffer
	}
	e.events = make(chan any, bufSize)

	regOpts := core.RegistryOptions{
		Queue:      e.queue,
		Downloader: e.manager,
		Events:     e.events,
		Logger:     logger,
	}
	if e.store != nil {
		regOpts.History = e.store
	}
	e.registry = core.NewRegistry(regOpts)

	logger.Info().
		Str("root", root).
		Str("subfolder", settings.General.Subfolder).
		Int("max_transfers", settings.Connections.MaxConcurrentTransfers).
		Msg("engine ready")
	return e, nil
}

// startAll hands every URL to the registry and returns how many were accepted
func (e *engine) startAll(urls []string) int {
	accepted := 0
	for _, u := range urls {
		if _, ok := e.registry.StartDownload(u); ok {
			accepted++
		} else {
			fmt.Fprintf(os.Stderr, "Skipping invalid URL: %s\n", u)
		}
	}
	return accepted
}

// Close cancels in-flight downloads and releases every resource. The
// events channel is closed once no more messages can be sent on it.
func (e *engine) Close() {
	_ = e.registry.Shutdown()
	close(e.events)
	e.queue.Close()
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("closing history")
		}
	}
	e.logger.Info().Msg("engine stopped")
	_ = e.logClose.Close()
}
