package core

import (
	"github.com/djyunz/SBSample/internal/engine/types"
)

// DownloadService defines the interface for interacting with the download engine.
// This abstraction allows the CLI to work against the in-process registry
// or against a running instance over HTTP.
type DownloadService interface {
	// List returns a snapshot of every item in the registry.
	List() ([]types.ItemStatus, error)

	// History returns finished and failed downloads.
	History() ([]types.DownloadEntry, error)

	// Add requests a download and returns the new item's id.
	Add(url string) (string, error)

	// Shutdown handles graceful shutdown of the service
	Shutdown() error
}

var (
	_ DownloadService = (*Registry)(nil)
	_ DownloadService = (*RemoteDownloadService)(nil)
)
