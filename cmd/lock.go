package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/djyunz/SBSample/internal/config"
)

var instanceLock *flock.Flock

// AcquireLock takes the single-instance lock in the state directory.
// It returns false when another process already holds it.
func AcquireLock() (bool, error) {
	dir := config.GetStateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create state dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "sbsample.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return false, err
	}
	if locked {
		instanceLock = lock
	}
	return locked, nil
}

// ReleaseLock releases the lock taken by AcquireLock
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}
