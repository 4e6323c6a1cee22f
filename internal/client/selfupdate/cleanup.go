package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const pidPollInterval = 100 * time.Millisecond

// WaitForExit polls until pid is gone, the wait elapses or ctx ends. It
// reports whether the process exited.
func WaitForExit(ctx context.Context, pid int32, wait time.Duration) bool {
	if pid <= 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(pidPollInterval)
	defer ticker.Stop()

	for {
		exists, err := process.PidExistsWithContext(ctx, pid)
		if err == nil && !exists {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// Cleanup removes the temp names left by a previous successful replace. When
// oldPID is set it first waits for that process to exit, since some
// platforms keep a running executable locked.
func Cleanup(ctx context.Context, exePath string, companions []string, oldPID int32, wait time.Duration) error {
	if oldPID > 0 && !WaitForExit(ctx, oldPID, wait) {
		return fmt.Errorf("cleanup: process %d still running", oldPID)
	}

	dir := filepath.Dir(exePath)
	paths := []string{exePath}
	for _, c := range companions {
		if c == "" {
			continue
		}
		if !filepath.IsAbs(c) {
			c = filepath.Join(dir, c)
		}
		paths = append(paths, c)
	}

	var errs []error
	for _, p := range paths {
		if err := os.Remove(TempPath(p)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("cleanup %q: %w", TempPath(p), err))
		}
	}
	return errors.Join(errs...)
}
