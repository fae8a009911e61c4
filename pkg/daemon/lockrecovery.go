package daemon

import (
	"os"
	"path/filepath"

	"github.com/jamesainslie/staticgen/pkg/staticgen/logging"
)

// RecoverFromStaleDaemon checks for and cleans up artifacts left by a
// daemon that died without cleanup: the PID file, socket, status file,
// and the manifest's badger lock. Returns nil if cleanup succeeded or
// wasn't needed, ErrDaemonAlreadyRunning if a live daemon owns the PID
// file.
func RecoverFromStaleDaemon(pidPath, socketPath, manifestPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		// No PID file or an unreadable one means nothing to recover.
		return nil
	}

	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	logging.Get("daemon").Warn("cleaning up stale daemon files", "stale_pid", pid)

	// Remove stale files (ignore errors - files may not exist)
	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	_ = os.Remove(StatusPath(socketPath))
	if manifestPath != "" {
		_ = os.Remove(filepath.Join(manifestPath, "LOCK"))
	}

	return nil
}
