package state

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// lockInfo is the advisory lock file format written next to the state file.
// It prevents overlapping scheduled runs from racing on load/mutate/persist
// and losing updates.
type lockInfo struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// AcquireLock claims the advisory lock for a state file, writing
// <statePath>.lock. A lock held by a live local process rejects this run;
// a lock whose owning process is gone is considered stale and overwritten.
// Returns the lock path for release on shutdown.
func AcquireLock(statePath string) (string, error) {
	lockPath := statePath + ".lock"

	if data, err := os.ReadFile(lockPath); err == nil {
		var existing lockInfo
		if json.Unmarshal(data, &existing) == nil {
			if isProcessAlive(existing.PID, existing.Hostname) {
				return "", fmt.Errorf("another watcher is already running (PID %d on %s, started %s)",
					existing.PID, existing.Hostname, existing.StartedAt.Format(time.RFC3339))
			}
			// Stale lock - overwrite below.
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := lockInfo{
		Holder:    "visionwatch",
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}
	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create state lock: %w", err)
	}
	return lockPath, nil
}

// ReleaseLock removes the lock file. Safe to call with an empty path or an
// already-removed lock (use defer).
func ReleaseLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state lock: %w", err)
	}
	return nil
}

// isProcessAlive checks whether the lock's owning process still exists.
// Remote hostnames can't be probed, so they count as alive (fail-safe:
// better to skip one run than corrupt shared state).
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}
	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to another user.
	return err == syscall.EPERM
}
