package engine

import (
	"fmt"
	"os"
	"time"
)

// MaintenanceFlag is a filesystem signal shared with the dashboard: while
// the flag file exists the orchestrator releases its store handle and
// pauses all writes, resuming automatically once it is cleared.
type MaintenanceFlag struct {
	path string
}

// NewMaintenanceFlag wraps the flag path.
func NewMaintenanceFlag(path string) *MaintenanceFlag {
	return &MaintenanceFlag{path: path}
}

// Active reports whether the flag is present.
func (m *MaintenanceFlag) Active() bool {
	if m == nil || m.path == "" {
		return false
	}
	_, err := os.Stat(m.path)
	return err == nil
}

// Acquire creates the flag file.
func (m *MaintenanceFlag) Acquire() error {
	content := fmt.Sprintf("pid=%d acquired=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	return os.WriteFile(m.path, []byte(content), 0644)
}

// Release removes the flag file; a missing file is not an error.
func (m *MaintenanceFlag) Release() error {
	err := os.Remove(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
