package domain

import (
	"context"
	"errors"
	"time"
)

// ErrIdleUnsupported is returned by IdleProvider when the platform offers no idle source.
var ErrIdleUnsupported = errors.New("idle time not supported on this platform")

// IdleProvider reports time since last physical input.
// Implementation: xprintidle (Linux), ioreg (macOS), GetLastInputInfo (Windows).
type IdleProvider interface {
	// IdleDuration returns time since the last keyboard or mouse event.
	IdleDuration() (time.Duration, error)
}

// ProcessManager handles OS process queries.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern.
	FindByName(pattern string) ([]int, error)

	// RunningNames returns the names of all running processes.
	RunningNames() ([]string, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// ConfigStore persists the timer configuration.
// Implementation: YAML settings file in the user config dir.
type ConfigStore interface {
	// LoadConfig returns the persisted overrides, or nil when nothing is stored.
	LoadConfig() (*ConfigPatch, error)

	// SaveConfig writes the full config.
	SaveConfig(cfg Config) error
}

// StatusStore records the running daemon and its latest view for the status command.
// Implementation: SQLCipher database in the data dir.
type StatusStore interface {
	// Register records the current daemon, replacing any previous record.
	Register(daemon DaemonRecord) error

	// UpdateHeartbeat stores the heartbeat timestamp and latest view.
	UpdateHeartbeat(view View) error

	// GetStatus returns the last stored record.
	GetStatus() (*StatusRecord, error)

	// Clear removes all stored state.
	Clear() error

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// SystemMonitor delivers sleep/wake and lock/unlock transitions.
type SystemMonitor interface {
	// Start subscribes to system signals until ctx is done.
	// onSignal is called from the monitor's own goroutine.
	Start(ctx context.Context, onSignal func(SystemSignal)) error
}

// EventSink receives every dispatch result from the engine.
type EventSink interface {
	HandleEvents(batch EventBatch, view View)
}

// PolicyStore provides the watched-application policies.
type PolicyStore interface {
	// GetAll returns all registered policies.
	GetAll() []WatchPolicy

	// GetByID returns the policy for a specific app.
	GetByID(id string) (*WatchPolicy, error)

	// List returns app IDs of all watched apps.
	List() []string
}
