// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// FakeIdle is an idle provider whose value the test sets.
type FakeIdle struct {
	mu   sync.Mutex
	idle time.Duration
	err  error
}

// NewFakeIdle creates a provider reporting zero idle time.
func NewFakeIdle() *FakeIdle {
	return &FakeIdle{}
}

// IdleDuration implements domain.IdleProvider.
func (f *FakeIdle) IdleDuration() (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle, f.err
}

// Set changes the reported idle time.
func (f *FakeIdle) Set(idle time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idle = idle
	f.err = nil
}

// Fail makes IdleDuration return err.
func (f *FakeIdle) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// FakeProcesses is a process manager with a settable process list.
// PIDs other than the test's own are never running.
type FakeProcesses struct {
	mu    sync.Mutex
	names []string
}

// NewFakeProcesses creates an empty process list.
func NewFakeProcesses() *FakeProcesses {
	return &FakeProcesses{}
}

// SetRunning replaces the running process names.
func (f *FakeProcesses) SetRunning(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append([]string(nil), names...)
	sort.Strings(f.names)
}

// FindByName implements domain.ProcessManager.
func (f *FakeProcesses) FindByName(pattern string) ([]int, error) {
	return nil, nil
}

// RunningNames implements domain.ProcessManager.
func (f *FakeProcesses) RunningNames() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...), nil
}

// IsRunning implements domain.ProcessManager.
func (f *FakeProcesses) IsRunning(pid int) bool {
	return pid == os.Getpid()
}

// GetCurrentPID implements domain.ProcessManager.
func (f *FakeProcesses) GetCurrentPID() int {
	return os.Getpid()
}

// WriteSettings writes a settings.yaml into dir and returns its path.
func WriteSettings(dir, content string) (string, error) {
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", err
	}
	return path, nil
}

var (
	_ domain.IdleProvider   = (*FakeIdle)(nil)
	_ domain.ProcessManager = (*FakeProcesses)(nil)
)
