package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/transport"
)

// startupWait bounds how long StartDaemon waits for the control socket.
const startupWait = 3 * time.Second

// DaemonArgs builds the argument list for the hidden "daemon" command.
func DaemonArgs(dataDir, configFile string) []string {
	args := []string{"daemon"}
	if dataDir != "" {
		args = append(args, "--data-dir", dataDir)
	}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	return args
}

// StartDaemon spawns the daemon from the current executable.
// The daemon is detached from the parent process (runs independently).
func StartDaemon(dataDir, configFile string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	return StartDaemonWithPath(executable, dataDir, configFile)
}

// StartDaemonWithPath spawns the daemon from a specific binary path.
func StartDaemonWithPath(binaryPath, dataDir, configFile string) error {
	cmd := exec.Command(binaryPath, DaemonArgs(dataDir, configFile)...)
	detach(cmd)

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	return cmd.Process.Release()
}

// WaitForSocket polls the control socket until the daemon answers.
func WaitForSocket(socketPath string, timeout time.Duration) (*domain.View, error) {
	if timeout <= 0 {
		timeout = startupWait
	}
	deadline := time.Now().Add(timeout)
	for {
		view, err := transport.SendCommand(socketPath, transport.Request{Command: transport.CmdStatus})
		if err == nil {
			return view, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon did not come up within %s: %w", timeout, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
