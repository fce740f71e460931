package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/infra"
	"github.com/eliteGoblin/focusd/break_mon/internal/transport"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show break status",
	Long: `Shows the time until the next micro and rest break, the progress of a
break in progress, and why timers are paused. When the daemon does not
answer, the last recorded status is shown instead.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	paths, err := resolvePaths()
	if err != nil {
		return err
	}

	view, err := transport.SendCommand(paths.SocketPath, transport.Request{Command: transport.CmdStatus})
	if err == nil {
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(view)
		}
		fmt.Println("=== breakmon Status ===")
		fmt.Printf("Daemon: %s\n", color.New(color.FgGreen).Sprint("RUNNING"))
		return printView(os.Stdout, *view)
	}
	if !errors.Is(err, transport.ErrDaemonNotRunning) {
		return err
	}

	return printLastStatus(paths)
}

// printLastStatus reads the heartbeat the daemon left in the status store.
func printLastStatus(paths *infra.Paths) error {
	notRunning := color.New(color.FgRed).Sprint("NOT RUNNING")

	store, err := openStatusStore(paths, infra.NewProcessManager(), false)
	if err != nil {
		if jsonOutput {
			fmt.Println(`{"running":false}`)
			return nil
		}
		fmt.Printf("Daemon: %s\n", notRunning)
		fmt.Println("\nRun 'breakmon start' to start break reminders.")
		return nil
	}
	defer store.Close()

	record, err := store.GetStatus()
	if errors.Is(err, infra.ErrStatusNotFound) {
		fmt.Printf("Daemon: %s\n", notRunning)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(record)
	}

	alive, _ := store.IsDaemonAlive()
	if alive {
		fmt.Printf("Daemon: %s (pid %d, control socket not answering)\n",
			color.New(color.FgYellow).Sprint("DEGRADED"), record.Daemon.PID)
	} else {
		fmt.Printf("Daemon: %s\n", notRunning)
	}

	if record.LastHeartbeat > 0 {
		lastBeat := time.Unix(record.LastHeartbeat, 0)
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
	}
	if record.View != nil {
		fmt.Println("\nLast recorded state:")
		return printView(os.Stdout, *record.View)
	}
	return nil
}

// printView renders a view for humans.
func printView(w io.Writer, view domain.View) error {
	snap := view.Snapshot

	var state string
	switch snap.Status {
	case domain.StatusInMini:
		state = color.New(color.FgCyan).Sprintf("Micro break (%s left)", domain.FormatSeconds(view.BreakRemaining()))
	case domain.StatusInWork:
		state = color.New(color.FgMagenta).Sprintf("Rest break (%s left)", domain.FormatSeconds(view.BreakRemaining()))
	default:
		state = "Working"
	}
	fmt.Fprintf(w, "State:  %s\n", state)

	if snap.Paused {
		fmt.Fprintf(w, "Paused: %s (%s)\n", color.New(color.FgYellow).Sprint("yes"), strings.Join(pauseReasons(view), ", "))
	} else {
		fmt.Fprintln(w, "Paused: no")
	}

	if snap.Status != domain.StatusInWork {
		fmt.Fprintf(w, "Next micro break: %s\n", domain.FormatSeconds(view.NextMiniIn()))
	}
	fmt.Fprintf(w, "Next rest break:  %s\n", domain.FormatSeconds(view.NextWorkIn()))
	fmt.Fprintf(w, "Idle:             %s\n", domain.FormatSeconds(snap.LastIdleSeconds))

	if len(view.Processes) > 0 {
		fmt.Fprintf(w, "Watched apps:     %s\n", strings.Join(view.Processes, ", "))
	}
	return nil
}

func pauseReasons(view domain.View) []string {
	var reasons []string
	if view.UserPaused {
		reasons = append(reasons, "user")
	}
	for _, id := range view.Inhibitors {
		switch {
		case id == domain.InhibitorSuspend:
			reasons = append(reasons, "suspended")
		case id == domain.InhibitorLock:
			reasons = append(reasons, "screen locked")
		case strings.HasPrefix(id, "process:"):
			reasons = append(reasons, strings.TrimPrefix(id, "process:")+" running")
		default:
			reasons = append(reasons, id)
		}
	}
	return reasons
}
