package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/transport"
)

var startWorkNatural bool

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause break timers",
	Args:  cobra.NoArgs,
	RunE:  controlRunner(transport.CmdPause),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume break timers",
	Args:  cobra.NoArgs,
	RunE:  controlRunner(transport.CmdResume),
}

var startMiniCmd = &cobra.Command{
	Use:   "start-mini",
	Short: "Start a micro break now",
	Args:  cobra.NoArgs,
	RunE:  controlRunner(transport.CmdStartMini),
}

var startWorkCmd = &cobra.Command{
	Use:   "start-work",
	Short: "Start a rest break now",
	Long: `Starts a rest break now. With --natural, progress already made
toward the break (time spent away) is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return control(transport.Request{Command: transport.CmdStartWork, Natural: startWorkNatural})
	},
}

var skipCmd = &cobra.Command{
	Use:       "skip [mini|work]",
	Short:     "End the current break early",
	Long:      `Ends the current break, or the named one. Ignored while paused.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"mini", "work"},
	RunE:      runSkip,
}

var postponeCmd = &cobra.Command{
	Use:   "postpone",
	Short: "Postpone the rest break",
	Args:  cobra.NoArgs,
	RunE:  controlRunner(transport.CmdPostpone),
}

var resetConfig bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restart all break timers",
	Long:  `Restarts all break timers. With --config, also restores the default settings.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if resetConfig {
			return control(transport.Request{Command: transport.CmdResetConfig})
		}
		return control(transport.Request{Command: transport.CmdResetTimings})
	},
}

func addControlCommands(root *cobra.Command) {
	startWorkCmd.Flags().BoolVar(&startWorkNatural, "natural", false, "Keep break progress already made")
	resetCmd.Flags().BoolVar(&resetConfig, "config", false, "Also restore default settings")

	root.AddCommand(pauseCmd, resumeCmd, startMiniCmd, startWorkCmd, skipCmd, postponeCmd, resetCmd)
}

func controlRunner(command string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return control(transport.Request{Command: command})
	}
}

func runSkip(cmd *cobra.Command, args []string) error {
	var kind domain.BreakKind
	if len(args) == 1 {
		kind = domain.BreakKind(args[0])
	} else {
		view, err := sendCommand(transport.Request{Command: transport.CmdStatus})
		if err != nil {
			return err
		}
		kind = domain.BreakKindOf(view.Snapshot.Status)
	}

	switch kind {
	case domain.BreakMini:
		return control(transport.Request{Command: transport.CmdSkipMini})
	case domain.BreakWork:
		return control(transport.Request{Command: transport.CmdSkipWork})
	case domain.BreakNone:
		fmt.Println("No break in progress")
		return nil
	default:
		return fmt.Errorf("unknown break %q (want mini or work)", kind)
	}
}

// control sends a command and prints the resulting view.
func control(req transport.Request) error {
	view, err := sendCommand(req)
	if err != nil {
		return err
	}
	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(view)
	}
	return printView(os.Stdout, *view)
}

func sendCommand(req transport.Request) (*domain.View, error) {
	paths, err := resolvePaths()
	if err != nil {
		return nil, err
	}

	logger := cliLogger()
	defer func() { _ = logger.Sync() }()
	logger.Debug("sending command", zap.String("command", req.Command), zap.String("socket", paths.SocketPath))

	view, err := transport.SendCommand(paths.SocketPath, req)
	if errors.Is(err, transport.ErrDaemonNotRunning) {
		return nil, fmt.Errorf("breakmon is not running (run 'breakmon start')")
	}
	return view, err
}

func cliLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
