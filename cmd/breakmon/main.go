// Package main is the CLI entry point for breakmon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/break_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/infra"
	"github.com/eliteGoblin/focusd/break_mon/internal/policy"
	"github.com/eliteGoblin/focusd/break_mon/internal/transport"
	"github.com/eliteGoblin/focusd/break_mon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "breakmon",
	Short: "Break reminder - micro pauses and rest breaks",
	Long: `breakmon is a daemon that tracks how long you have been working and
tells you when to take a short micro pause or a longer rest break.
Time away from the keyboard counts toward your break; watched apps
such as video calls, a locked screen or a suspended machine pause it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the break daemon in the background",
	RunE:  runStart,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the break daemon in the foreground",
	Long:  `Runs the daemon attached to the terminal. Logs go to the log file and stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(true)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

// Hidden daemon command - used for self-exec when spawning the daemon
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(false)
	},
}

var (
	dataDir    string
	configFile string
	verbose    bool
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.breakmon)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Settings file (default <user config dir>/breakmon/settings.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Machine-readable output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	addControlCommands(rootCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
}

func resolvePaths() (*infra.Paths, error) {
	paths, err := infra.DetectPaths(dataDir, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	return paths, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	paths, err := resolvePaths()
	if err != nil {
		return err
	}

	if view, err := transport.SendCommand(paths.SocketPath, transport.Request{Command: transport.CmdStatus}); err == nil {
		fmt.Println("breakmon is already running")
		return printView(os.Stdout, *view)
	}

	if err := paths.EnsureDataDir(); err != nil {
		return err
	}
	if err := daemon.StartDaemon(dataDir, configFile); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	view, err := daemon.WaitForSocket(paths.SocketPath, 0)
	if err != nil {
		return fmt.Errorf("%w (see %s)", err, paths.LogPath)
	}

	fmt.Println("=== breakmon Started ===")
	fmt.Printf("Settings: %s\n", paths.SettingsPath)
	fmt.Printf("Log:      %s\n", paths.LogPath)
	return printView(os.Stdout, *view)
}

func runDaemon(foreground bool) error {
	paths, err := resolvePaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDataDir(); err != nil {
		return err
	}

	if _, err := transport.SendCommand(paths.SocketPath, transport.Request{Command: transport.CmdStatus}); err == nil {
		return errors.New("breakmon is already running")
	}

	configStore := infra.NewYAMLConfigStore(paths.SettingsPath)
	settings, settingsErr := configStore.LoadDaemonSettings()

	level := settings.LogLevel
	if verbose {
		level = "debug"
	}
	logger := createLogger(paths.LogPath, level, foreground)
	defer func() { _ = logger.Sync() }()

	if settingsErr != nil {
		logger.Warn("failed to read daemon settings, using defaults", zap.Error(settingsErr))
	}

	patch, err := configStore.LoadConfig()
	if err != nil {
		logger.Warn("failed to read timer config, using defaults", zap.Error(err))
		patch = nil
	}

	pm := infra.NewProcessManager()
	engine := usecase.NewEngine(domain.NewState(patch), infra.NewIdleProvider(), configStore, logger)
	scanner := usecase.NewProcessScanner(
		pm,
		policy.NewPolicyStore(settings.Watch...),
		engine,
		settings.ProcessScanInterval(),
		logger,
	)

	var statusStore domain.StatusStore
	if store, err := openStatusStore(paths, pm, true); err != nil {
		logger.Warn("status store unavailable", zap.Error(err))
	} else {
		defer store.Close()
		statusStore = store
		logger.Debug("status store opened", zap.String("path", store.Path()))
	}
	logger.Debug("storage paths",
		zap.String("settings", configStore.Path()),
		zap.String("data_dir", paths.DataDir))

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	runner := daemon.NewRunner(
		daemon.RunnerConfig{
			SocketPath:        paths.SocketPath,
			StreamAddr:        settings.StreamAddr,
			HeartbeatInterval: settings.HeartbeatInterval(),
			AppVersion:        Version,
		},
		engine,
		scanner,
		statusStore,
		infra.NewSystemMonitor(logger),
		pm,
		logger,
	)
	return runner.Run(ctx)
}

// openStatusStore opens the encrypted status database. Readers pass
// create=false so they never mint a key the daemon did not write with.
func openStatusStore(paths *infra.Paths, pm domain.ProcessManager, create bool) (*infra.EncryptedStatusStore, error) {
	key, err := infra.EnsureKey(infra.NewFileKeyProvider(paths.DataDir), create)
	if err != nil {
		return nil, err
	}
	return infra.NewEncryptedStatusStore(paths.DataDir, key, pm)
}

func createLogger(logPath, level string, stderr bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{logPath}
	config.ErrorOutputPaths = []string{logPath}
	if stderr {
		config.OutputPaths = append(config.OutputPaths, "stderr")
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, "stderr")
	}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("breakmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
