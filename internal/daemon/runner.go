// Package daemon wires the break engine to its adapters and runs them.
package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
	"github.com/eliteGoblin/focusd/break_mon/internal/infra"
	"github.com/eliteGoblin/focusd/break_mon/internal/transport"
	"github.com/eliteGoblin/focusd/break_mon/internal/usecase"
)

// RunnerConfig holds daemon runner configuration.
type RunnerConfig struct {
	SocketPath        string
	StreamAddr        string        // empty disables the event stream
	HeartbeatInterval time.Duration // How often the status store is refreshed
	AppVersion        string
}

// DefaultRunnerConfig returns default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	settings := infra.DefaultDaemonSettings()
	return RunnerConfig{
		StreamAddr:        settings.StreamAddr,
		HeartbeatInterval: settings.HeartbeatInterval(),
		AppVersion:        "dev",
	}
}

// Runner is the breakmon daemon.
// It owns the engine loop and every producer that feeds it: the process
// scanner, system signals and the control socket. It publishes the view to
// the status store on a heartbeat and to stream clients on every event.
type Runner struct {
	config         RunnerConfig
	engine         *usecase.Engine
	scanner        *usecase.ProcessScanner
	statusStore    domain.StatusStore
	monitor        domain.SystemMonitor
	processManager domain.ProcessManager
	logger         *zap.Logger
	stream         *transport.StreamServer
}

// NewRunner creates a daemon runner. scanner, statusStore and monitor may be nil.
func NewRunner(
	config RunnerConfig,
	engine *usecase.Engine,
	scanner *usecase.ProcessScanner,
	statusStore domain.StatusStore,
	monitor domain.SystemMonitor,
	pm domain.ProcessManager,
	logger *zap.Logger,
) *Runner {
	r := &Runner{
		config:         config,
		engine:         engine,
		scanner:        scanner,
		statusStore:    statusStore,
		monitor:        monitor,
		processManager: pm,
		logger:         logger,
	}
	if config.StreamAddr != "" {
		r.stream = transport.NewStreamServer(config.StreamAddr, engine, logger)
		engine.AddSink(r.stream)
	}
	return r
}

// Run starts the daemon. This blocks until context is canceled or a
// component fails to start.
func (r *Runner) Run(ctx context.Context) error {
	if r.statusStore != nil {
		record := domain.DaemonRecord{
			PID:        r.processManager.GetCurrentPID(),
			StartedAt:  time.Now(),
			AppVersion: r.config.AppVersion,
		}
		if err := r.statusStore.Register(record); err != nil {
			r.logger.Error("failed to register daemon", zap.Error(err))
			return err
		}
		defer func() {
			if err := r.statusStore.Clear(); err != nil {
				r.logger.Warn("failed to clear status", zap.Error(err))
			}
		}()
	}

	r.logger.Info("breakmon daemon started",
		zap.Int("pid", os.Getpid()),
		zap.String("socket", r.config.SocketPath),
		zap.String("stream", r.config.StreamAddr))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ignoreCanceled(r.engine.Run(ctx)) })

	if r.scanner != nil {
		g.Go(func() error { return ignoreCanceled(r.scanner.Run(ctx)) })
	}

	if r.config.SocketPath != "" {
		ipc := transport.NewIPCServer(r.config.SocketPath, r.engine, r.logger)
		g.Go(func() error { return ipc.Run(ctx) })
	}

	if r.stream != nil {
		g.Go(func() error {
			if err := r.stream.Run(ctx); err != nil {
				r.logger.Warn("event stream disabled", zap.Error(err))
			}
			return nil
		})
	}

	if r.monitor != nil {
		if err := r.monitor.Start(ctx, r.handleSignal(ctx)); err != nil {
			// suspend and lock detection are optional
			r.logger.Warn("system monitor unavailable", zap.Error(err))
		}
	}

	if r.statusStore != nil && r.config.HeartbeatInterval > 0 {
		g.Go(func() error {
			r.runHeartbeat(ctx)
			return nil
		})
	}

	err := g.Wait()
	r.logger.Info("breakmon daemon stopping")
	return err
}

// handleSignal turns suspend/lock notifications into inhibitor actions.
func (r *Runner) handleSignal(ctx context.Context) func(domain.SystemSignal) {
	return func(sig domain.SystemSignal) {
		action, ok := infra.InhibitorAction(sig)
		if !ok {
			return
		}
		r.logger.Info("system signal", zap.String("signal", string(sig)))
		if _, err := r.engine.Dispatch(ctx, action); err != nil && ctx.Err() == nil {
			r.logger.Warn("failed to apply system signal", zap.Error(err))
		}
	}
}

func (r *Runner) runHeartbeat(ctx context.Context) {
	r.heartbeat()

	ticker := time.NewTicker(r.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.heartbeat()
		}
	}
}

func (r *Runner) heartbeat() {
	if err := r.statusStore.UpdateHeartbeat(r.engine.View()); err != nil {
		r.logger.Warn("failed to update heartbeat", zap.Error(err))
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
