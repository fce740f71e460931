package infra

import (
	"context"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// LogindMonitor implements domain.SystemMonitor using systemd-logind signals
// on the system bus.
type LogindMonitor struct {
	logger *zap.Logger
}

// NewSystemMonitor creates the platform system monitor.
func NewSystemMonitor(logger *zap.Logger) domain.SystemMonitor {
	return &LogindMonitor{logger: logger}
}

// Start subscribes to sleep and lock signals. It returns once the
// subscription is in place; signals are delivered until ctx is done.
func (m *LogindMonitor) Start(ctx context.Context, onSignal func(domain.SystemSignal)) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(logindManagerIface),
		dbus.WithMatchMember("PrepareForSleep"),
	); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe PrepareForSleep: %w", err)
	}

	sessionOpts := []dbus.MatchOption{dbus.WithMatchInterface(logindSessionIface)}
	if session, err := m.currentSession(conn); err == nil {
		sessionOpts = append(sessionOpts, dbus.WithMatchObjectPath(session))
	} else {
		m.logger.Debug("session lookup failed, watching all sessions", zap.Error(err))
	}
	for _, member := range []string{"Lock", "Unlock"} {
		opts := append([]dbus.MatchOption{dbus.WithMatchMember(member)}, sessionOpts...)
		if err := conn.AddMatchSignal(opts...); err != nil {
			conn.Close()
			return fmt.Errorf("subscribe %s: %w", member, err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	go func() {
		defer conn.Close()
		defer conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if s, ok := translateLogindSignal(sig.Name, sig.Body); ok {
					m.logger.Info("system signal", zap.String("signal", string(s)))
					onSignal(s)
				}
			}
		}
	}()

	return nil
}

func (m *LogindMonitor) currentSession(conn *dbus.Conn) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	obj := conn.Object(logindDest, dbus.ObjectPath(logindPath))
	err := obj.Call(logindManagerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	return path, err
}

var _ domain.SystemMonitor = (*LogindMonitor)(nil)
