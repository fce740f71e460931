//go:build !linux

package infra

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// noopMonitor is used where no system signal source is wired.
type noopMonitor struct {
	logger *zap.Logger
}

// NewSystemMonitor creates the platform system monitor.
func NewSystemMonitor(logger *zap.Logger) domain.SystemMonitor {
	return &noopMonitor{logger: logger}
}

func (m *noopMonitor) Start(ctx context.Context, onSignal func(domain.SystemSignal)) error {
	m.logger.Debug("system events not supported on this platform")
	return nil
}
