package usecase

import (
	"context"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// DefaultProcessScanInterval is how often watched apps are checked.
const DefaultProcessScanInterval = 5 * time.Second

// ProcessScanner turns running watched applications into inhibitors.
// It dispatches only on change: SetProcesses when the matched set differs,
// and Add/RemoveInhibitor when a policy starts or stops matching.
type ProcessScanner struct {
	processManager domain.ProcessManager
	policyStore    domain.PolicyStore
	dispatcher     Dispatcher
	interval       time.Duration
	logger         *zap.Logger

	lastProcesses []string
	active        map[string]bool
}

// NewProcessScanner creates a scanner.
func NewProcessScanner(
	pm domain.ProcessManager,
	ps domain.PolicyStore,
	dispatcher Dispatcher,
	interval time.Duration,
	logger *zap.Logger,
) *ProcessScanner {
	if interval <= 0 {
		interval = DefaultProcessScanInterval
	}
	return &ProcessScanner{
		processManager: pm,
		policyStore:    ps,
		dispatcher:     dispatcher,
		interval:       interval,
		logger:         logger,
		active:         make(map[string]bool),
	}
}

// Run scans immediately and then on every interval until ctx is canceled.
func (s *ProcessScanner) Run(ctx context.Context) error {
	if err := s.Scan(ctx); err != nil {
		s.logger.Warn("process scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.Warn("process scan failed", zap.Error(err))
			}
		}
	}
}

// Scan checks running processes once and dispatches any changes.
func (s *ProcessScanner) Scan(ctx context.Context) error {
	names, err := s.processManager.RunningNames()
	if err != nil {
		return err
	}

	matched := make(map[string]struct{})
	nowActive := make(map[string]bool)
	for _, p := range s.policyStore.GetAll() {
		for _, name := range names {
			if p.Matches(name) {
				matched[name] = struct{}{}
				nowActive[p.InhibitorID()] = true
			}
		}
	}

	processes := make([]string, 0, len(matched))
	for name := range matched {
		processes = append(processes, name)
	}
	sort.Strings(processes)

	if !slices.Equal(processes, s.lastProcesses) {
		if _, err := s.dispatcher.Dispatch(ctx, domain.SetProcesses{Processes: processes}); err != nil {
			return err
		}
		s.lastProcesses = processes
	}

	for _, id := range sortedKeys(nowActive) {
		if s.active[id] {
			continue
		}
		if _, err := s.dispatcher.Dispatch(ctx, domain.AddInhibitor{ID: id}); err != nil {
			return err
		}
		s.active[id] = true
		s.logger.Info("watched app started, pausing breaks", zap.String("inhibitor", id))
	}

	for _, id := range sortedKeys(s.active) {
		if nowActive[id] {
			continue
		}
		if _, err := s.dispatcher.Dispatch(ctx, domain.RemoveInhibitor{ID: id}); err != nil {
			return err
		}
		delete(s.active, id)
		s.logger.Info("watched app stopped, resuming breaks", zap.String("inhibitor", id))
	}

	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
