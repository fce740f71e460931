// Package policy implements the Strategy pattern for watched-application rules.
// Each app (Zoom, Teams) has its own policy naming the processes that pause breaks.
package policy

import (
	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// AppPolicy defines the strategy interface for a watched application.
// While any of its processes runs, break tracking is inhibited.
type AppPolicy interface {
	// ID returns unique identifier (e.g., "zoom", "teams").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// ProcessPatterns returns process names that indicate the app is active.
	// Patterns are matched case-insensitively.
	ProcessPatterns() []string
}

// ToPolicy converts an AppPolicy to a domain.WatchPolicy entity.
func ToPolicy(ap AppPolicy) domain.WatchPolicy {
	return domain.WatchPolicy{
		ID:              ap.ID(),
		Name:            ap.Name(),
		ProcessPatterns: ap.ProcessPatterns(),
	}
}
