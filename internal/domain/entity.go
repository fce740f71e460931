// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Status identifies which break, if any, is currently active.
type Status string

const (
	StatusNormal Status = "normal"
	StatusInMini Status = "in-mini"
	StatusInWork Status = "in-work"
)

// BreakKind identifies a break type. The zero value means "no break".
type BreakKind string

const (
	BreakNone BreakKind = ""
	BreakMini BreakKind = "mini"
	BreakWork BreakKind = "work"
)

// BreakKindOf maps a status to the break it represents.
func BreakKindOf(status Status) BreakKind {
	switch status {
	case StatusInMini:
		return BreakMini
	case StatusInWork:
		return BreakWork
	default:
		return BreakNone
	}
}

// Timings holds the four break accumulators, in seconds.
type Timings struct {
	MiniElapsed float64 `json:"mini_elapsed"`
	MiniTaking  float64 `json:"mini_taking"`
	WorkElapsed float64 `json:"work_elapsed"`
	WorkTaking  float64 `json:"work_taking"`
}

// Snapshot is the read-only projection of State used for presentation.
type Snapshot struct {
	Status             Status  `json:"status"`
	Timings            Timings `json:"timings"`
	LastIdleSeconds    float64 `json:"last_idle_seconds"`
	LastUpdatedSeconds float64 `json:"last_updated_seconds"`
	Paused             bool    `json:"paused"`
}

// View is what the daemon publishes after every dispatch.
// Snapshot plus the pieces of State that status surfaces display.
type View struct {
	Snapshot   Snapshot `json:"snapshot"`
	Config     Config   `json:"config"`
	UserPaused bool     `json:"user_paused"`
	Inhibitors []string `json:"inhibitors"`
	Processes  []string `json:"processes"`
}

// NextMiniIn returns seconds until the next micro break is due.
func (v View) NextMiniIn() float64 {
	return math.Max(0, v.Config.Mini.IntervalSeconds-v.Snapshot.Timings.MiniElapsed)
}

// NextWorkIn returns seconds until the next work break is due.
func (v View) NextWorkIn() float64 {
	return math.Max(0, v.Config.Work.IntervalSeconds-v.Snapshot.Timings.WorkElapsed)
}

// BreakRemaining returns seconds left in the active break, or 0 outside a break.
func (v View) BreakRemaining() float64 {
	switch v.Snapshot.Status {
	case StatusInMini:
		return math.Max(0, v.Config.Mini.DurationSeconds-v.Snapshot.Timings.MiniTaking)
	case StatusInWork:
		return math.Max(0, v.Config.Work.DurationSeconds-v.Snapshot.Timings.WorkTaking)
	}
	return 0
}

// DaemonRecord describes a running breakmon daemon.
type DaemonRecord struct {
	PID        int
	StartedAt  time.Time
	AppVersion string
}

// StatusRecord is the last state a daemon persisted for out-of-process readers.
type StatusRecord struct {
	Daemon        DaemonRecord
	LastHeartbeat int64
	View          *View
}

// WatchPolicy lists process patterns whose presence pauses break tracking.
type WatchPolicy struct {
	ID              string
	Name            string
	ProcessPatterns []string
}

// InhibitorID returns the inhibitor identifier used while the policy matches.
func (p WatchPolicy) InhibitorID() string {
	return ProcessInhibitor(p.ID)
}

// Matches reports whether a process name matches any pattern.
// Matching is case-insensitive on equality or substring.
func (p WatchPolicy) Matches(processName string) bool {
	name := strings.ToLower(processName)
	for _, pattern := range p.ProcessPatterns {
		pat := strings.ToLower(pattern)
		if pat != "" && strings.Contains(name, pat) {
			return true
		}
	}
	return false
}

// Inhibitor identifiers for system conditions.
const (
	InhibitorSuspend = "system:suspend"
	InhibitorLock    = "system:lock"
)

// ProcessInhibitor returns the inhibitor identifier for a watched application.
func ProcessInhibitor(id string) string {
	return "process:" + id
}

// SystemSignal is a power or session transition reported by the OS.
type SystemSignal string

const (
	SignalSuspend SystemSignal = "suspend"
	SignalResume  SystemSignal = "resume"
	SignalLock    SystemSignal = "lock"
	SignalUnlock  SystemSignal = "unlock"
)

// FormatSeconds renders a duration as m:ss, or h:mm:ss past one hour.
func FormatSeconds(seconds float64) string {
	clamped := int(math.Floor(seconds))
	if clamped < 0 {
		clamped = 0
	}
	hours := clamped / 3600
	minutes := (clamped % 3600) / 60
	secs := clamped % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
