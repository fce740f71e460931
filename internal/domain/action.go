package domain

import (
	"fmt"
	"strings"
)

// Action is an input to Reduce.
type Action interface {
	actionMarker()
	String() string
}

// Tick advances the timers. IdleSeconds is time since last physical input;
// DtSeconds is monotonic wall-clock delta since the previous tick.
type Tick struct {
	IdleSeconds float64
	DtSeconds   float64
}

// SetConfig merges a patch into the config and resets timers.
type SetConfig struct {
	Patch ConfigPatch
}

// ResetConfig restores the built-in config and resets timers.
type ResetConfig struct{}

// ResetTimings zeroes timers and returns to normal.
type ResetTimings struct{}

// StartMiniBreak forces a micro break.
type StartMiniBreak struct{}

// EndMiniBreak leaves a micro break as if it completed.
type EndMiniBreak struct{}

// StartWorkBreak forces a work break. NaturalContinuation keeps accumulated work-break time.
type StartWorkBreak struct {
	NaturalContinuation bool
}

// EndWorkBreak leaves a work break as if it completed.
type EndWorkBreak struct{}

// PostponeWorkBreak pushes the work break back by the configured postpone amount.
type PostponeWorkBreak struct{}

// SetUserPaused sets the user pause flag.
type SetUserPaused struct {
	Paused bool
}

// AddInhibitor inserts an inhibitor source.
type AddInhibitor struct {
	ID string
}

// RemoveInhibitor removes an inhibitor source.
type RemoveInhibitor struct {
	ID string
}

// SetProcesses replaces the list of watched processes currently running.
type SetProcesses struct {
	Processes []string
}

func (Tick) actionMarker()              {}
func (SetConfig) actionMarker()         {}
func (ResetConfig) actionMarker()       {}
func (ResetTimings) actionMarker()      {}
func (StartMiniBreak) actionMarker()    {}
func (EndMiniBreak) actionMarker()      {}
func (StartWorkBreak) actionMarker()    {}
func (EndWorkBreak) actionMarker()      {}
func (PostponeWorkBreak) actionMarker() {}
func (SetUserPaused) actionMarker()     {}
func (AddInhibitor) actionMarker()      {}
func (RemoveInhibitor) actionMarker()   {}
func (SetProcesses) actionMarker()      {}

func (a Tick) String() string {
	return fmt.Sprintf("Tick(idle=%.3f, dt=%.3f)", a.IdleSeconds, a.DtSeconds)
}
func (SetConfig) String() string         { return "SetConfig()" }
func (ResetConfig) String() string       { return "ResetConfig()" }
func (ResetTimings) String() string      { return "ResetTimings()" }
func (StartMiniBreak) String() string    { return "StartMiniBreak()" }
func (EndMiniBreak) String() string      { return "EndMiniBreak()" }
func (EndWorkBreak) String() string      { return "EndWorkBreak()" }
func (PostponeWorkBreak) String() string { return "PostponeWorkBreak()" }
func (a StartWorkBreak) String() string {
	return fmt.Sprintf("StartWorkBreak(natural=%v)", a.NaturalContinuation)
}
func (a SetUserPaused) String() string   { return fmt.Sprintf("SetUserPaused(%v)", a.Paused) }
func (a AddInhibitor) String() string    { return fmt.Sprintf("AddInhibitor(%s)", a.ID) }
func (a RemoveInhibitor) String() string { return fmt.Sprintf("RemoveInhibitor(%s)", a.ID) }
func (a SetProcesses) String() string {
	return fmt.Sprintf("SetProcesses(%s)", strings.Join(a.Processes, ","))
}
