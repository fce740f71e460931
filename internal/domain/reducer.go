package domain

import (
	"maps"
	"slices"
)

const (
	// miniIdleThresholdRatio scales mini.duration into the idle level above
	// which time in Normal counts toward an implicit micro break.
	miniIdleThresholdRatio = 0.3

	// miniResumeIdleSeconds is the idle level below which an active micro
	// break is considered interrupted.
	miniResumeIdleSeconds = 1.0

	// workAwayIdleSeconds is the idle level at which a work break counts down.
	workAwayIdleSeconds = 4.0
)

// Reduce applies action to state and returns the next state.
//
// Reduce is total and pure. Handlers that change nothing observable return a
// state equal to the input.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case Tick:
		return reduceTick(state, a)
	case SetConfig:
		state.Config = ApplyPatch(state.Config, a.Patch)
		return resetTimings(state)
	case ResetConfig:
		state.Config = DefaultConfig()
		return resetTimings(state)
	case ResetTimings:
		return resetTimings(state)
	case StartMiniBreak:
		return enterMini(state)
	case EndMiniBreak:
		return leaveMini(state)
	case StartWorkBreak:
		return enterWork(state, a.NaturalContinuation)
	case EndWorkBreak:
		return leaveWork(state)
	case PostponeWorkBreak:
		return postponeWork(state)
	case SetUserPaused:
		if state.UserPaused == a.Paused {
			return state
		}
		state.UserPaused = a.Paused
		return state
	case AddInhibitor:
		if state.HasInhibitor(a.ID) {
			return state
		}
		next := cloneInhibitors(state.Inhibitors)
		next[a.ID] = struct{}{}
		return state.withInhibitors(next)
	case RemoveInhibitor:
		if !state.HasInhibitor(a.ID) {
			return state
		}
		next := cloneInhibitors(state.Inhibitors)
		delete(next, a.ID)
		return state.withInhibitors(next)
	case SetProcesses:
		if slices.Equal(state.Processes, a.Processes) {
			return state
		}
		state.Processes = slices.Clone(a.Processes)
		if state.Processes == nil {
			state.Processes = []string{}
		}
		return state
	default:
		return state
	}
}

func reduceTick(state State, tick Tick) State {
	if state.IsPaused() {
		return state
	}
	delta := tick.DtSeconds
	if delta < 0 {
		delta = 0
	}
	idle := tick.IdleSeconds
	if delta == 0 && idle == state.LastIdleSeconds {
		return state
	}

	state.LastIdleSeconds = idle
	state.LastUpdatedSeconds += delta

	switch state.Status {
	case StatusNormal:
		return tickNormal(state, idle, delta)
	case StatusInMini:
		return tickMini(state, idle, delta)
	case StatusInWork:
		return tickWork(state, idle, delta)
	}
	return state
}

func tickNormal(state State, idle, delta float64) State {
	cfg := state.Config
	t := state.Timings

	if idle <= cfg.Mini.DurationSeconds*miniIdleThresholdRatio {
		t.MiniElapsed = clampTo(t.MiniElapsed+delta, cfg.Mini.IntervalSeconds)
		t.MiniTaking = 0
	} else {
		t.MiniTaking = clampTo(t.MiniTaking+delta, cfg.Mini.DurationSeconds)
	}

	t.WorkElapsed = clampTo(t.WorkElapsed+delta, cfg.Work.IntervalSeconds)
	t.WorkTaking = 0

	naturalReset := idle >= cfg.NaturalBreakContinuationWindowSeconds
	if naturalReset {
		t.MiniElapsed = 0
		t.MiniTaking = cfg.Mini.DurationSeconds
	}
	state.Timings = t

	switch {
	case t.WorkElapsed >= cfg.Work.IntervalSeconds:
		return enterWork(state, false)
	case !naturalReset && t.MiniElapsed >= cfg.Mini.IntervalSeconds:
		return enterMini(state)
	}
	return state
}

func tickMini(state State, idle, delta float64) State {
	cfg := state.Config
	t := state.Timings

	t.WorkElapsed = clampTo(t.WorkElapsed+delta, cfg.Work.IntervalSeconds)
	if idle < miniResumeIdleSeconds {
		t.MiniTaking = 0
	} else {
		t.MiniTaking = clampTo(t.MiniTaking+delta, cfg.Mini.DurationSeconds)
	}
	state.Timings = t

	switch {
	case t.WorkElapsed >= cfg.Work.IntervalSeconds:
		return enterWork(state, false)
	case t.MiniTaking >= cfg.Mini.DurationSeconds:
		return leaveMini(state)
	}
	return state
}

func tickWork(state State, idle, delta float64) State {
	cfg := state.Config
	if idle >= workAwayIdleSeconds {
		state.Timings.WorkTaking = clampTo(state.Timings.WorkTaking+delta, cfg.Work.DurationSeconds)
	}
	if state.Timings.WorkTaking >= cfg.Work.DurationSeconds {
		return leaveWork(state)
	}
	return state
}

func enterMini(state State) State {
	state.Status = StatusInMini
	state.Timings.MiniElapsed = state.Config.Mini.IntervalSeconds
	state.Timings.MiniTaking = 0
	return state
}

func leaveMini(state State) State {
	state.Status = StatusNormal
	state.Timings.MiniElapsed = 0
	state.Timings.MiniTaking = state.Config.Mini.DurationSeconds
	return state
}

func enterWork(state State, natural bool) State {
	cfg := state.Config
	state.Status = StatusInWork
	state.Timings.WorkElapsed = cfg.Work.IntervalSeconds
	if !natural {
		state.Timings.WorkTaking = 0
	}
	state.Timings.MiniElapsed = 0
	state.Timings.MiniTaking = cfg.Mini.DurationSeconds
	return state
}

func leaveWork(state State) State {
	cfg := state.Config
	state.Status = StatusNormal
	state.Timings = Timings{
		MiniElapsed: 0,
		MiniTaking:  cfg.Mini.DurationSeconds,
		WorkElapsed: 0,
		WorkTaking:  cfg.Work.DurationSeconds,
	}
	return state
}

// postponeWork restarts the micro-break clock from zero rather than marking
// it taken, unlike leaveMini and leaveWork.
func postponeWork(state State) State {
	cfg := state.Config
	state.Status = StatusNormal
	state.Timings = Timings{
		WorkElapsed: clamp(cfg.Work.IntervalSeconds-cfg.Work.PostponeSeconds, 0, cfg.Work.IntervalSeconds),
	}
	return state
}

func resetTimings(state State) State {
	state.Status = StatusNormal
	state.Timings = Timings{}
	state.LastIdleSeconds = 0
	state.LastUpdatedSeconds = 0
	return state
}

func cloneInhibitors(src map[string]struct{}) map[string]struct{} {
	if src == nil {
		return map[string]struct{}{}
	}
	return maps.Clone(src)
}

// clamp checks the lower bound first, so a degenerate max below min yields min.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampTo(v, hi float64) float64 {
	return clamp(v, 0, hi)
}
