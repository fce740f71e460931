package domain

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(miniInterval, miniDuration, workInterval, workDuration, postpone float64) *ConfigPatch {
	return &ConfigPatch{
		Mini: &BreakConfigPatch{
			IntervalSeconds: Seconds(miniInterval),
			DurationSeconds: Seconds(miniDuration),
		},
		Work: &WorkBreakConfigPatch{
			IntervalSeconds: Seconds(workInterval),
			DurationSeconds: Seconds(workDuration),
			PostponeSeconds: Seconds(postpone),
		},
	}
}

func reduceAll(state State, actions ...Action) State {
	for _, a := range actions {
		state = Reduce(state, a)
	}
	return state
}

func TestReduce_MiniBreakStartsAfterInterval(t *testing.T) {
	state := NewState(testConfig(10, 5, 100, 50, 10))

	next := Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 10})

	assert.Equal(t, StatusInMini, next.Status)
	assert.Equal(t, 10.0, next.Timings.MiniElapsed)
	assert.Equal(t, 0.0, next.Timings.MiniTaking)
	assert.Equal(t, 10.0, next.Timings.WorkElapsed)
}

func TestReduce_WorkBreakStartsAfterInterval(t *testing.T) {
	state := NewState(testConfig(100, 5, 20, 50, 10))

	next := Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 20})

	assert.Equal(t, StatusInWork, next.Status)
	assert.Equal(t, Timings{MiniElapsed: 0, MiniTaking: 5, WorkElapsed: 20, WorkTaking: 0}, next.Timings)
}

func TestReduce_WorkPreemptsMiniInSameTick(t *testing.T) {
	state := NewState(testConfig(10, 5, 10, 50, 10))

	next := Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 10})

	assert.Equal(t, StatusInWork, next.Status)
	assert.Equal(t, 0.0, next.Timings.MiniElapsed)
	assert.Equal(t, 5.0, next.Timings.MiniTaking)
}

func TestReduce_WorkPreemptsActiveMini(t *testing.T) {
	state := NewState(testConfig(10, 5, 20, 50, 10))

	state = Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 10})
	require.Equal(t, StatusInMini, state.Status)

	next := Reduce(state, Tick{IdleSeconds: 2, DtSeconds: 10})

	assert.Equal(t, StatusInWork, next.Status)
	assert.Equal(t, 20.0, next.Timings.WorkElapsed)
	assert.Equal(t, 0.0, next.Timings.WorkTaking)
}

func TestReduce_PostponeWorkBreak(t *testing.T) {
	state := NewState(testConfig(100, 5, 100, 50, 10))

	next := Reduce(state, PostponeWorkBreak{})

	assert.Equal(t, StatusNormal, next.Status)
	assert.Equal(t, 90.0, next.Timings.WorkElapsed)
	assert.Equal(t, 0.0, next.Timings.WorkTaking)
}

func TestReduce_PostponeResetsMiniToZero(t *testing.T) {
	state := NewState(testConfig(100, 5, 100, 50, 10))
	state = reduceAll(state, Tick{DtSeconds: 30}, StartWorkBreak{})

	next := Reduce(state, PostponeWorkBreak{})

	assert.Equal(t, Timings{WorkElapsed: 90}, next.Timings)
}

func TestReduce_PostponeLargerThanInterval(t *testing.T) {
	state := NewState(testConfig(100, 5, 100, 50, 500))

	next := Reduce(state, PostponeWorkBreak{})

	assert.Equal(t, 0.0, next.Timings.WorkElapsed)
}

func TestReduce_NaturalBreakSuppressesMini(t *testing.T) {
	patch := testConfig(20, 10, 100, 50, 10)
	patch.NaturalBreakContinuationWindowSeconds = Seconds(5)
	state := NewState(patch)

	next := Reduce(state, Tick{IdleSeconds: 6, DtSeconds: 2})

	assert.Equal(t, StatusNormal, next.Status)
	assert.Equal(t, 0.0, next.Timings.MiniElapsed)
	assert.Equal(t, 10.0, next.Timings.MiniTaking)
}

func TestReduce_NaturalBreakDoesNotSuppressWork(t *testing.T) {
	patch := testConfig(20, 10, 10, 50, 10)
	patch.NaturalBreakContinuationWindowSeconds = Seconds(5)
	state := NewState(patch)

	next := Reduce(state, Tick{IdleSeconds: 6, DtSeconds: 10})

	assert.Equal(t, StatusInWork, next.Status)
}

func TestReduce_NormalIdleAboveThresholdCreditsMiniTaking(t *testing.T) {
	state := NewState(testConfig(20, 10, 100, 50, 10))

	// threshold is 3s; idle 4 counts as an implicit micro break
	next := Reduce(state, Tick{IdleSeconds: 4, DtSeconds: 2})

	assert.Equal(t, 0.0, next.Timings.MiniElapsed)
	assert.Equal(t, 2.0, next.Timings.MiniTaking)
	assert.Equal(t, 2.0, next.Timings.WorkElapsed)

	next = Reduce(next, Tick{IdleSeconds: 0, DtSeconds: 1})
	assert.Equal(t, 1.0, next.Timings.MiniElapsed)
	assert.Equal(t, 0.0, next.Timings.MiniTaking)
}

func TestReduce_ClampsAccumulators(t *testing.T) {
	state := NewState(testConfig(10, 5, 100, 50, 10))

	next := Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 9})
	assert.Equal(t, 9.0, next.Timings.MiniElapsed)

	next = Reduce(state, Tick{IdleSeconds: 3, DtSeconds: 1000})
	assert.Equal(t, StatusInWork, next.Status)
	assert.LessOrEqual(t, next.Timings.WorkElapsed, 100.0)
	assert.LessOrEqual(t, next.Timings.MiniTaking, 5.0)
}

func TestReduce_TickBookkeeping(t *testing.T) {
	state := NewState(nil)

	state = Reduce(state, Tick{IdleSeconds: 1, DtSeconds: 0.5})
	state = Reduce(state, Tick{IdleSeconds: 2, DtSeconds: 0.25})

	assert.Equal(t, 2.0, state.LastIdleSeconds)
	assert.Equal(t, 0.75, state.LastUpdatedSeconds)
}

func TestReduce_TickNoOps(t *testing.T) {
	tests := []struct {
		name string
		tick Tick
	}{
		{"zero dt and unchanged idle", Tick{IdleSeconds: 0, DtSeconds: 0}},
		{"negative dt and unchanged idle", Tick{IdleSeconds: 0, DtSeconds: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState(nil)
			next := Reduce(state, tt.tick)
			assert.True(t, state.Equal(next))
		})
	}
}

func TestReduce_NegativeDtStillRecordsIdle(t *testing.T) {
	state := NewState(testConfig(10, 5, 100, 50, 10))

	next := Reduce(state, Tick{IdleSeconds: 2, DtSeconds: -5})

	assert.Equal(t, 2.0, next.LastIdleSeconds)
	assert.Equal(t, 0.0, next.LastUpdatedSeconds)
	assert.Equal(t, Timings{}, next.Timings)
}

func TestReduce_MiniBreak(t *testing.T) {
	start := func() State {
		s := NewState(testConfig(10, 5, 100, 50, 10))
		return Reduce(s, StartMiniBreak{})
	}

	t.Run("forced start", func(t *testing.T) {
		s := start()
		assert.Equal(t, StatusInMini, s.Status)
		assert.Equal(t, 10.0, s.Timings.MiniElapsed)
		assert.Equal(t, 0.0, s.Timings.MiniTaking)
	})

	t.Run("activity restarts break", func(t *testing.T) {
		s := Reduce(start(), Tick{IdleSeconds: 2, DtSeconds: 3})
		require.Equal(t, 3.0, s.Timings.MiniTaking)

		s = Reduce(s, Tick{IdleSeconds: 0.5, DtSeconds: 1})
		assert.Equal(t, StatusInMini, s.Status)
		assert.Equal(t, 0.0, s.Timings.MiniTaking)
	})

	t.Run("completes when duration reached", func(t *testing.T) {
		s := Reduce(start(), Tick{IdleSeconds: 2, DtSeconds: 5})
		assert.Equal(t, StatusNormal, s.Status)
		assert.Equal(t, 0.0, s.Timings.MiniElapsed)
		assert.Equal(t, 5.0, s.Timings.MiniTaking)
		assert.Equal(t, 5.0, s.Timings.WorkElapsed)
	})

	t.Run("forced end", func(t *testing.T) {
		s := Reduce(start(), EndMiniBreak{})
		assert.Equal(t, StatusNormal, s.Status)
		assert.Equal(t, 0.0, s.Timings.MiniElapsed)
		assert.Equal(t, 5.0, s.Timings.MiniTaking)
	})
}

func TestReduce_WorkBreak(t *testing.T) {
	start := func() State {
		s := NewState(testConfig(10, 5, 100, 50, 10))
		return Reduce(s, StartWorkBreak{})
	}

	t.Run("forced start suppresses mini", func(t *testing.T) {
		s := NewState(testConfig(10, 5, 100, 50, 10))
		s = reduceAll(s, Tick{IdleSeconds: 0, DtSeconds: 8}, StartWorkBreak{})
		assert.Equal(t, StatusInWork, s.Status)
		assert.Equal(t, Timings{MiniElapsed: 0, MiniTaking: 5, WorkElapsed: 100, WorkTaking: 0}, s.Timings)
	})

	t.Run("activity does not count down", func(t *testing.T) {
		s := Reduce(start(), Tick{IdleSeconds: 3, DtSeconds: 10})
		assert.Equal(t, 0.0, s.Timings.WorkTaking)
		assert.Equal(t, StatusInWork, s.Status)
	})

	t.Run("away time counts down", func(t *testing.T) {
		s := Reduce(start(), Tick{IdleSeconds: 4, DtSeconds: 10})
		assert.Equal(t, 10.0, s.Timings.WorkTaking)
	})

	t.Run("completes with full reset", func(t *testing.T) {
		s := Reduce(start(), Tick{IdleSeconds: 60, DtSeconds: 60})
		assert.Equal(t, StatusNormal, s.Status)
		assert.Equal(t, Timings{MiniElapsed: 0, MiniTaking: 5, WorkElapsed: 0, WorkTaking: 50}, s.Timings)
	})

	t.Run("forced end", func(t *testing.T) {
		s := Reduce(start(), EndWorkBreak{})
		assert.Equal(t, Timings{MiniElapsed: 0, MiniTaking: 5, WorkElapsed: 0, WorkTaking: 50}, s.Timings)
	})

	t.Run("natural continuation keeps work taking", func(t *testing.T) {
		s := Reduce(start(), Tick{IdleSeconds: 10, DtSeconds: 20})
		require.Equal(t, 20.0, s.Timings.WorkTaking)

		s = Reduce(s, StartWorkBreak{NaturalContinuation: true})
		assert.Equal(t, 20.0, s.Timings.WorkTaking)

		s = Reduce(s, StartWorkBreak{NaturalContinuation: false})
		assert.Equal(t, 0.0, s.Timings.WorkTaking)
	})
}

func TestReduce_InhibitorFreezesTicks(t *testing.T) {
	state := NewState(testConfig(10, 5, 100, 50, 10))
	state = Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 3})
	state = Reduce(state, AddInhibitor{ID: "test"})

	next := Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 10_000})

	assert.True(t, state.Equal(next))
	assert.True(t, next.Snapshot().Paused)
}

func TestReduce_UserPauseFreezesEveryStatus(t *testing.T) {
	for _, start := range []Action{ResetTimings{}, StartMiniBreak{}, StartWorkBreak{}} {
		t.Run(start.String(), func(t *testing.T) {
			state := reduceAll(NewState(nil), start, SetUserPaused{Paused: true})
			next := Reduce(state, Tick{IdleSeconds: 100, DtSeconds: 10_000})
			assert.True(t, state.Equal(next))
		})
	}
}

func TestReduce_InhibitorIdempotence(t *testing.T) {
	state := NewState(nil)

	once := Reduce(state, AddInhibitor{ID: InhibitorLock})
	twice := Reduce(once, AddInhibitor{ID: InhibitorLock})

	assert.True(t, once.Equal(twice))
	assert.Equal(t, reflect.ValueOf(once.Inhibitors).Pointer(), reflect.ValueOf(twice.Inhibitors).Pointer())

	removed := Reduce(state, RemoveInhibitor{ID: "absent"})
	assert.True(t, state.Equal(removed))
	assert.Equal(t, reflect.ValueOf(state.Inhibitors).Pointer(), reflect.ValueOf(removed.Inhibitors).Pointer())
}

func TestReduce_InhibitorsHaveValueSemantics(t *testing.T) {
	state := NewState(nil)

	added := Reduce(state, AddInhibitor{ID: InhibitorSuspend})
	assert.False(t, state.HasInhibitor(InhibitorSuspend))
	assert.True(t, added.HasInhibitor(InhibitorSuspend))

	removed := Reduce(added, RemoveInhibitor{ID: InhibitorSuspend})
	assert.True(t, added.HasInhibitor(InhibitorSuspend))
	assert.False(t, removed.HasInhibitor(InhibitorSuspend))
	assert.False(t, removed.IsPaused())
}

func TestReduce_InhibitorsCommute(t *testing.T) {
	a := reduceAll(NewState(nil), AddInhibitor{ID: "a"}, AddInhibitor{ID: "b"}, RemoveInhibitor{ID: "a"})
	b := reduceAll(NewState(nil), AddInhibitor{ID: "b"}, RemoveInhibitor{ID: "a"}, AddInhibitor{ID: "a"}, RemoveInhibitor{ID: "a"})

	assert.True(t, a.Equal(b))
	assert.Equal(t, []string{"b"}, a.InhibitorIDs())
}

func TestReduce_SetUserPaused(t *testing.T) {
	state := NewState(nil)

	same := Reduce(state, SetUserPaused{Paused: false})
	assert.True(t, state.Equal(same))

	paused := Reduce(state, SetUserPaused{Paused: true})
	assert.True(t, paused.UserPaused)
	assert.True(t, paused.IsPaused())
	assert.False(t, state.UserPaused)
}

func TestReduce_SetProcesses(t *testing.T) {
	state := NewState(nil)

	input := []string{"zoom.us"}
	next := Reduce(state, SetProcesses{Processes: input})
	assert.Equal(t, []string{"zoom.us"}, next.Processes)

	input[0] = "mutated"
	assert.Equal(t, []string{"zoom.us"}, next.Processes)

	same := Reduce(next, SetProcesses{Processes: []string{"zoom.us"}})
	assert.True(t, next.Equal(same))

	cleared := Reduce(next, SetProcesses{})
	assert.Empty(t, cleared.Processes)
	assert.NotNil(t, cleared.Processes)
}

func TestReduce_Resets(t *testing.T) {
	dirty := func() State {
		s := NewState(testConfig(10, 5, 100, 50, 10))
		s = reduceAll(s,
			Tick{IdleSeconds: 0, DtSeconds: 10},
			SetProcesses{Processes: []string{"zoom"}},
			AddInhibitor{ID: "process:zoom"},
			SetUserPaused{Paused: true},
		)
		return s
	}

	tests := []struct {
		name       string
		action     Action
		wantConfig func(before Config) Config
	}{
		{
			name:   "ResetTimings keeps config",
			action: ResetTimings{},
			wantConfig: func(before Config) Config {
				return before
			},
		},
		{
			name:   "ResetConfig restores defaults",
			action: ResetConfig{},
			wantConfig: func(Config) Config {
				return DefaultConfig()
			},
		},
		{
			name:   "SetConfig merges patch",
			action: SetConfig{Patch: ConfigPatch{TickIntervalMs: Seconds(250)}},
			wantConfig: func(before Config) Config {
				before.TickIntervalMs = 250
				return before
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := dirty()
			require.Equal(t, StatusInMini, before.Status)

			next := Reduce(before, tt.action)

			assert.Equal(t, StatusNormal, next.Status)
			assert.Equal(t, Timings{}, next.Timings)
			assert.Equal(t, 0.0, next.LastIdleSeconds)
			assert.Equal(t, 0.0, next.LastUpdatedSeconds)
			assert.Equal(t, tt.wantConfig(before.Config), next.Config)
			assert.True(t, next.UserPaused)
			assert.Equal(t, []string{"process:zoom"}, next.InhibitorIDs())
			assert.Equal(t, []string{"zoom"}, next.Processes)
		})
	}
}

func TestReduce_DegenerateConfigIsNotValidated(t *testing.T) {
	state := NewState(testConfig(0, 5, 100, 50, 10))

	next := Reduce(state, Tick{IdleSeconds: 0, DtSeconds: 0.1})

	assert.Equal(t, StatusInMini, next.Status)
}

func TestReduce_UnknownActionIsIdentity(t *testing.T) {
	state := NewState(nil)
	assert.True(t, state.Equal(Reduce(state, nil)))
}
