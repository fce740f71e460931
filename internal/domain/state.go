package domain

import (
	"maps"
	"slices"
	"sort"
)

// State is the record the reducer threads through every dispatch.
//
// State has value semantics. Inhibitors and Processes are never mutated in
// place: the reducer copies them before changing membership, so a State
// held by a caller stays valid after later reductions.
type State struct {
	Status             Status
	Timings            Timings
	LastIdleSeconds    float64
	LastUpdatedSeconds float64
	Config             Config
	UserPaused         bool
	Inhibitors         map[string]struct{}
	Processes          []string
}

// NewState creates the initial state, optionally seeded by a persisted patch.
func NewState(override *ConfigPatch) State {
	cfg := DefaultConfig()
	if override != nil {
		cfg = ApplyPatch(cfg, *override)
	}
	return State{
		Status:     StatusNormal,
		Config:     cfg,
		Inhibitors: map[string]struct{}{},
		Processes:  []string{},
	}
}

// IsPaused reports whether ticking is suspended.
func (s State) IsPaused() bool {
	return s.UserPaused || len(s.Inhibitors) > 0
}

// Snapshot projects the state for presentation.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Status:             s.Status,
		Timings:            s.Timings,
		LastIdleSeconds:    s.LastIdleSeconds,
		LastUpdatedSeconds: s.LastUpdatedSeconds,
		Paused:             s.IsPaused(),
	}
}

// HasInhibitor reports whether id is in the inhibitor set.
func (s State) HasInhibitor(id string) bool {
	_, ok := s.Inhibitors[id]
	return ok
}

// InhibitorIDs returns the inhibitor set in sorted order.
func (s State) InhibitorIDs() []string {
	ids := make([]string, 0, len(s.Inhibitors))
	for id := range s.Inhibitors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// View builds the published read model. The returned slices are copies.
func (s State) View() View {
	return View{
		Snapshot:   s.Snapshot(),
		Config:     s.Config,
		UserPaused: s.UserPaused,
		Inhibitors: s.InhibitorIDs(),
		Processes:  slices.Clone(s.Processes),
	}
}

// Equal reports structural equality. Nil and empty collections compare equal.
func (s State) Equal(other State) bool {
	return s.Status == other.Status &&
		s.Timings == other.Timings &&
		s.LastIdleSeconds == other.LastIdleSeconds &&
		s.LastUpdatedSeconds == other.LastUpdatedSeconds &&
		s.Config == other.Config &&
		s.UserPaused == other.UserPaused &&
		maps.Equal(s.Inhibitors, other.Inhibitors) &&
		slices.Equal(s.Processes, other.Processes)
}

func (s State) withInhibitors(next map[string]struct{}) State {
	s.Inhibitors = next
	return s
}
