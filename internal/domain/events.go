package domain

import "fmt"

// EventKind tags an Event.
type EventKind string

const (
	EventMiniBreakStart EventKind = "mini_break_start"
	EventWorkBreakStart EventKind = "work_break_start"
	EventBreakUpdate    EventKind = "break_update"
	EventBreakEnd       EventKind = "break_end"
	EventStatusUpdate   EventKind = "status_update"
	EventPaused         EventKind = "paused"
	EventResumed        EventKind = "resumed"
)

// Event is a presentation-facing notification derived from a transition.
// Break is set for break_update and break_end. NaturalContinuation is only
// meaningful for work_break_start.
type Event struct {
	Kind                EventKind `json:"kind"`
	Break               BreakKind `json:"break,omitempty"`
	NaturalContinuation bool      `json:"natural_continuation,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventWorkBreakStart:
		return fmt.Sprintf("%s(natural=%v)", e.Kind, e.NaturalContinuation)
	case EventBreakUpdate, EventBreakEnd:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Break)
	}
	return string(e.Kind)
}

// EventBatch is the ordered result of one dispatch.
type EventBatch struct {
	Events          []Event `json:"events"`
	SnapshotChanged bool    `json:"snapshot_changed"`
}

// Has reports whether the batch contains an event of the given kind.
func (b EventBatch) Has(kind EventKind) bool {
	for _, e := range b.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// DeriveEvents diffs prev and next into an ordered event list.
//
// Pause transitions come first, then break start/end, then break_update when
// a break continues, and status_update always last.
func DeriveEvents(prev, next State, action Action) EventBatch {
	events := make([]Event, 0, 3)

	wasPaused, isPaused := prev.IsPaused(), next.IsPaused()
	if wasPaused != isPaused {
		if isPaused {
			events = append(events, Event{Kind: EventPaused})
		} else {
			events = append(events, Event{Kind: EventResumed})
		}
	}

	prevKind := BreakKindOf(prev.Status)
	nextKind := BreakKindOf(next.Status)

	if prev.Status != next.Status {
		switch nextKind {
		case BreakMini:
			events = append(events, Event{Kind: EventMiniBreakStart})
		case BreakWork:
			natural := false
			if start, ok := action.(StartWorkBreak); ok {
				natural = start.NaturalContinuation
			}
			events = append(events, Event{Kind: EventWorkBreakStart, NaturalContinuation: natural})
		}
		if prevKind != BreakNone && prevKind != nextKind {
			events = append(events, Event{Kind: EventBreakEnd, Break: prevKind})
		}
	} else if nextKind != BreakNone {
		events = append(events, Event{Kind: EventBreakUpdate, Break: nextKind})
	}

	events = append(events, Event{Kind: EventStatusUpdate})

	return EventBatch{
		Events:          events,
		SnapshotChanged: prev.Snapshot() != next.Snapshot(),
	}
}
