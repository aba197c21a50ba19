package data

// EventKind classifies a change to the case registry.
type EventKind int

const (
	// EventCaseOpened is published when a new case is registered.
	EventCaseOpened EventKind = iota
	// EventCaseUpdated is published after any mutation of an open case
	// or one of its rats, its client or its system.
	EventCaseUpdated
	// EventCaseClosed is published when a case moves from the open map
	// into the closed set.
	EventCaseClosed
	// EventCaseEvicted is published when a closed case is removed by
	// the retention sweep.
	EventCaseEvicted
)

// String returns a readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventCaseOpened:
		return "opened"
	case EventCaseUpdated:
		return "updated"
	case EventCaseClosed:
		return "closed"
	case EventCaseEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Event describes one change to the case registry. Events are
// published synchronously after the mutation they describe.
type Event struct {
	Kind EventKind
	Case *Case
}

// Listener receives registry change events. Listeners run on the
// mutating goroutine and must not block.
type Listener func(Event)
