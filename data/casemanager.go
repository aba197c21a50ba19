package data

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/targodan/UberSpatchBoard/errors"
)

// CaseManager is the authoritative registry of all open and recently
// closed cases. A case number is never present in both collections at
// the same time.
type CaseManager struct {
	mu     sync.RWMutex
	open   map[int]*Case
	closed map[*Case]struct{}

	subMu       sync.RWMutex
	subscribers map[string]Listener
}

// NewCaseManager creates an empty case registry.
func NewCaseManager() *CaseManager {
	return &CaseManager{
		open:        make(map[int]*Case),
		closed:      make(map[*Case]struct{}),
		subscribers: make(map[string]Listener),
	}
}

// AddCase registers a new open case. Registering a case whose number
// is already open is an error.
func (cm *CaseManager) AddCase(c *Case) error {
	cm.mu.Lock()
	if _, exists := cm.open[c.Number()]; exists {
		cm.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("case %d: %w", c.Number(), errors.ErrCaseExists),
			"CaseManager", "AddCase", "duplicate number check")
	}
	cm.open[c.Number()] = c
	cm.mu.Unlock()

	c.attach(cm)
	cm.publish(Event{Kind: EventCaseOpened, Case: c})
	return nil
}

// Get returns the open case with the given number, nil if none.
func (cm *CaseManager) Get(number int) *Case {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.open[number]
}

// OpenCases returns the open cases ordered by open time.
func (cm *CaseManager) OpenCases() []*Case {
	cm.mu.RLock()
	cases := make([]*Case, 0, len(cm.open))
	for _, c := range cm.open {
		cases = append(cases, c)
	}
	cm.mu.RUnlock()

	sort.Slice(cases, func(i, j int) bool {
		return cases[i].OpenTime().Before(cases[j].OpenTime())
	})
	return cases
}

// ClosedCases returns the retained closed cases ordered by open time.
func (cm *CaseManager) ClosedCases() []*Case {
	cm.mu.RLock()
	cases := make([]*Case, 0, len(cm.closed))
	for c := range cm.closed {
		cases = append(cases, c)
	}
	cm.mu.RUnlock()

	sort.Slice(cases, func(i, j int) bool {
		return cases[i].OpenTime().Before(cases[j].OpenTime())
	})
	return cases
}

// LookupCaseOfClient finds an open case whose client's IRC name or
// CMDR name equals the given name. Returns nil when none matches.
func (cm *CaseManager) LookupCaseOfClient(name string) *Case {
	for _, c := range cm.OpenCases() {
		client := c.Client()
		if client == nil {
			continue
		}
		if client.IRCName() == name || client.CmdrName() == name {
			return c
		}
	}
	return nil
}

// LookupCaseWithRat finds an open case on which the given rat is
// assigned or has called. Returns nil when none matches.
func (cm *CaseManager) LookupCaseWithRat(rat *Rat) *Case {
	if rat == nil {
		return nil
	}
	for _, c := range cm.OpenCases() {
		if c.LookupAssociatedRat(rat.IRCName()) != nil {
			return c
		}
	}
	return nil
}

// RemoveClosedBefore evicts closed cases whose close time lies before
// the given cutoff. Returns the number of evicted cases.
func (cm *CaseManager) RemoveClosedBefore(cutoff time.Time) int {
	cm.mu.Lock()
	var evicted []*Case
	for c := range cm.closed {
		if c.CloseTime().Before(cutoff) {
			delete(cm.closed, c)
			evicted = append(evicted, c)
		}
	}
	cm.mu.Unlock()

	for _, c := range evicted {
		cm.publish(Event{Kind: EventCaseEvicted, Case: c})
	}
	return len(evicted)
}

// Subscribe registers a listener for registry change events and
// returns a token for Unsubscribe.
func (cm *CaseManager) Subscribe(fn Listener) string {
	id := uuid.NewString()
	cm.subMu.Lock()
	cm.subscribers[id] = fn
	cm.subMu.Unlock()
	return id
}

// Unsubscribe removes a listener previously added with Subscribe.
func (cm *CaseManager) Unsubscribe(id string) {
	cm.subMu.Lock()
	delete(cm.subscribers, id)
	cm.subMu.Unlock()
}

// caseClosed moves a case from the open map into the closed set.
// Called by Case.Close after the close time has been set.
func (cm *CaseManager) caseClosed(c *Case) {
	cm.mu.Lock()
	closedCase, existed := cm.open[c.Number()]
	if existed && closedCase == c {
		delete(cm.open, c.Number())
		cm.closed[c] = struct{}{}
	}
	cm.mu.Unlock()

	cm.publish(Event{Kind: EventCaseClosed, Case: c})
}

// publish delivers an event to all subscribers synchronously.
func (cm *CaseManager) publish(event Event) {
	cm.subMu.RLock()
	listeners := make([]Listener, 0, len(cm.subscribers))
	for _, fn := range cm.subscribers {
		listeners = append(listeners, fn)
	}
	cm.subMu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}
