package data

import (
	"fmt"
	"sync"
	"time"

	"github.com/targodan/UberSpatchBoard/errors"
)

// MaxAssignedRats is the maximum number of rats on a single case.
const MaxAssignedRats = 3

// Case is one rescue operation. It is created from a RATSIGNAL line,
// mutated by dispatch commands, calls and reports, and finally closed.
// Closing is a one-way transition; there is no re-open.
type Case struct {
	mu          sync.RWMutex
	number      int
	client      *Client
	system      *System
	codeRed     bool
	active      bool
	rats        []*Rat
	calls       []*Rat
	notes       []string
	firstLimpet *Rat
	openTime    time.Time
	closeTime   time.Time

	manager  *CaseManager
	onChange func()
}

// NewCase creates an open, active Case.
func NewCase(number int, client *Client, system *System, codeRed bool, openTime time.Time) *Case {
	c := &Case{
		number:   number,
		client:   client,
		system:   system,
		codeRed:  codeRed,
		active:   true,
		openTime: openTime,
	}
	if client != nil {
		client.bind(c.changed)
	}
	if system != nil {
		system.bind(c.changed)
	}
	return c
}

// Number returns the case number assigned by the dispatch bot.
func (c *Case) Number() int {
	return c.number
}

// Client returns the client of this case.
func (c *Case) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// System returns the star system of this case.
func (c *Case) System() *System {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.system
}

// SetSystem replaces the star system of this case.
func (c *Case) SetSystem(system *System) {
	c.mu.Lock()
	c.system = system
	if system != nil {
		system.bind(c.changed)
	}
	c.mu.Unlock()
	c.changed()
}

// IsActive reports whether the case is marked active.
func (c *Case) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SetActive flips the active flag of the case.
func (c *Case) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
	c.changed()
}

// IsCodeRed reports whether the client's life support is critical.
func (c *Case) IsCodeRed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.codeRed
}

// SetCodeRed sets the code red flag of the case.
func (c *Case) SetCodeRed(codeRed bool) {
	c.mu.Lock()
	c.codeRed = codeRed
	c.mu.Unlock()
	c.changed()
}

// OpenTime returns the time the case was opened.
func (c *Case) OpenTime() time.Time {
	return c.openTime
}

// CloseTime returns the time the case was closed, the zero time while
// the case is still open.
func (c *Case) CloseTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closeTime
}

// IsClosed reports whether the case has been closed.
func (c *Case) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closeTime.IsZero()
}

// AssignRat adds a rat to the case. Adding a rat that is already on
// the case is a no-op success. Adding a fourth distinct rat fails
// without mutation.
func (c *Case) AssignRat(rat *Rat) error {
	c.mu.Lock()
	for _, assigned := range c.rats {
		if assigned.SameUser(rat) {
			c.mu.Unlock()
			return nil
		}
	}
	if len(c.rats) >= MaxAssignedRats {
		c.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("case %d: %w", c.number, errors.ErrRatLimit),
			"Case", "AssignRat", "rat limit check")
	}
	c.rats = append(c.rats, rat)
	rat.bind(c.changed)
	c.mu.Unlock()
	c.changed()
	return nil
}

// UnassignRat removes a rat from the case. Removing a rat that is not
// on the case is a no-op. The rat stays in the call history.
func (c *Case) UnassignRat(rat *Rat) {
	if rat == nil {
		return
	}
	c.mu.Lock()
	removed := false
	for i, assigned := range c.rats {
		if assigned.SameUser(rat) {
			c.rats = append(c.rats[:i], c.rats[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()
	if removed {
		c.changed()
	}
}

// Rats returns the rats assigned to the case.
func (c *Case) Rats() []*Rat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rats := make([]*Rat, len(c.rats))
	copy(rats, c.rats)
	return rats
}

// AddCall appends an unassigned jump call. When a rat with the same
// IRC nickname is already on the case, its jump count is updated from
// the call as well.
func (c *Case) AddCall(rat *Rat) {
	c.mu.Lock()
	var match *Rat
	for _, assigned := range c.rats {
		if assigned.SameUser(rat) {
			match = assigned
			break
		}
	}
	c.calls = append(c.calls, rat)
	rat.bind(c.changed)
	c.mu.Unlock()
	if match != nil {
		match.SetJumps(rat.Jumps())
	}
	c.changed()
}

// Calls returns the call history of the case in arrival order.
func (c *Case) Calls() []*Rat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	calls := make([]*Rat, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// AddNote appends a free-form note to the case.
func (c *Case) AddNote(note string) {
	c.mu.Lock()
	c.notes = append(c.notes, note)
	c.mu.Unlock()
	c.changed()
}

// Notes returns the notes of the case in insertion order.
func (c *Case) Notes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	notes := make([]string, len(c.notes))
	copy(notes, c.notes)
	return notes
}

// SetFirstLimpet records the rat that reached the client first.
func (c *Case) SetFirstLimpet(rat *Rat) {
	c.mu.Lock()
	c.firstLimpet = rat
	c.mu.Unlock()
	c.changed()
}

// FirstLimpet returns the rat that reached the client first, nil if
// not recorded.
func (c *Case) FirstLimpet() *Rat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.firstLimpet
}

// LookupAssociatedRat finds a rat on this case by IRC nickname,
// preferring assigned rats over unassigned callers. Returns nil when
// no rat matches.
func (c *Case) LookupAssociatedRat(ircName string) *Rat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rat := range c.rats {
		if rat.IRCName() == ircName {
			return rat
		}
	}
	for _, rat := range c.calls {
		if rat.IRCName() == ircName {
			return rat
		}
	}
	return nil
}

// Close closes the case and moves it from the registry's open map into
// the closed set. Closing an already closed case is a no-op.
func (c *Case) Close() {
	c.mu.Lock()
	if !c.closeTime.IsZero() {
		c.mu.Unlock()
		return
	}
	c.closeTime = time.Now()
	manager := c.manager
	c.mu.Unlock()
	if manager != nil {
		manager.caseClosed(c)
	}
}

// attach wires the case to its owning manager. Called by the manager
// when the case is registered.
func (c *Case) attach(manager *CaseManager) {
	c.mu.Lock()
	c.manager = manager
	c.mu.Unlock()
}

// changed publishes a change event through the owning manager, if any.
func (c *Case) changed() {
	c.mu.RLock()
	manager := c.manager
	c.mu.RUnlock()
	if manager != nil {
		manager.publish(Event{Kind: EventCaseUpdated, Case: c})
	}
}
