package data

import (
	"sort"
	"sync"
)

// JumpsUnknown is the jump count of a rat that has not called yet.
const JumpsUnknown = -1

// Rat is a rescuer. A rat may be merely a caller (announced a jump
// count but is not assigned) or formally assigned to a case. Rats are
// shared mutable entities; the same Rat instance may be referenced from
// a case's call list and its assignment list.
type Rat struct {
	mu       sync.RWMutex
	id       Identity
	jumps    int
	assigned bool
	// Keyed by report type only: one report per type, newer replaces older.
	reports map[ReportType]Report

	onChange func()
}

// NewRat creates an unassigned Rat with the given IRC nickname and an
// unknown jump count.
func NewRat(ircName string) *Rat {
	return &Rat{
		id:      NewIdentity(ircName),
		jumps:   JumpsUnknown,
		reports: make(map[ReportType]Report),
	}
}

// IRCName returns the rat's IRC nickname.
func (r *Rat) IRCName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id.IRCName()
}

// CmdrName returns the rat's CMDR name, falling back to the IRC
// nickname when unset.
func (r *Rat) CmdrName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id.CmdrName()
}

// Platform returns the rat's platform.
func (r *Rat) Platform() Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id.platform
}

// SetCmdrName changes the rat's CMDR name.
func (r *Rat) SetCmdrName(cmdrName string) {
	r.mu.Lock()
	r.id.cmdrName = cmdrName
	r.mu.Unlock()
	r.notify()
}

// SetPlatform changes the rat's platform.
func (r *Rat) SetPlatform(platform Platform) {
	r.mu.Lock()
	r.id.platform = platform
	r.mu.Unlock()
	r.notify()
}

// Jumps returns the rat's announced jump count, JumpsUnknown if the
// rat has not called yet.
func (r *Rat) Jumps() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jumps
}

// SetJumps sets the rat's announced jump count.
func (r *Rat) SetJumps(jumps int) {
	r.mu.Lock()
	r.jumps = jumps
	r.mu.Unlock()
	r.notify()
}

// Assigned reports whether the rat has been formally assigned.
func (r *Rat) Assigned() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assigned
}

// SetAssigned marks the rat as formally assigned or not.
func (r *Rat) SetAssigned(assigned bool) {
	r.mu.Lock()
	r.assigned = assigned
	r.mu.Unlock()
	r.notify()
}

// InsertReport stores a report on the rat. A report of a type already
// present is replaced, regardless of polarity.
func (r *Rat) InsertReport(report Report) {
	r.mu.Lock()
	r.reports[report.Type] = report
	r.mu.Unlock()
	r.notify()
}

// Reports returns the rat's reports ordered by type.
func (r *Rat) Reports() []Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reports := make([]Report, 0, len(r.reports))
	for _, report := range r.reports {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Type < reports[j].Type
	})
	return reports
}

// SameUser reports whether the rat and the given identity refer to the
// same user, matching by IRC nickname.
func (r *Rat) SameUser(other *Rat) bool {
	if r == other {
		return true
	}
	return r.IRCName() == other.IRCName()
}

func (r *Rat) bind(onChange func()) {
	r.mu.Lock()
	r.onChange = onChange
	r.mu.Unlock()
}

func (r *Rat) notify() {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
