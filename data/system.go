package data

import "sync"

// System is the star system a client is (believed to be) stranded in.
type System struct {
	mu        sync.RWMutex
	name      string
	confirmed bool

	onChange func()
}

// NewSystem creates an unconfirmed System with the given name.
func NewSystem(name string) *System {
	return &System{name: name}
}

// Name returns the name of the system.
func (s *System) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Confirmed reports whether a rat has confirmed that the client is in
// fact in this system.
func (s *System) Confirmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed
}

// SetConfirmed sets the confirmed status of the system.
func (s *System) SetConfirmed(confirmed bool) {
	s.mu.Lock()
	s.confirmed = confirmed
	s.mu.Unlock()
	s.notify()
}

func (s *System) bind(onChange func()) {
	s.mu.Lock()
	s.onChange = onChange
	s.mu.Unlock()
}

func (s *System) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
