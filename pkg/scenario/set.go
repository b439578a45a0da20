package scenario

import (
	"fmt"
	"sync"

	"github.com/stubkit/stubkit/internal/id"
)

// Set is a loaded configuration's scenarios in declaration order, with
// runtime enable/disable toggling that does not require a reload. A
// reload replaces the whole Set atomically rather than mutating one in
// place.
type Set struct {
	mu        sync.RWMutex
	scenarios []*Scenario
	byName    map[string]*Scenario
	enabled   map[string]bool
}

// NewSet builds a set from scenarios in declaration order. Scenario
// names must be unique; every scenario is validated.
func NewSet(scenarios []*Scenario) (*Set, error) {
	s := &Set{
		byName:  make(map[string]*Scenario, len(scenarios)),
		enabled: make(map[string]bool, len(scenarios)),
	}
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		if _, exists := s.byName[sc.Name]; exists {
			return nil, fmt.Errorf("duplicate scenario name %q", sc.Name)
		}
		for _, rt := range sc.Routes {
			if rt.ID == "" {
				rt.ID = id.Route()
			}
		}
		s.scenarios = append(s.scenarios, sc)
		s.byName[sc.Name] = sc
		s.enabled[sc.Name] = sc.IsEnabled()
	}
	return s, nil
}

// Active returns the enabled scenarios in declaration order.
func (s *Set) Active() []*Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make([]*Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		if s.enabled[sc.Name] {
			active = append(active, sc)
		}
	}
	return active
}

// All returns every scenario in declaration order, enabled or not.
func (s *Set) All() []*Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Scenario, len(s.scenarios))
	copy(out, s.scenarios)
	return out
}

// Get returns a scenario by name.
func (s *Set) Get(name string) (*Scenario, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.byName[name]
	return sc, ok
}

// IsEnabled reports the runtime enabled flag for a scenario.
func (s *Set) IsEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[name]
}

// SetEnabled toggles a scenario at runtime. Returns false when the name
// is unknown.
func (s *Set) SetEnabled(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[name]; !ok {
		return false
	}
	s.enabled[name] = enabled
	return true
}

// Len returns the number of scenarios.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenarios)
}
