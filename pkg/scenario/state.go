package scenario

import "sync"

// State is the mutable key-value store one scenario's stateful template
// helpers read and write across requests. All access goes through the
// scenario's mutex, so concurrent requests against the same scenario
// observe consistent read-modify-write sequences.
type State struct {
	mu     sync.Mutex
	values map[string]any
}

// NewState creates an empty scenario state.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value under key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Increment adds delta to the integer counter stored under key and
// returns the new value. A missing or non-integer value counts as zero.
func (s *State) Increment(key string, delta int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, _ := s.values[key].(int64)
	current += delta
	s.values[key] = current
	return current
}

// IncrementFrom behaves like Increment by one, except a missing or
// non-integer value starts the counter at start instead of one.
func (s *State) IncrementFrom(key string, start int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.values[key].(int64)
	if !ok {
		current = start - 1
	}
	current++
	s.values[key] = current
	return current
}

// Keys returns the stored keys in unspecified order.
func (s *State) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Reset clears all stored values.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any)
}

// StateTable owns one State per scenario. States for different
// scenarios are fully independent, so requests against different
// scenarios never contend.
type StateTable struct {
	mu         sync.RWMutex
	byScenario map[string]*State
}

// NewStateTable creates an empty state table.
func NewStateTable() *StateTable {
	return &StateTable{byScenario: make(map[string]*State)}
}

// ForScenario returns the state for a scenario, creating it on first use.
func (t *StateTable) ForScenario(name string) *State {
	t.mu.RLock()
	s, ok := t.byScenario[name]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byScenario[name]; ok {
		return s
	}
	s = NewState()
	t.byScenario[name] = s
	return s
}

// Reset clears the state of one scenario.
func (t *StateTable) Reset(name string) {
	t.mu.RLock()
	s, ok := t.byScenario[name]
	t.mu.RUnlock()
	if ok {
		s.Reset()
	}
}

// Clear drops all scenario states.
func (t *StateTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byScenario = make(map[string]*State)
}
