// internal/pipeline/state.go
package pipeline

import "sync"

// State carries values between steps of one pipeline, e.g. the token
// address resolved after creation.
type State struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

func NewState() *State {
	return &State{values: make(map[string]interface{})}
}

func (s *State) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *State) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Lookup returns the value under key when it exists and has type T.
func Lookup[T any](s *State, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
