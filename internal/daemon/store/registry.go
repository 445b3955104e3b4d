package store

// RegisterListener adds l to the broadcast set. Registering twice is a no-op.
func (s *Store) RegisterListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.listeners {
		if existing == l {
			return
		}
	}
	s.listeners = append(s.listeners, l)
}

// UnregisterListener removes l. Unknown listeners are ignored.
func (s *Store) UnregisterListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (s *Store) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// NotifyListeners damages every registered listener. It is the notifier's
// wake callback and runs on the host loop thread. The registry is copied
// under the lock and Damage runs without it, so a listener may query the
// store or unregister itself from Damage.
func (s *Store) NotifyListeners() {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.Damage()
	}
}
