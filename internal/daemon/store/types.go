// Package store holds the per-window overlay state: the mute set, the
// time-decaying event table and the registry of listeners to damage when
// state changes.
package store

import (
	"time"

	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/sirupsen/logrus"
)

// Listener is a window that redraws its overlays when damaged. Damage runs
// on the host loop thread. Listeners are compared with ==, so use pointer
// types.
type Listener interface {
	Damage()
}

// Signaler wakes the host loop thread. *notifier.Notifier implements it.
type Signaler interface {
	Signal()
}

// Option configures a Store.
type Option func(*Store)

// WithTiming sets the display and fade durations.
func WithTiming(t overlay.Timing) Option {
	return func(s *Store) {
		s.timing = t
	}
}

// WithIconSet sets where icon paths in descriptors point.
func WithIconSet(icons overlay.IconSet) Option {
	return func(s *Store) {
		s.icons = icons
	}
}

// WithCommandFile sets the command file truncated after each batch.
func WithCommandFile(path string) Option {
	return func(s *Store) {
		s.commandFile = path
	}
}

// WithSignaler sets the wake channel used after mutations.
func WithSignaler(sig Signaler) Option {
	return func(s *Store) {
		s.signaler = sig
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithTruncate replaces the function used to empty the command file.
func WithTruncate(fn func(path string) error) Option {
	return func(s *Store) {
		s.truncate = fn
	}
}

// Snapshot is a point-in-time summary of the store for inspection.
type Snapshot struct {
	Muted     []string                        `json:"muted"`
	Overlays  map[string][]overlay.Descriptor `json:"overlays"`
	Listeners int                             `json:"listeners"`
}
