package store

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/sirupsen/logrus"
)

// expiryGrace keeps Animating true briefly after an event expires so the
// frame that removes it gets requested.
const expiryGrace = 100 * time.Millisecond

// Store is the overlay state for every window. All maps and the listener
// registry share one mutex; no I/O happens while it is held.
type Store struct {
	mu        sync.Mutex
	muted     map[string]struct{}
	events    map[string][]overlay.Event
	listeners []Listener

	timing      overlay.Timing
	icons       overlay.IconSet
	commandFile string
	signaler    Signaler
	now         func() time.Time
	truncate    func(path string) error
	logger      *logrus.Entry
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		muted:  make(map[string]struct{}),
		events: make(map[string][]overlay.Event),
		timing: overlay.DefaultTiming(),
		now:    time.Now,
		truncate: func(path string) error {
			return os.Truncate(path, 0)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return s
}

// SetTiming replaces the display and fade durations. Existing events are
// re-evaluated against the new timing on the next query.
func (s *Store) SetTiming(t overlay.Timing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timing = t
}

// Timing returns the current display and fade durations.
func (s *Store) Timing() overlay.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

// SetIconSet replaces the icon directory used for new descriptors.
func (s *Store) SetIconSet(icons overlay.IconSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.icons = icons
}

// OnMuteStateChanged replaces the mute set with the addresses listed in
// content, one per line, and always wakes the host.
func (s *Store) OnMuteStateChanged(content string) {
	muted := parseAddresses(content)

	s.mu.Lock()
	s.muted = muted
	sig := s.signaler
	s.mu.Unlock()

	s.logger.WithField("muted", len(muted)).Debug("Mute state changed")
	if sig != nil {
		sig.Signal()
	}
}

// OnOverlayCommand applies a batch of command lines, truncates the command
// file and wakes the host if any line was accepted. Empty content is what
// the monitor reports after our own truncation, so it is ignored.
func (s *Store) OnOverlayCommand(content string) {
	if content == "" {
		return
	}

	var cmds []command
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := parseCommand(line)
		if err != nil {
			s.logger.WithError(err).Debug("Skipping command line")
			continue
		}
		cmds = append(cmds, cmd)
	}

	start := s.now()

	s.mu.Lock()
	for _, cmd := range cmds {
		s.applyLocked(cmd, start)
	}
	sig := s.signaler
	commandFile := s.commandFile
	s.mu.Unlock()

	for _, cmd := range cmds {
		s.logger.WithFields(logrus.Fields{
			"verb":    cmd.verb,
			"address": cmd.address,
			"level":   cmd.level,
		}).Debug("Received command")
	}

	// Consume-once mailbox. A writer appending between our read and this
	// truncate loses its line.
	if commandFile != "" {
		if err := s.truncate(commandFile); err != nil && !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", commandFile).Warn("Failed to truncate command file")
		}
	}

	if len(cmds) > 0 && sig != nil {
		sig.Signal()
	}
}

func (s *Store) applyLocked(cmd command, start time.Time) {
	switch cmd.verb {
	case VerbScroll:
		anchor := cmd.anchor
		kept := s.events[cmd.address][:0:0]
		for _, ev := range s.events[cmd.address] {
			if ev.Kind != overlay.KindScrollAnchor {
				kept = append(kept, ev)
			}
		}
		s.events[cmd.address] = append(kept, overlay.Event{
			Kind:   overlay.KindScrollAnchor,
			Start:  start,
			Anchor: &anchor,
		})
	default:
		arrow := overlay.KindVolumeUp
		if cmd.verb == VerbVolumeDown {
			arrow = overlay.KindVolumeDown
		}
		// A new volume command supersedes every earlier event for the window.
		s.events[cmd.address] = []overlay.Event{
			{Kind: overlay.KindVolumeLevel, Start: start, Level: cmd.level},
			{Kind: arrow, Start: start, Level: cmd.level},
		}
	}
}

// OverlayInfo returns what to draw for address right now: the scroll
// anchor, then volume overlays in arrival order, then mute last. Expired
// events are dropped as a side effect.
func (s *Store) OverlayInfo(address string) []overlay.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlayInfoLocked(address, s.now())
}

func (s *Store) overlayInfoLocked(address string, now time.Time) []overlay.Descriptor {
	var anchors, volume []overlay.Descriptor

	if events, ok := s.events[address]; ok {
		live := events[:0]
		for _, ev := range events {
			opacity := s.timing.Opacity(now.Sub(ev.Start))
			if opacity <= 0 {
				continue
			}
			live = append(live, ev)

			d := overlay.Descriptor{
				Kind:     ev.Kind,
				Opacity:  opacity,
				IconPath: s.icons.Path(ev.Kind, ev.Level),
				Level:    ev.Level,
			}
			if ev.Anchor != nil {
				p := *ev.Anchor
				d.Position = &p
			}
			if ev.Kind == overlay.KindScrollAnchor {
				anchors = append(anchors, d)
			} else {
				volume = append(volume, d)
			}
		}
		if len(live) == 0 {
			delete(s.events, address)
		} else {
			s.events[address] = live
		}
	}

	result := append(anchors, volume...)

	if _, ok := s.muted[address]; ok {
		result = append(result, overlay.Descriptor{
			Kind:     overlay.KindMute,
			Opacity:  1.0,
			IconPath: s.icons.Path(overlay.KindMute, 0),
		})
	}

	return result
}

// Sweep drops expired events for every window and returns how many were
// removed. It does not wake the host.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	lifetime := s.timing.Lifetime()
	dropped := 0
	for addr, events := range s.events {
		live := events[:0]
		for _, ev := range events {
			if now.Sub(ev.Start) < lifetime {
				live = append(live, ev)
			} else {
				dropped++
			}
		}
		if len(live) == 0 {
			delete(s.events, addr)
		} else {
			s.events[addr] = live
		}
	}
	return dropped
}

// Animating reports whether any event is fading or has just expired, that
// is whether the host needs another frame without a new mutation.
func (s *Store) Animating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, events := range s.events {
		for _, ev := range events {
			e := now.Sub(ev.Start)
			if e >= s.timing.Display && e < s.timing.Lifetime()+expiryGrace {
				return true
			}
		}
	}
	return false
}

// Muted returns the muted addresses, sorted.
func (s *Store) Muted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.muted))
	for addr := range s.muted {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Addresses returns every address that is muted or has events, sorted.
func (s *Store) Addresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addressesLocked()
}

func (s *Store) addressesLocked() []string {
	seen := make(map[string]struct{}, len(s.muted)+len(s.events))
	for addr := range s.muted {
		seen[addr] = struct{}{}
	}
	for addr := range s.events {
		seen[addr] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns descriptors for every known address at one instant.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := Snapshot{
		Muted:     make([]string, 0, len(s.muted)),
		Overlays:  make(map[string][]overlay.Descriptor),
		Listeners: len(s.listeners),
	}
	for addr := range s.muted {
		snap.Muted = append(snap.Muted, addr)
	}
	sort.Strings(snap.Muted)
	for _, addr := range s.addressesLocked() {
		if descs := s.overlayInfoLocked(addr, now); len(descs) > 0 {
			snap.Overlays[addr] = descs
		}
	}
	return snap
}
