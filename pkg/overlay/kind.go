// Package overlay defines the overlay kinds, events and render descriptors
// shared by the state store, the asset cache and host renderers.
package overlay

import (
	"fmt"
	"image"
	"time"
)

// Kind identifies what an overlay signals.
type Kind string

const (
	KindMute         Kind = "mute"
	KindVolumeUp     Kind = "volume-up"
	KindVolumeDown   Kind = "volume-down"
	KindVolumeLevel  Kind = "volume-level"
	KindScrollAnchor Kind = "scroll-anchor"
)

// Kinds lists every overlay kind in render order (bottom layer first).
var Kinds = []Kind{KindScrollAnchor, KindVolumeLevel, KindVolumeUp, KindVolumeDown, KindMute}

// ParseKind parses a kind name as used in configuration files.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown overlay kind %q", s)
}

// Transient reports whether overlays of this kind fade out over time.
// Mute is the only persistent kind.
func (k Kind) Transient() bool {
	switch k {
	case KindVolumeUp, KindVolumeDown, KindVolumeLevel, KindScrollAnchor:
		return true
	default:
		return false
	}
}

// Event is a timestamped overlay occurrence for one window. Events are never
// mutated after creation; the store replaces or drops them.
type Event struct {
	Kind  Kind
	Start time.Time
	Level int
	// Anchor is set for scroll-anchor events and is relative to the window origin.
	Anchor *image.Point
}

// Descriptor is a render instruction computed for a single query.
type Descriptor struct {
	Kind     Kind         `json:"kind"`
	Opacity  float64      `json:"opacity"`
	IconPath string       `json:"icon_path"`
	Level    int          `json:"level"`
	Position *image.Point `json:"position,omitempty"`
}
