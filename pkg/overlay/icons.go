package overlay

import (
	"fmt"
	"path/filepath"
)

// LevelBuckets is the number of distinct volume level icons.
const LevelBuckets = 14

// LevelBucket maps a 0-100 level to a volume icon index in [0, LevelBuckets).
// Out of range levels are clamped first.
func LevelBucket(level int) int {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	return level * (LevelBuckets - 1) / 100
}

// IconSet resolves icon file paths inside a theme directory.
type IconSet struct {
	Dir string
}

// Path returns the icon path for a kind. The level is only used for
// volume-level overlays. Unknown kinds resolve to "".
func (s IconSet) Path(kind Kind, level int) string {
	var name string
	switch kind {
	case KindVolumeUp:
		name = "up.png"
	case KindVolumeDown:
		name = "down.png"
	case KindMute:
		name = "mute.png"
	case KindScrollAnchor:
		name = "anchor.png"
	case KindVolumeLevel:
		name = fmt.Sprintf("volume_%d.png", LevelBucket(level))
	default:
		return ""
	}
	return filepath.Join(s.Dir, name)
}
