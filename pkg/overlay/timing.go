package overlay

import "time"

const (
	DefaultDisplay = 800 * time.Millisecond
	DefaultFade    = 100 * time.Millisecond
)

// Timing controls how long transient overlays stay fully visible and how
// long they take to fade out afterwards.
type Timing struct {
	Display time.Duration
	Fade    time.Duration
}

// DefaultTiming returns the stock 800ms display / 100ms fade timing.
func DefaultTiming() Timing {
	return Timing{Display: DefaultDisplay, Fade: DefaultFade}
}

// Lifetime is the total time a transient event is visible.
func (t Timing) Lifetime() time.Duration {
	return t.Display + t.Fade
}

// Opacity returns the opacity of a transient event that started elapsed ago.
// It is 1 until Display, falls linearly to 0 over Fade, and is exactly 0 from
// Display+Fade on.
func (t Timing) Opacity(elapsed time.Duration) float64 {
	if elapsed < t.Display {
		return 1.0
	}
	if elapsed >= t.Lifetime() {
		return 0.0
	}
	return 1.0 - float64(elapsed-t.Display)/float64(t.Fade)
}
