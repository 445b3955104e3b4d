package overlay

import "image"

// Position is where an overlay icon sits inside its window.
type Position string

const (
	PositionCenter       Position = "center"
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomCenter Position = "bottom-center"
)

// Positions lists every supported position.
var Positions = []Position{
	PositionCenter,
	PositionTopLeft,
	PositionTopRight,
	PositionBottomLeft,
	PositionBottomRight,
	PositionTopCenter,
	PositionBottomCenter,
}

// ParsePosition parses a position name. Unknown names fall back to center.
func ParsePosition(s string) Position {
	for _, p := range Positions {
		if string(p) == s {
			return p
		}
	}
	return PositionCenter
}

// Place returns the top-left corner for an icon of the given size placed at
// pos inside window, keeping pad pixels away from the edges.
func Place(window image.Rectangle, icon image.Point, pos Position, pad int) image.Point {
	w, h := window.Dx(), window.Dy()
	left := window.Min.X + pad
	right := window.Min.X + w - icon.X - pad
	top := window.Min.Y + pad
	bottom := window.Min.Y + h - icon.Y - pad
	midX := window.Min.X + (w-icon.X)/2
	midY := window.Min.Y + (h-icon.Y)/2

	switch pos {
	case PositionTopLeft:
		return image.Pt(left, top)
	case PositionTopRight:
		return image.Pt(right, top)
	case PositionBottomLeft:
		return image.Pt(left, bottom)
	case PositionBottomRight:
		return image.Pt(right, bottom)
	case PositionTopCenter:
		return image.Pt(midX, top)
	case PositionBottomCenter:
		return image.Pt(midX, bottom)
	default:
		return image.Pt(midX, midY)
	}
}

// Layout maps overlay kinds to positions inside a window.
type Layout struct {
	Padding   int
	Positions map[Kind]Position
}

// DefaultLayout centers every overlay with a 10px padding.
func DefaultLayout() Layout {
	return Layout{Padding: 10}
}

// Bounds returns the screen rectangle an overlay icon should be drawn into.
// Descriptors carrying their own position (scroll anchors) are centered on
// that point, relative to the window origin.
func (l Layout) Bounds(d Descriptor, window image.Rectangle, icon image.Point) image.Rectangle {
	var origin image.Point
	switch {
	case d.Position != nil:
		origin = window.Min.Add(*d.Position).Sub(icon.Div(2))
	default:
		pos, ok := l.Positions[d.Kind]
		if !ok {
			pos = PositionCenter
		}
		origin = Place(window, icon, pos, l.Padding)
	}
	return image.Rectangle{Min: origin, Max: origin.Add(icon)}
}
