package view

import (
	"math"
	"time"
)

// Device is the kind of pointer producing events.
type Device int

const (
	Mouse Device = iota
	Touch
)

func (d Device) String() string {
	if d == Touch {
		return "touch"
	}
	return "mouse"
}

// DragThreshold is how far a pointer may travel from where it went down and
// still count as a click. Fingers get more slack than a mouse.
func (d Device) DragThreshold() float64 {
	if d == Touch {
		return 8
	}
	return 3
}

// LongPress is how long a touch must be held still to act as a secondary
// click.
const LongPress = 500 * time.Millisecond

// Gesture is how a finished pointer session was classified.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureClick
	GestureDrag
	GestureLongPress
)

func (g Gesture) String() string {
	switch g {
	case GestureClick:
		return "click"
	case GestureDrag:
		return "drag"
	case GestureLongPress:
		return "long-press"
	}
	return "none"
}

// PointerSession follows one press from down to up and decides whether it
// was a click or a drag. Once the pointer leaves the threshold it stays a
// drag.
type PointerSession struct {
	active   bool
	device   Device
	startX   float64
	startY   float64
	lastX    float64
	lastY    float64
	started  time.Time
	dragging bool
}

// Begin starts a session at (x, y).
func (p *PointerSession) Begin(d Device, x, y float64, at time.Time) {
	*p = PointerSession{
		active:  true,
		device:  d,
		startX:  x,
		startY:  y,
		lastX:   x,
		lastY:   y,
		started: at,
	}
}

func (p *PointerSession) Active() bool { return p.active }
func (p *PointerSession) Dragging() bool { return p.dragging }
func (p *PointerSession) Device() Device { return p.device }

// Move records a new pointer position. It returns the movement since the
// previous event and whether the session is a drag.
func (p *PointerSession) Move(x, y float64) (dx, dy float64, dragging bool) {
	if !p.active {
		return 0, 0, false
	}
	dx, dy = x-p.lastX, y-p.lastY
	p.lastX, p.lastY = x, y
	if !p.dragging {
		limit := p.device.DragThreshold()
		if math.Abs(x-p.startX) > limit || math.Abs(y-p.startY) > limit {
			p.dragging = true
		}
	}
	return dx, dy, p.dragging
}

// End finishes the session and classifies it.
func (p *PointerSession) End(x, y float64, at time.Time) Gesture {
	if !p.active {
		return GestureNone
	}
	p.Move(x, y)
	p.active = false
	switch {
	case p.dragging:
		return GestureDrag
	case p.device == Touch && at.Sub(p.started) >= LongPress:
		return GestureLongPress
	default:
		return GestureClick
	}
}

// Cancel drops the session without a gesture.
func (p *PointerSession) Cancel() {
	p.active = false
	p.dragging = false
}
