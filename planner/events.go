package planner

import (
	"strings"
	"time"

	"artillery-planner/game"
	"artillery-planner/view"
)

type Button int

const (
	Primary Button = iota
	Secondary
)

type Phase int

const (
	PointerDown Phase = iota
	PointerMove
	PointerUp
	PointerCancel
)

// PointerEvent is a mouse or touch event in viewport coordinates.
type PointerEvent struct {
	Phase  Phase
	Device view.Device
	Button Button
	X, Y   float64
	// At defaults to the planner clock when zero.
	At time.Time
}

type KeyEvent struct {
	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
}

// HandlePointer feeds one pointer event through click and drag detection.
// Drags pan the view, clicks place or move markers, and a secondary press
// or a long touch removes the marker under the pointer.
func (p *Planner) HandlePointer(ev PointerEvent) {
	if !finite(ev.X) || !finite(ev.Y) {
		return
	}
	if ev.At.IsZero() {
		ev.At = p.now()
	}

	switch ev.Phase {
	case PointerDown:
		if ev.Button == Secondary {
			p.RemoveAt(ev.X, ev.Y)
			return
		}
		if p.pinch.Active() {
			return
		}
		p.pointer.Begin(ev.Device, ev.X, ev.Y, ev.At)

	case PointerMove:
		p.dragTo(ev.X, ev.Y)

	case PointerUp:
		if ev.Button == Secondary || !p.pointer.Active() {
			return
		}
		p.dragTo(ev.X, ev.Y)
		switch p.pointer.End(ev.X, ev.Y, ev.At) {
		case view.GestureClick:
			if ev.Device == view.Touch && p.taps.Tap(view.Point{X: ev.X, Y: ev.Y}, ev.At) {
				p.ResetView()
				return
			}
			p.ClickAt(ev.X, ev.Y)
		case view.GestureLongPress:
			p.RemoveAt(ev.X, ev.Y)
		}

	case PointerCancel:
		p.pointer.Cancel()
	}
}

func (p *Planner) dragTo(x, y float64) {
	if p.pinch.Active() || !p.pointer.Active() {
		return
	}
	dx, dy, dragging := p.pointer.Move(x, y)
	if !dragging || (dx == 0 && dy == 0) {
		return
	}
	p.setView(p.view.PanBy(p.viewport, dx, dy))
}

// HandleTouches receives the full set of active touch points. Two touches
// pinch-zoom the view; anything else ends a pinch.
func (p *Planner) HandleTouches(points []view.Point) {
	for _, pt := range points {
		if !finite(pt.X) || !finite(pt.Y) {
			return
		}
	}
	if len(points) != 2 {
		p.pinch.End()
		return
	}
	p.pointer.Cancel()
	p.taps.Reset()
	if !p.pinch.Active() {
		p.pinch.Begin(points[0], points[1], p.view)
		return
	}
	p.setView(p.pinch.Update(p.viewport, points[0], points[1], p.view))
}

// HandleWheel zooms one step at the cursor. deltaY is in pixels.
func (p *Planner) HandleWheel(x, y, deltaY float64) {
	if !finite(x) || !finite(y) || !finite(deltaY) {
		return
	}
	p.setView(p.view.Wheel(p.viewport, x, y, deltaY))
}

// HandleDoubleClick resets the view.
func (p *Planner) HandleDoubleClick() {
	p.ResetView()
}

// HandleKey applies a keyboard shortcut. It reports whether the key was
// used.
func (p *Planner) HandleKey(ev KeyEvent) bool {
	key := strings.ToLower(ev.Key)
	if ev.Ctrl || ev.Meta {
		if key != "z" {
			return false
		}
		if ev.Shift {
			return p.Redo()
		}
		return p.Undo()
	}

	switch key {
	case "1", "g":
		p.SetMode(game.KindEmitter)
	case "2", "t":
		p.SetMode(game.KindTarget)
	case "3", "s":
		p.SetMode(game.KindObserver)
	case "delete", "backspace":
		return p.RemoveSelected()
	case "r":
		p.ResetView()
	case "escape":
		p.ClearSelection()
	default:
		return false
	}
	return true
}
