package view

import (
	"math"
	"time"
)

// Point is a screen position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Pinch tracks a two-finger zoom. The zoom follows the ratio of the current
// finger separation to the separation when the pinch began.
type Pinch struct {
	active      bool
	initialDist float64
	initialZoom float64
}

func (p *Pinch) Active() bool { return p.active }

// Begin starts a pinch with the view as it is now.
func (p *Pinch) Begin(a, b Point, t Transform) {
	d := a.dist(b)
	if d <= 0 {
		return
	}
	*p = Pinch{active: true, initialDist: d, initialZoom: t.Zoom}
}

// Update returns the transform for the fingers at a and b, anchored at their
// midpoint.
func (p *Pinch) Update(vp Viewport, a, b Point, current Transform) Transform {
	if !p.active {
		return current
	}
	d := a.dist(b)
	if d <= 0 {
		return current
	}
	mid := midpoint(a, b)
	return current.ZoomTo(vp, mid.X, mid.Y, p.initialZoom*d/p.initialDist)
}

func (p *Pinch) End() {
	p.active = false
}

// Double-tap limits.
const (
	DoubleTapWindow = 300 * time.Millisecond
	DoubleTapSlop   = 30.0
)

// TapDetector recognises two taps close together in time and space.
type TapDetector struct {
	last    Point
	lastAt  time.Time
	pending bool
}

// Tap records a tap and reports whether it completes a double tap.
func (d *TapDetector) Tap(p Point, at time.Time) bool {
	if d.pending && at.Sub(d.lastAt) <= DoubleTapWindow && p.dist(d.last) <= DoubleTapSlop {
		d.pending = false
		return true
	}
	d.last, d.lastAt, d.pending = p, at, true
	return false
}

func (d *TapDetector) Reset() {
	d.pending = false
}
