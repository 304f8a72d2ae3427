// Package view turns screen coordinates into map-image coordinates and
// tracks the zoom and pan of the map view, along with the pointer gestures
// that drive them.
package view

import (
	"math"

	"artillery-planner/grid"
)

const (
	MinZoom  = 1.0
	MaxZoom  = 10.0
	ZoomStep = 1.1

	// Wheel deltas reported in lines or pages are scaled to pixels.
	WheelLinePx = 40.0
	WheelPagePx = 400.0
)

// WheelMode is the unit of a wheel delta.
type WheelMode int

const (
	WheelPixels WheelMode = iota
	WheelLines
	WheelPages
)

// WheelPixelsDelta normalises a wheel delta to pixels.
func WheelPixelsDelta(delta float64, mode WheelMode) float64 {
	switch mode {
	case WheelLines:
		return delta * WheelLinePx
	case WheelPages:
		return delta * WheelPagePx
	}
	return delta
}

// Viewport is the on-screen box the map image is drawn into at zoom 1. The
// image fills the width and its height follows the image aspect ratio.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) valid() bool {
	return v.Width > 0 && v.Height > 0 && !math.IsInf(v.Width, 0) && !math.IsInf(v.Height, 0)
}

// contentSize is the drawn size of the image at zoom.
func (v Viewport) contentSize(zoom float64) (float64, float64) {
	w := v.Width * zoom
	return w, w * grid.MapHeightPx / grid.MapWidthPx
}

// Transform is the view's zoom and pan. Screen = content*Zoom + Pan.
type Transform struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// Identity is the reset view.
func Identity() Transform {
	return Transform{Zoom: MinZoom}
}

// ScreenToContent undoes the zoom and pan.
func (t Transform) ScreenToContent(sx, sy float64) (float64, float64) {
	return (sx - t.PanX) / t.Zoom, (sy - t.PanY) / t.Zoom
}

// ContentToScreen applies the zoom and pan.
func (t Transform) ContentToScreen(cx, cy float64) (float64, float64) {
	return cx*t.Zoom + t.PanX, cy*t.Zoom + t.PanY
}

// ScreenToMap converts a screen position in the viewport to an image pixel.
// ok is false when the viewport has no size or the point falls outside the
// drawn image.
func (t Transform) ScreenToMap(vp Viewport, sx, sy float64) (grid.PixelPos, bool) {
	if !vp.valid() || t.Zoom <= 0 {
		return grid.PixelPos{}, false
	}
	cx, cy := t.ScreenToContent(sx, sy)
	scale := grid.MapWidthPx / vp.Width
	p := grid.PixelPos{X: cx * scale, Y: cy * scale}
	if grid.ValidatePixel(p) != nil {
		return grid.PixelPos{}, false
	}
	return p, true
}

// MapToScreen is the inverse of ScreenToMap.
func (t Transform) MapToScreen(vp Viewport, p grid.PixelPos) (float64, float64) {
	scale := vp.Width / grid.MapWidthPx
	return t.ContentToScreen(p.X*scale, p.Y*scale)
}

// ZoomTo sets the zoom to z, clamped to [MinZoom, MaxZoom], keeping the
// content under (sx, sy) in place.
func (t Transform) ZoomTo(vp Viewport, sx, sy, z float64) Transform {
	if math.IsNaN(z) {
		return t
	}
	z = math.Max(MinZoom, math.Min(MaxZoom, z))
	cx, cy := t.ScreenToContent(sx, sy)
	next := Transform{Zoom: z, PanX: sx - cx*z, PanY: sy - cy*z}
	return next.Clamp(vp)
}

// ZoomBy multiplies the zoom by factor around (sx, sy).
func (t Transform) ZoomBy(vp Viewport, sx, sy, factor float64) Transform {
	return t.ZoomTo(vp, sx, sy, t.Zoom*factor)
}

// Wheel zooms one step in for a negative delta and one step out otherwise.
func (t Transform) Wheel(vp Viewport, sx, sy, deltaY float64) Transform {
	if deltaY == 0 {
		return t
	}
	factor := ZoomStep
	if deltaY > 0 {
		factor = 1 / ZoomStep
	}
	return t.ZoomBy(vp, sx, sy, factor)
}

// PanBy moves the view.
func (t Transform) PanBy(vp Viewport, dx, dy float64) Transform {
	t.PanX += dx
	t.PanY += dy
	return t.Clamp(vp)
}

// Clamp keeps the drawn content covering the viewport: pan is never positive
// and never moves the far edge of the content inside the viewport.
func (t Transform) Clamp(vp Viewport) Transform {
	t.Zoom = math.Max(MinZoom, math.Min(MaxZoom, t.Zoom))
	if !vp.valid() {
		return t
	}
	w, h := vp.contentSize(t.Zoom)
	t.PanX = clampPan(t.PanX, vp.Width-w)
	t.PanY = clampPan(t.PanY, vp.Height-h)
	return t
}

func clampPan(pan, lo float64) float64 {
	if lo > 0 {
		lo = 0
	}
	return math.Max(lo, math.Min(pan, 0))
}
