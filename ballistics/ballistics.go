// Package ballistics computes firing solutions between two world positions.
//
// Positions are in meters with X growing east and Y growing south, the same
// axes as the map image. Bearings are compass degrees clockwise from north.
package ballistics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"artillery-planner/grid"
)

// WindDriftPerLevel is how far, in meters, one level of wind strength moves
// the point of impact.
const WindDriftPerLevel = 8.0

// MaxWindStrength is the strongest wind level the game reports.
const MaxWindStrength = 5

// Weapon holds the ballistic reference data of a weapon.
type Weapon struct {
	MinRange float64 `json:"minRange"`
	MaxRange float64 `json:"maxRange"`
	// AccuracyRadius is the dispersion at MinRange and at MaxRange.
	AccuracyRadius [2]float64 `json:"accRadius"`
}

// Wind is given as the compass direction it blows from. A zero Strength has
// no effect whatever the direction.
type Wind struct {
	Direction float64 `json:"direction"`
	Strength  int     `json:"strength"`
}

// Active reports whether the wind moves shells at all.
func (w Wind) Active() bool {
	return w.Strength > 0
}

// WindCorrection is the aim adjustment for wind. It is either fully present
// on a Solution or absent.
type WindCorrection struct {
	Bearing  float64 `json:"windBearing"`
	Distance float64 `json:"windDistance"`
	Offset   float64 `json:"windOffsetMagnitude"`
}

type Solution struct {
	Bearing        float64         `json:"bearing"`
	Distance       float64         `json:"distance"`
	InRange        bool            `json:"inRange"`
	AccuracyRadius float64         `json:"accuracyRadius"`
	Wind           *WindCorrection `json:"wind,omitempty"`
}

func vec(p grid.WorldPos) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Distance is the straight-line distance between a and b in meters.
func Distance(a, b grid.WorldPos) float64 {
	return r2.Norm(r2.Sub(vec(b), vec(a)))
}

// Bearing returns the compass bearing from one point to another in [0, 360).
func Bearing(from, to grid.WorldPos) float64 {
	d := r2.Sub(vec(to), vec(from))
	deg := math.Atan2(d.X, -d.Y) * 180 / math.Pi
	return normalizeDegrees(deg)
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// Tiny negative angles round up to exactly 360 after the addition.
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// AccuracyRadius interpolates the weapon's dispersion linearly between its
// minimum and maximum range. Distances outside the range use the nearest
// end. A weapon whose range has no span always reports the minimum-range
// value.
func AccuracyRadius(w Weapon, distance float64) float64 {
	span := w.MaxRange - w.MinRange
	if span <= 0 {
		return w.AccuracyRadius[0]
	}
	t := math.Max(0, math.Min(1, (distance-w.MinRange)/span))
	return w.AccuracyRadius[0] + t*(w.AccuracyRadius[1]-w.AccuracyRadius[0])
}

// WindOffset returns how far the wind moves a shell. The second result is
// false when the wind has no strength.
func WindOffset(w Wind) (r2.Vec, bool) {
	if !w.Active() {
		return r2.Vec{}, false
	}
	magnitude := float64(w.Strength) * WindDriftPerLevel
	// Shells drift toward the heading opposite to where the wind comes from.
	push := normalizeDegrees(w.Direction+180) * math.Pi / 180
	return r2.Vec{X: math.Sin(push) * magnitude, Y: -math.Cos(push) * magnitude}, true
}

// Solve computes the firing solution from emitter to target. wind may be nil.
func Solve(emitter, target grid.WorldPos, w Weapon, wind *Wind) Solution {
	dist := Distance(emitter, target)
	s := Solution{
		Bearing:        Bearing(emitter, target),
		Distance:       dist,
		InRange:        dist >= w.MinRange && dist <= w.MaxRange,
		AccuracyRadius: AccuracyRadius(w, dist),
	}
	if wind == nil {
		return s
	}
	offset, ok := WindOffset(*wind)
	if !ok {
		return s
	}

	aim := r2.Sub(vec(target), offset)
	aimPos := grid.WorldPos{X: aim.X, Y: aim.Y}
	s.Wind = &WindCorrection{
		Bearing:  Bearing(emitter, aimPos),
		Distance: Distance(emitter, aimPos),
		Offset:   r2.Norm(offset),
	}
	return s
}
