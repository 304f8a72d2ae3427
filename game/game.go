// Package game holds the planning state: the placed emitters, targets and
// observers, each emitter's weapon and target pairing, and the wind.
//
// Every mutation is total. Indices that do not exist turn the call into a
// no-op. Positions are validated before they enter the state.
package game

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"artillery-planner/ballistics"
	"artillery-planner/grid"
)

// NoTarget marks an emitter that is not paired with any target.
const NoTarget = -1

type Emitter struct {
	Pos      grid.PixelPos `json:"pos"`
	WeaponID string        `json:"weaponId"`
	Target   int           `json:"target"`
}

type State struct {
	Emitters  []Emitter       `json:"emitters"`
	Targets   []grid.PixelPos `json:"targets"`
	Observers []grid.PixelPos `json:"observers"`
	Wind      ballistics.Wind `json:"wind"`
}

func NewState() State {
	return State{
		Emitters:  []Emitter{},
		Targets:   []grid.PixelPos{},
		Observers: []grid.PixelPos{},
	}
}

// Clone returns a deep copy. Undo snapshots are clones.
func (s State) Clone() State {
	c := State{
		Emitters:  make([]Emitter, len(s.Emitters)),
		Targets:   make([]grid.PixelPos, len(s.Targets)),
		Observers: make([]grid.PixelPos, len(s.Observers)),
		Wind:      s.Wind,
	}
	copy(c.Emitters, s.Emitters)
	copy(c.Targets, s.Targets)
	copy(c.Observers, s.Observers)
	return c
}

func (s *State) Count(kind Kind) int {
	switch kind {
	case KindEmitter:
		return len(s.Emitters)
	case KindTarget:
		return len(s.Targets)
	case KindObserver:
		return len(s.Observers)
	}
	return 0
}

// Position returns the image position of a marker.
func (s *State) Position(kind Kind, index int) (grid.PixelPos, bool) {
	if index < 0 || index >= s.Count(kind) {
		return grid.PixelPos{}, false
	}
	switch kind {
	case KindEmitter:
		return s.Emitters[index].Pos, true
	case KindTarget:
		return s.Targets[index], true
	default:
		return s.Observers[index], true
	}
}

// PairedTarget returns the target index emitter e aims at. Pairings that
// point past the end of the target list read as unpaired.
func (s *State) PairedTarget(e int) (int, bool) {
	if e < 0 || e >= len(s.Emitters) {
		return NoTarget, false
	}
	t := s.Emitters[e].Target
	if t < 0 || t >= len(s.Targets) {
		return NoTarget, false
	}
	return t, true
}

// AddEmitter appends an emitter and pairs it with the lowest-indexed target
// no other emitter aims at yet.
func (s *State) AddEmitter(pos grid.PixelPos, weaponID string) (int, error) {
	if err := grid.ValidatePixel(pos); err != nil {
		return 0, err
	}
	claimed := make([]bool, len(s.Targets))
	for i := range s.Emitters {
		if t, ok := s.PairedTarget(i); ok {
			claimed[t] = true
		}
	}
	target := NoTarget
	for i, taken := range claimed {
		if !taken {
			target = i
			break
		}
	}
	s.Emitters = append(s.Emitters, Emitter{Pos: pos, WeaponID: weaponID, Target: target})
	return len(s.Emitters) - 1, nil
}

// AddTarget appends a target and pairs the lowest-indexed unpaired emitter
// with it.
func (s *State) AddTarget(pos grid.PixelPos) (int, error) {
	if err := grid.ValidatePixel(pos); err != nil {
		return 0, err
	}
	s.Targets = append(s.Targets, pos)
	idx := len(s.Targets) - 1
	for i := range s.Emitters {
		if _, ok := s.PairedTarget(i); !ok {
			s.Emitters[i].Target = idx
			break
		}
	}
	return idx, nil
}

func (s *State) AddObserver(pos grid.PixelPos) (int, error) {
	if err := grid.ValidatePixel(pos); err != nil {
		return 0, err
	}
	s.Observers = append(s.Observers, pos)
	return len(s.Observers) - 1, nil
}

// Add places a marker of the given kind. weaponID only applies to emitters.
func (s *State) Add(kind Kind, pos grid.PixelPos, weaponID string) (int, error) {
	switch kind {
	case KindEmitter:
		return s.AddEmitter(pos, weaponID)
	case KindTarget:
		return s.AddTarget(pos)
	case KindObserver:
		return s.AddObserver(pos)
	}
	return 0, fmt.Errorf("add: %v", kind)
}

// PairEmitter points emitter e at target t, replacing its previous pairing.
func (s *State) PairEmitter(e, t int) bool {
	if e < 0 || e >= len(s.Emitters) || t < 0 || t >= len(s.Targets) {
		return false
	}
	s.Emitters[e].Target = t
	return true
}

func (s *State) UnpairEmitter(e int) bool {
	if e < 0 || e >= len(s.Emitters) {
		return false
	}
	s.Emitters[e].Target = NoTarget
	return true
}

func (s *State) SetEmitterWeapon(e int, weaponID string) bool {
	if e < 0 || e >= len(s.Emitters) {
		return false
	}
	s.Emitters[e].WeaponID = weaponID
	return true
}

// Move relocates a marker. A missing marker is a no-op and reports false.
func (s *State) Move(kind Kind, index int, pos grid.PixelPos) (bool, error) {
	if err := grid.ValidatePixel(pos); err != nil {
		return false, err
	}
	if index < 0 || index >= s.Count(kind) {
		return false, nil
	}
	switch kind {
	case KindEmitter:
		s.Emitters[index].Pos = pos
	case KindTarget:
		s.Targets[index] = pos
	case KindObserver:
		s.Observers[index] = pos
	}
	return true, nil
}

// Remove deletes a marker and shifts the later ones down. Removing a target
// unpairs the emitters that aimed at it and renumbers pairings above it.
func (s *State) Remove(kind Kind, index int) bool {
	if index < 0 || index >= s.Count(kind) {
		return false
	}
	switch kind {
	case KindEmitter:
		s.Emitters = append(s.Emitters[:index], s.Emitters[index+1:]...)
	case KindTarget:
		s.Targets = append(s.Targets[:index], s.Targets[index+1:]...)
		for i := range s.Emitters {
			switch t := s.Emitters[i].Target; {
			case t == index:
				s.Emitters[i].Target = NoTarget
			case t > index:
				s.Emitters[i].Target = t - 1
			}
		}
	case KindObserver:
		s.Observers = append(s.Observers[:index], s.Observers[index+1:]...)
	}
	return true
}

// SetWind validates and stores the wind.
func (s *State) SetWind(w ballistics.Wind) error {
	if err := ValidateWind(w); err != nil {
		return err
	}
	s.Wind = w
	return nil
}

// ValidateWind checks that direction is a finite bearing in [0, 360) and the
// strength is one of the game's levels.
func ValidateWind(w ballistics.Wind) error {
	if math.IsNaN(w.Direction) || math.IsInf(w.Direction, 0) || w.Direction < 0 || w.Direction >= 360 {
		return fmt.Errorf("wind direction %v outside [0, 360)", w.Direction)
	}
	if w.Strength < 0 || w.Strength > ballistics.MaxWindStrength {
		return fmt.Errorf("wind strength %d outside [0, %d]", w.Strength, ballistics.MaxWindStrength)
	}
	return nil
}

// Clear removes every marker. Wind is kept.
func (s *State) Clear() {
	s.Emitters = []Emitter{}
	s.Targets = []grid.PixelPos{}
	s.Observers = []grid.PixelPos{}
}

// Nearest finds the marker of kind closest to pos that is strictly within
// radius image pixels.
func (s *State) Nearest(kind Kind, pos grid.PixelPos, radius float64) (int, float64, bool) {
	best, bestDist := -1, radius
	p := r2.Vec{X: pos.X, Y: pos.Y}
	for i := 0; i < s.Count(kind); i++ {
		m, _ := s.Position(kind, i)
		d := r2.Norm(r2.Sub(r2.Vec{X: m.X, Y: m.Y}, p))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestDist, true
}

// MarkerAt finds the marker to act on at pos. Markers of the preferred kind
// win. Otherwise the nearest marker of any kind within radius is returned.
func (s *State) MarkerAt(preferred Kind, pos grid.PixelPos, radius float64) (Ref, bool) {
	if i, _, ok := s.Nearest(preferred, pos, radius); ok {
		return Ref{Kind: preferred, Index: i}, true
	}
	var (
		found    Ref
		bestDist = math.Inf(1)
		hit      bool
	)
	for _, k := range Kinds {
		if i, d, ok := s.Nearest(k, pos, radius); ok && d < bestDist {
			found, bestDist, hit = Ref{Kind: k, Index: i}, d, true
		}
	}
	return found, hit
}
