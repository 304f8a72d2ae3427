package game

import (
	"fmt"

	"artillery-planner/ballistics"
	"artillery-planner/grid"
)

// Record is the saved form of a State. Positions are in world meters and
// the emitter fields are parallel lists.
type Record struct {
	WeaponIDs []string        `json:"weaponIds"`
	Emitters  []grid.WorldPos `json:"emitterPositions"`
	Targets   []grid.WorldPos `json:"targetPositions"`
	Observers []grid.WorldPos `json:"observerPositions"`
	// Pairings holds one entry per emitter. A nil entry is unpaired. Plans
	// saved before pairings existed leave the list empty.
	Pairings []*int           `json:"pairingIndices"`
	Wind     *ballistics.Wind `json:"wind,omitempty"`
}

// Record converts the state to its saved form.
func (s State) Record() Record {
	r := Record{
		WeaponIDs: make([]string, len(s.Emitters)),
		Emitters:  make([]grid.WorldPos, len(s.Emitters)),
		Targets:   make([]grid.WorldPos, len(s.Targets)),
		Observers: make([]grid.WorldPos, len(s.Observers)),
		Pairings:  make([]*int, len(s.Emitters)),
	}
	for i, e := range s.Emitters {
		r.WeaponIDs[i] = e.WeaponID
		r.Emitters[i] = e.Pos.ToWorld()
		if t, ok := s.PairedTarget(i); ok {
			r.Pairings[i] = &t
		}
	}
	for i, p := range s.Targets {
		r.Targets[i] = p.ToWorld()
	}
	for i, p := range s.Observers {
		r.Observers[i] = p.ToWorld()
	}
	if s.Wind != (ballistics.Wind{}) {
		w := s.Wind
		r.Wind = &w
	}
	return r
}

// FromRecord rebuilds a State. Positions must be on the map. Pairings that
// point at missing targets load as unpaired, and a record without pairings
// pairs emitter i with target i.
func FromRecord(r Record) (State, error) {
	s := NewState()

	toPixels := func(list []grid.WorldPos, what string) ([]grid.PixelPos, error) {
		out := make([]grid.PixelPos, len(list))
		for i, p := range list {
			if err := grid.ValidateWorld(p); err != nil {
				return nil, fmt.Errorf("%s %d: %w", what, i, err)
			}
			out[i] = p.ToPixel()
		}
		return out, nil
	}

	emitters, err := toPixels(r.Emitters, "emitter")
	if err != nil {
		return State{}, err
	}
	if s.Targets, err = toPixels(r.Targets, "target"); err != nil {
		return State{}, err
	}
	if s.Observers, err = toPixels(r.Observers, "observer"); err != nil {
		return State{}, err
	}

	legacy := len(r.Pairings) == 0
	s.Emitters = make([]Emitter, len(emitters))
	for i, pos := range emitters {
		e := Emitter{Pos: pos, Target: NoTarget}
		if i < len(r.WeaponIDs) {
			e.WeaponID = r.WeaponIDs[i]
		}
		switch {
		case legacy && i < len(s.Targets):
			e.Target = i
		case i < len(r.Pairings) && r.Pairings[i] != nil:
			if t := *r.Pairings[i]; t >= 0 && t < len(s.Targets) {
				e.Target = t
			}
		}
		s.Emitters[i] = e
	}

	if r.Wind != nil {
		if err := s.SetWind(*r.Wind); err != nil {
			return State{}, err
		}
	}
	return s, nil
}
