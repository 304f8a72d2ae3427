package planner

import (
	"fmt"

	"artillery-planner/ballistics"
	"artillery-planner/game"
	"artillery-planner/grid"
	"artillery-planner/view"
)

// MarkerStatus describes one placed marker for display.
type MarkerStatus struct {
	Index int           `json:"index"`
	Label string        `json:"label"`
	Pos   grid.PixelPos `json:"pos"`
	World grid.WorldPos `json:"world"`
	Grid  string        `json:"grid"`
}

type EmitterStatus struct {
	MarkerStatus
	WeaponID       string               `json:"weaponId"`
	Target         *int                 `json:"target"`
	SolutionStatus SolutionStatus       `json:"solutionStatus"`
	Solution       *ballistics.Solution `json:"solution"`
}

// Status is everything a renderer needs to draw the planner.
type Status struct {
	MapID     string          `json:"mapId"`
	Mode      game.Kind       `json:"mode"`
	Weapon    string          `json:"weapon"`
	Selected  *game.Ref       `json:"selected"`
	Wind      ballistics.Wind `json:"wind"`
	View      view.Transform  `json:"view"`
	Viewport  view.Viewport   `json:"viewport"`
	Emitters  []EmitterStatus `json:"emitters"`
	Targets   []MarkerStatus  `json:"targets"`
	Observers []MarkerStatus  `json:"observers"`
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
}

// markerLabel numbers markers only when there is more than one of a kind.
func markerLabel(base string, index, total int) string {
	if total <= 1 {
		return base
	}
	return fmt.Sprintf("%s %d", base, index+1)
}

func markerStatus(base string, i, total int, pos grid.PixelPos) MarkerStatus {
	w := pos.ToWorld()
	return MarkerStatus{
		Index: i,
		Label: markerLabel(base, i, total),
		Pos:   pos,
		World: w,
		Grid:  grid.Label(w),
	}
}

func (p *Planner) Status() Status {
	st := Status{
		MapID:     p.mapID,
		Mode:      p.mode,
		Weapon:    p.weapon,
		Wind:      p.state.Wind,
		View:      p.view,
		Viewport:  p.viewport,
		Emitters:  make([]EmitterStatus, len(p.state.Emitters)),
		Targets:   make([]MarkerStatus, len(p.state.Targets)),
		Observers: make([]MarkerStatus, len(p.state.Observers)),
		CanUndo:   p.hist.CanUndo(),
		CanRedo:   p.hist.CanRedo(),
	}
	if ref, ok := p.Selection(); ok {
		st.Selected = &ref
	}

	for i, e := range p.state.Emitters {
		es := EmitterStatus{
			MarkerStatus: markerStatus("GUN", i, len(p.state.Emitters), e.Pos),
			WeaponID:     e.WeaponID,
		}
		if t, ok := p.state.PairedTarget(i); ok {
			es.Target = &t
		}
		es.SolutionStatus, es.Solution = p.Solution(i)
		st.Emitters[i] = es
	}
	for i, t := range p.state.Targets {
		st.Targets[i] = markerStatus("TARGET", i, len(p.state.Targets), t)
	}
	for i, o := range p.state.Observers {
		st.Observers[i] = markerStatus("SPOTTER", i, len(p.state.Observers), o)
	}
	return st
}
