// Package planner is the interactive planning session: it owns the
// planning state, its undo history, the view transform and the pointer
// gestures, and turns input events into marker operations.
//
// A Planner is single threaded. Every method must be called from the goroutine
// (or under the lock) that owns it. Subscribers are notified synchronously,
// in mutation order.
package planner

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"artillery-planner/ballistics"
	"artillery-planner/game"
	"artillery-planner/grid"
	"artillery-planner/history"
	"artillery-planner/view"
)

// RemoveRadiusPx is the pick radius, in image pixels at zoom 1, used to find
// the marker to remove or the target to pair with.
const RemoveRadiusPx = 30.0

const trackTimeout = 5 * time.Second

// Tracker receives placement notifications. Failures are ignored.
type Tracker interface {
	TrackPlacement(ctx context.Context, kind game.Kind, weaponID string) error
}

// Change says which parts of the planner a notification is about.
type Change uint8

const (
	ChangePlan Change = 1 << iota
	ChangeSelection
	ChangeMode
	ChangeView
	ChangeSolutions
)

func (c Change) Has(f Change) bool { return c&f != 0 }

type subscriber struct {
	id int
	fn func(Change)
}

type Planner struct {
	state    game.State
	hist     *history.History
	mode     game.Kind
	selected *game.Ref
	weapon   string
	mapID    string

	view     view.Transform
	viewport view.Viewport
	pointer  view.PointerSession
	pinch    view.Pinch
	taps     view.TapDetector

	slots []slot

	subs    []subscriber
	nextSub int

	tracker Tracker
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a planner with an empty plan. tracker may be nil.
func New(undoLimit int, tracker Tracker, log zerolog.Logger) *Planner {
	return &Planner{
		state:    game.NewState(),
		hist:     history.New(undoLimit),
		mode:     game.KindEmitter,
		view:     view.Identity(),
		viewport: view.Viewport{Width: grid.MapWidthPx, Height: grid.MapHeightPx},
		tracker:  tracker,
		log:      log,
		now:      time.Now,
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (p *Planner) Subscribe(fn func(Change)) func() {
	id := p.nextSub
	p.nextSub++
	p.subs = append(p.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

func (p *Planner) notify(c Change) {
	for _, s := range p.subs {
		s.fn(c)
	}
}

// State returns a copy of the planning state.
func (p *Planner) State() game.State { return p.state.Clone() }
func (p *Planner) Mode() game.Kind { return p.mode }
func (p *Planner) Transform() view.Transform { return p.view }
func (p *Planner) MapID() string { return p.mapID }
func (p *Planner) Weapon() string { return p.weapon }
func (p *Planner) CanUndo() bool { return p.hist.CanUndo() }
func (p *Planner) CanRedo() bool { return p.hist.CanRedo() }

// Selection returns the selected marker, if any.
func (p *Planner) Selection() (game.Ref, bool) {
	if p.selected == nil {
		return game.Ref{}, false
	}
	return *p.selected, true
}

// apply runs fn on a copy of the state. When fn reports a change the old
// state goes onto the undo stack and the copy becomes current.
func (p *Planner) apply(fn func(s *game.State) bool) bool {
	next := p.state.Clone()
	if !fn(&next) {
		return false
	}
	p.hist.Push(p.state)
	p.state = next
	p.refreshSlots()
	return true
}

// SetMode chooses what the next click places.
func (p *Planner) SetMode(k game.Kind) {
	if k < game.KindEmitter || k > game.KindObserver || k == p.mode {
		return
	}
	p.mode = k
	p.notify(ChangeMode)
}

// Select marks a marker for the next click to move (or, for emitters,
// re-pair). Selecting a marker that does not exist is a no-op.
func (p *Planner) Select(ref game.Ref) bool {
	if ref.Index < 0 || ref.Index >= p.state.Count(ref.Kind) {
		return false
	}
	p.selected = &ref
	p.notify(ChangeSelection)
	return true
}

func (p *Planner) ClearSelection() {
	if p.selected == nil {
		return
	}
	p.selected = nil
	p.notify(ChangeSelection)
}

// SelectWeapon sets the weapon given to newly placed emitters.
func (p *Planner) SelectWeapon(id string) {
	p.weapon = id
	p.notify(ChangeMode)
}

// AssignWeapon changes the weapon of an existing emitter.
func (p *Planner) AssignWeapon(emitter int, id string) bool {
	ok := p.apply(func(s *game.State) bool {
		if emitter < 0 || emitter >= len(s.Emitters) || s.Emitters[emitter].WeaponID == id {
			return false
		}
		return s.SetEmitterWeapon(emitter, id)
	})
	if ok {
		p.notify(ChangePlan | ChangeSolutions)
	}
	return ok
}

// Pair points an emitter at a target by hand.
func (p *Planner) Pair(emitter, target int) bool {
	ok := p.apply(func(s *game.State) bool { return repair(s, emitter, target) })
	if ok {
		p.notify(ChangePlan | ChangeSolutions)
	}
	return ok
}

// repair points emitter at target, reporting false when it already does.
func repair(s *game.State, emitter, target int) bool {
	if cur, ok := s.PairedTarget(emitter); ok && cur == target {
		return false
	}
	return s.PairEmitter(emitter, target)
}

// Unpair clears an emitter's target.
func (p *Planner) Unpair(emitter int) bool {
	ok := p.apply(func(s *game.State) bool {
		if _, paired := s.PairedTarget(emitter); !paired {
			return false
		}
		return s.UnpairEmitter(emitter)
	})
	if ok {
		p.notify(ChangePlan | ChangeSolutions)
	}
	return ok
}

// SetWind validates and applies a new wind.
func (p *Planner) SetWind(w ballistics.Wind) error {
	if err := game.ValidateWind(w); err != nil {
		return err
	}
	if p.apply(func(s *game.State) bool {
		if s.Wind == w {
			return false
		}
		return s.SetWind(w) == nil
	}) {
		p.notify(ChangePlan | ChangeSolutions)
	}
	return nil
}

// ChangeMap switches map and clears every marker. The cleared markers can
// be brought back with Undo; the map choice itself is not undone.
func (p *Planner) ChangeMap(mapID string) {
	if mapID == p.mapID {
		return
	}
	p.mapID = mapID
	p.apply(func(s *game.State) bool {
		s.Clear()
		return true
	})
	p.selected = nil
	p.notify(ChangePlan | ChangeSelection | ChangeSolutions)
}

// Load replaces the plan, for example with one fetched from storage. Undo
// history and selection are cleared.
func (p *Planner) Load(mapID string, s game.State) {
	p.mapID = mapID
	p.state = s.Clone()
	p.hist.Reset()
	p.selected = nil
	p.refreshSlots()
	p.notify(ChangePlan | ChangeSelection | ChangeSolutions)
}

func (p *Planner) Undo() bool {
	prev, ok := p.hist.Undo(p.state)
	if !ok {
		return false
	}
	p.restore(prev)
	return true
}

func (p *Planner) Redo() bool {
	next, ok := p.hist.Redo(p.state)
	if !ok {
		return false
	}
	p.restore(next)
	return true
}

func (p *Planner) restore(s game.State) {
	p.state = s
	p.selected = nil
	p.refreshSlots()
	p.notify(ChangePlan | ChangeSelection | ChangeSolutions)
}

// pickRadius shrinks as the view zooms in, down to a fifth at zoom 5.
func (p *Planner) pickRadius() float64 {
	return RemoveRadiusPx / math.Min(p.view.Zoom, 5)
}

// ClickAt resolves a click at a viewport position. With a marker selected
// the click moves it, or re-pairs a selected emitter when the click lands on
// a target. Otherwise a marker of the current mode is placed.
func (p *Planner) ClickAt(sx, sy float64) bool {
	pos, ok := p.view.ScreenToMap(p.viewport, sx, sy)
	if !ok {
		return false
	}
	if p.selected != nil {
		return p.moveSelected(pos)
	}
	return p.place(pos)
}

func (p *Planner) place(pos grid.PixelPos) bool {
	kind := p.mode
	weapon := ""
	if kind == game.KindEmitter {
		weapon = p.weapon
	}
	if !p.apply(func(s *game.State) bool {
		_, err := s.Add(kind, pos, weapon)
		return err == nil
	}) {
		return false
	}

	p.track(kind, weapon)

	change := ChangePlan | ChangeSolutions
	switch kind {
	case game.KindEmitter:
		p.mode = game.KindTarget
		change |= ChangeMode
	case game.KindTarget:
		p.mode = game.KindEmitter
		change |= ChangeMode
	}
	p.notify(change)
	return true
}

func (p *Planner) moveSelected(pos grid.PixelPos) bool {
	ref := *p.selected
	p.selected = nil

	var changed bool
	if t, _, ok := p.state.Nearest(game.KindTarget, pos, p.pickRadius()); ok && ref.Kind == game.KindEmitter {
		changed = p.apply(func(s *game.State) bool { return repair(s, ref.Index, t) })
	} else {
		changed = p.apply(func(s *game.State) bool {
			moved, err := s.Move(ref.Kind, ref.Index, pos)
			return moved && err == nil
		})
	}

	change := ChangeSelection
	if changed {
		change |= ChangePlan | ChangeSolutions
	}
	p.notify(change)
	return changed
}

// RemoveAt removes the marker nearest to a viewport position, preferring
// markers of the current placement mode.
func (p *Planner) RemoveAt(sx, sy float64) bool {
	pos, ok := p.view.ScreenToMap(p.viewport, sx, sy)
	if !ok {
		return false
	}
	ref, ok := p.state.MarkerAt(p.mode, pos, p.pickRadius())
	if !ok {
		return false
	}
	return p.remove(ref)
}

// RemoveSelected removes the selected marker.
func (p *Planner) RemoveSelected() bool {
	if p.selected == nil {
		return false
	}
	return p.remove(*p.selected)
}

func (p *Planner) remove(ref game.Ref) bool {
	if !p.apply(func(s *game.State) bool {
		if !s.Remove(ref.Kind, ref.Index) {
			return false
		}
		if ref.Kind == game.KindEmitter && ref.Index < len(p.slots) {
			p.slots = append(p.slots[:ref.Index], p.slots[ref.Index+1:]...)
		}
		return true
	}) {
		return false
	}

	change := ChangePlan | ChangeSolutions
	if p.selected != nil {
		if next, ok := p.selected.AfterRemoval(ref.Kind, ref.Index); ok {
			p.selected = &next
		} else {
			p.selected = nil
		}
		change |= ChangeSelection
	}
	p.notify(change)
	return true
}

// SetViewport records the size of the on-screen map box.
func (p *Planner) SetViewport(width, height float64) bool {
	if !finite(width) || !finite(height) || width <= 0 || height <= 0 {
		return false
	}
	p.viewport = view.Viewport{Width: width, Height: height}
	p.setView(p.view.Clamp(p.viewport))
	return true
}

func (p *Planner) ResetView() {
	p.setView(view.Identity())
}

func (p *Planner) setView(t view.Transform) {
	if t == p.view {
		return
	}
	p.view = t
	p.notify(ChangeView)
}

func (p *Planner) track(kind game.Kind, weaponID string) {
	if p.tracker == nil {
		return
	}
	tracker, log := p.tracker, p.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()
		if err := tracker.TrackPlacement(ctx, kind, weaponID); err != nil {
			log.Debug().Err(err).Stringer("kind", kind).Msg("placement tracking failed")
		}
	}()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
