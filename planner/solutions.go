package planner

import (
	"context"

	"artillery-planner/ballistics"
	"artillery-planner/catalog"
	"artillery-planner/grid"
)

// Calculator computes a firing solution, usually by calling the planning
// service.
type Calculator interface {
	Calculate(ctx context.Context, key SolutionKey) (ballistics.Solution, error)
}

type CalculatorFunc func(ctx context.Context, key SolutionKey) (ballistics.Solution, error)

func (f CalculatorFunc) Calculate(ctx context.Context, key SolutionKey) (ballistics.Solution, error) {
	return f(ctx, key)
}

// SolutionKey is every input a firing solution depends on. A result is only
// kept while its key still matches the emitter it was requested for.
type SolutionKey struct {
	Emitter  grid.WorldPos
	Target   grid.WorldPos
	WeaponID string
	// Wind is the zero value when calm, so direction changes without
	// strength do not invalidate solutions.
	Wind ballistics.Wind
}

// WindInput returns the wind to send with the request, nil when calm.
func (k SolutionKey) WindInput() *ballistics.Wind {
	if !k.Wind.Active() {
		return nil
	}
	w := k.Wind
	return &w
}

type SolutionStatus int

const (
	// SolutionNone means the emitter has no weapon or no target.
	SolutionNone SolutionStatus = iota
	SolutionPending
	SolutionReady
	SolutionFailed
)

func (s SolutionStatus) String() string {
	switch s {
	case SolutionPending:
		return "pending"
	case SolutionReady:
		return "ready"
	case SolutionFailed:
		return "failed"
	}
	return "none"
}

func (s SolutionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type SolutionRequest struct {
	Emitter int
	Key     SolutionKey
}

type SolutionResult struct {
	Emitter  int
	Key      SolutionKey
	Solution ballistics.Solution
	Err      error
}

type slot struct {
	key        SolutionKey
	status     SolutionStatus
	dispatched bool
	solution   ballistics.Solution
}

func (p *Planner) keyFor(i int) (SolutionKey, bool) {
	e := p.state.Emitters[i]
	if e.WeaponID == "" || e.WeaponID == catalog.UnassignedWeapon {
		return SolutionKey{}, false
	}
	t, ok := p.state.PairedTarget(i)
	if !ok {
		return SolutionKey{}, false
	}
	k := SolutionKey{
		Emitter:  e.Pos.ToWorld(),
		Target:   p.state.Targets[t].ToWorld(),
		WeaponID: e.WeaponID,
	}
	if p.state.Wind.Active() {
		k.Wind = p.state.Wind
	}
	return k, true
}

// refreshSlots lines the solution slots up with the emitters. Slots whose
// inputs changed become pending again.
func (p *Planner) refreshSlots() {
	n := len(p.state.Emitters)
	if len(p.slots) > n {
		p.slots = p.slots[:n]
	}
	for len(p.slots) < n {
		p.slots = append(p.slots, slot{})
	}
	for i := range p.slots {
		s := &p.slots[i]
		key, ok := p.keyFor(i)
		switch {
		case !ok:
			*s = slot{}
		case s.status == SolutionNone || s.key != key:
			*s = slot{key: key, status: SolutionPending}
		}
	}
}

// TakeRequests returns the solutions that still need computing and marks
// them as sent.
func (p *Planner) TakeRequests() []SolutionRequest {
	var reqs []SolutionRequest
	for i := range p.slots {
		s := &p.slots[i]
		if s.status == SolutionPending && !s.dispatched {
			s.dispatched = true
			reqs = append(reqs, SolutionRequest{Emitter: i, Key: s.key})
		}
	}
	return reqs
}

// ApplySolution stores a computed solution. Results for inputs that have
// changed since the request was made are discarded and false is returned.
func (p *Planner) ApplySolution(res SolutionResult) bool {
	i, ok := p.pendingSlot(res)
	if !ok {
		p.log.Debug().Int("emitter", res.Emitter).Msg("discarding stale firing solution")
		return false
	}
	s := &p.slots[i]
	if res.Err != nil {
		p.log.Debug().Err(res.Err).Int("emitter", i).Msg("firing solution failed")
		s.status = SolutionFailed
	} else {
		s.status = SolutionReady
		s.solution = res.Solution
	}
	p.notify(ChangeSolutions)
	return true
}

// pendingSlot finds the slot waiting for res. Removing an earlier emitter
// shifts slots down while requests are in flight, so when the requested
// index no longer holds the key the other slots are searched for it.
func (p *Planner) pendingSlot(res SolutionResult) (int, bool) {
	waiting := func(i int) bool {
		s := p.slots[i]
		return s.status == SolutionPending && s.dispatched && s.key == res.Key
	}
	if res.Emitter >= 0 && res.Emitter < len(p.slots) && waiting(res.Emitter) {
		return res.Emitter, true
	}
	for i := range p.slots {
		if waiting(i) {
			return i, true
		}
	}
	return 0, false
}

// Solution returns the status of an emitter's firing solution and the
// solution itself once ready.
func (p *Planner) Solution(emitter int) (SolutionStatus, *ballistics.Solution) {
	if emitter < 0 || emitter >= len(p.slots) {
		return SolutionNone, nil
	}
	s := p.slots[emitter]
	if s.status != SolutionReady {
		return s.status, nil
	}
	sol := s.solution
	return s.status, &sol
}

// Resolve runs each request on its own goroutine and passes the results to
// deliver, which must hand them back to the planner's owner. There is no
// ordering between results.
func Resolve(ctx context.Context, calc Calculator, reqs []SolutionRequest, deliver func(SolutionResult)) {
	for _, r := range reqs {
		go func(r SolutionRequest) {
			sol, err := calc.Calculate(ctx, r.Key)
			deliver(SolutionResult{Emitter: r.Emitter, Key: r.Key, Solution: sol, Err: err})
		}(r)
	}
}
