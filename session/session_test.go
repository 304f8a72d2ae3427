package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artillery-planner/ballistics"
	"artillery-planner/config"
	"artillery-planner/game"
	"artillery-planner/grid"
	"artillery-planner/planner"
	"artillery-planner/service"
	"artillery-planner/store"
)

type fakeBackend struct {
	mu    sync.Mutex
	plans map[string]store.Plan
	calcs int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{plans: map[string]store.Plan{}}
}

func (f *fakeBackend) TrackPlacement(context.Context, game.Kind, string) error { return nil }

func (f *fakeBackend) Calculate(_ context.Context, emitter, target grid.WorldPos, weaponID string, _ *ballistics.Wind) (ballistics.Solution, error) {
	f.mu.Lock()
	f.calcs++
	f.mu.Unlock()
	if weaponID != "mortar" {
		return ballistics.Solution{}, errors.New("unknown weapon")
	}
	return ballistics.Solution{Distance: ballistics.Distance(emitter, target), InRange: true}, nil
}

func (f *fakeBackend) CreatePlan(_ context.Context, req service.PlanRequest) (store.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := store.Plan{ID: "saved-1", Name: req.Name, MapID: req.MapID, Record: req.Record}
	f.plans[p.ID] = p
	return p, nil
}

func (f *fakeBackend) FetchPlan(_ context.Context, id string) (store.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return store.Plan{}, store.ErrNotFound
	}
	return p, nil
}

func newTestManager(t *testing.T, maxSessions int) (*Manager, *fakeBackend) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MaxSessions = maxSessions
	b := newFakeBackend()
	return NewManager(cfg, b, zerolog.Nop()), b
}

func makeCommand(t *testing.T, msgType string, payload any) ClientMessage {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
	}
	return ClientMessage{Type: msgType, Payload: raw}
}

func newPlanner() *planner.Planner {
	return planner.New(0, nil, zerolog.Nop())
}

func clickAt(t *testing.T, p *planner.Planner, x, y float64) {
	t.Helper()
	for _, phase := range []string{"down", "up"} {
		cmd := makeCommand(t, "pointer", PointerPayload{Phase: phase, X: x, Y: y})
		require.NoError(t, processCommand(cmd, p))
	}
}

func TestNewManager(t *testing.T) {
	m, _ := newTestManager(t, 10)

	if m.maxSessions != 10 {
		t.Errorf("expected maxSessions 10, got %d", m.maxSessions)
	}
	if len(m.sessions) != 0 {
		t.Errorf("expected 0 sessions, got %d", len(m.sessions))
	}
}

func TestManagerReset(t *testing.T) {
	m, _ := newTestManager(t, 10)
	_, err := m.Create()
	require.NoError(t, err)

	m.Reset()

	if len(m.sessions) != 0 {
		t.Errorf("expected 0 sessions after reset, got %d", len(m.sessions))
	}
}

func TestSessionLimit(t *testing.T) {
	m, _ := newTestManager(t, 2)
	a, err := m.Create()
	require.NoError(t, err)
	_, err = m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	assert.ErrorIs(t, err, ErrSessionLimit)

	got, ok := m.Get(a.ID)
	assert.True(t, ok)
	assert.Same(t, a, got)
}

// leave marks s as joined by a client that has since disconnected, last seen
// at the given time.
func leave(s *Session, at time.Time) {
	s.mu.Lock()
	s.joined = true
	s.conn = nil
	s.lastSeen = at
	s.mu.Unlock()
}

func TestDisconnectedSessionsAreEvicted(t *testing.T) {
	m, _ := newTestManager(t, 2)
	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)

	now := time.Now()
	leave(a, now.Add(-2*time.Minute))
	leave(b, now.Add(-time.Minute))

	// Room is made for more sessions than the limit once clients leave.
	for i := 0; i < 4; i++ {
		s, err := m.Create()
		require.NoError(t, err, "session %d", i)
		leave(s, now.Add(time.Duration(i)*time.Second))
	}
	assert.Len(t, m.sessions, 2)

	_, ok := m.Get(a.ID)
	assert.False(t, ok, "oldest session should go first")
	_, ok = m.Get(b.ID)
	assert.False(t, ok)
}

func TestUnjoinedSessionEvictedAfterTimeout(t *testing.T) {
	m, _ := newTestManager(t, 1)
	a, err := m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	require.ErrorIs(t, err, ErrSessionLimit)

	a.mu.Lock()
	a.lastSeen = time.Now().Add(-m.timeout - time.Second)
	a.mu.Unlock()

	b, err := m.Create()
	require.NoError(t, err)
	_, ok := m.Get(a.ID)
	assert.False(t, ok)
	_, ok = m.Get(b.ID)
	assert.True(t, ok)
}

func TestProcessCommandPlacesMarkers(t *testing.T) {
	p := newPlanner()

	clickAt(t, p, 100, 100)
	clickAt(t, p, 100, 200)

	s := p.State()
	require.Len(t, s.Emitters, 1)
	require.Len(t, s.Targets, 1)
	assert.Equal(t, 0, s.Emitters[0].Target)
}

func TestProcessCommandSecondaryButtonRemoves(t *testing.T) {
	p := newPlanner()
	clickAt(t, p, 100, 100)

	require.NoError(t, processCommand(makeCommand(t, "pointer", PointerPayload{Phase: "down", Button: 2, X: 102, Y: 99}), p))

	assert.Empty(t, p.State().Emitters)
}

func TestProcessCommandRejectsBadPointer(t *testing.T) {
	p := newPlanner()
	for _, pl := range []PointerPayload{
		{Phase: "hover"},
		{Phase: "down", Device: "pen"},
		{Phase: "down", Button: 1},
	} {
		assert.Error(t, processCommand(makeCommand(t, "pointer", pl), p))
	}
	assert.Error(t, processCommand(ClientMessage{Type: "pointer", Payload: json.RawMessage(`"x"`)}, p))
}

func TestProcessCommandModeAndKeys(t *testing.T) {
	p := newPlanner()

	require.NoError(t, processCommand(makeCommand(t, "set_mode", ModePayload{Mode: game.KindObserver}), p))
	assert.Equal(t, game.KindObserver, p.Mode())

	require.NoError(t, processCommand(makeCommand(t, "key", KeyPayload{Key: "t"}), p))
	assert.Equal(t, game.KindTarget, p.Mode())

	require.NoError(t, processCommand(ClientMessage{Type: "set_mode", Payload: json.RawMessage(`{"mode":"gun"}`)}, p))
	assert.Equal(t, game.KindEmitter, p.Mode())
}

func TestProcessCommandUndoRedo(t *testing.T) {
	p := newPlanner()
	clickAt(t, p, 100, 100)

	require.NoError(t, processCommand(makeCommand(t, "undo", nil), p))
	assert.Empty(t, p.State().Emitters)

	require.NoError(t, processCommand(makeCommand(t, "redo", nil), p))
	assert.Len(t, p.State().Emitters, 1)

	require.NoError(t, processCommand(makeCommand(t, "key", KeyPayload{Key: "z", Ctrl: true}), p))
	assert.Empty(t, p.State().Emitters)
}

func TestProcessCommandWeaponsAndPairing(t *testing.T) {
	p := newPlanner()
	require.NoError(t, processCommand(makeCommand(t, "select_weapon", WeaponPayload{WeaponID: "mortar"}), p))
	clickAt(t, p, 100, 100)
	clickAt(t, p, 100, 200)
	require.NoError(t, processCommand(makeCommand(t, "set_mode", ModePayload{Mode: game.KindTarget}), p))
	clickAt(t, p, 300, 300)

	s := p.State()
	require.Len(t, s.Targets, 2)
	assert.Equal(t, "mortar", s.Emitters[0].WeaponID)

	two := 1
	require.NoError(t, processCommand(makeCommand(t, "pair", PairPayload{Emitter: 0, Target: &two}), p))
	assert.Equal(t, 1, p.State().Emitters[0].Target)

	require.NoError(t, processCommand(makeCommand(t, "pair", PairPayload{Emitter: 0}), p))
	assert.Equal(t, game.NoTarget, p.State().Emitters[0].Target)

	require.NoError(t, processCommand(makeCommand(t, "assign_weapon", AssignWeaponPayload{Emitter: 0, WeaponID: "other"}), p))
	assert.Equal(t, "other", p.State().Emitters[0].WeaponID)
}

func TestProcessCommandSelectMovesMarker(t *testing.T) {
	p := newPlanner()
	clickAt(t, p, 100, 100)

	require.NoError(t, processCommand(makeCommand(t, "select", game.Ref{Kind: game.KindEmitter, Index: 0}), p))
	clickAt(t, p, 400, 400)

	s := p.State()
	require.Len(t, s.Emitters, 1)
	assert.Equal(t, grid.PixelPos{X: 400, Y: 400}, s.Emitters[0].Pos)
	_, selected := p.Selection()
	assert.False(t, selected)
}

func TestProcessCommandWind(t *testing.T) {
	p := newPlanner()

	require.NoError(t, processCommand(makeCommand(t, "set_wind", ballistics.Wind{Direction: 45, Strength: 2}), p))
	assert.Equal(t, ballistics.Wind{Direction: 45, Strength: 2}, p.State().Wind)

	err := processCommand(makeCommand(t, "set_wind", ballistics.Wind{Direction: 400, Strength: 2}), p)
	assert.Error(t, err)
	assert.Equal(t, 45.0, p.State().Wind.Direction)
}

func TestProcessCommandViewCommands(t *testing.T) {
	p := newPlanner()

	require.NoError(t, processCommand(makeCommand(t, "wheel", WheelPayload{X: 512, Y: 444, DeltaY: -100}), p))
	assert.Greater(t, p.Transform().Zoom, 1.0)

	require.NoError(t, processCommand(makeCommand(t, "double_click", nil), p))
	assert.Equal(t, 1.0, p.Transform().Zoom)

	require.NoError(t, processCommand(makeCommand(t, "viewport", ViewportPayload{Width: 512, Height: 444}), p))
	assert.Error(t, processCommand(makeCommand(t, "viewport", ViewportPayload{Width: 0, Height: 444}), p))

	require.NoError(t, processCommand(makeCommand(t, "touches", TouchesPayload{}), p))
}

func TestProcessCommandChangeMap(t *testing.T) {
	p := newPlanner()
	clickAt(t, p, 100, 100)

	require.NoError(t, processCommand(makeCommand(t, "change_map", MapPayload{MapID: "MapWestgateHex"}), p))
	assert.Equal(t, "MapWestgateHex", p.MapID())
	assert.Empty(t, p.State().Emitters)
	assert.True(t, p.CanUndo())
}

func TestProcessCommandUnknownType(t *testing.T) {
	p := newPlanner()

	err := processCommand(makeCommand(t, "unknown_command", nil), p)

	assert.ErrorIs(t, err, errUnknownType)
	assert.Empty(t, p.State().Emitters)
}

func TestSessionResolvesSolutions(t *testing.T) {
	m, b := newTestManager(t, 1)
	s, err := m.Create()
	require.NoError(t, err)
	ctx := context.Background()

	s.handle(ctx, makeCommand(t, "select_weapon", WeaponPayload{WeaponID: "mortar"}))
	for _, phase := range []string{"down", "up"} {
		s.handle(ctx, makeCommand(t, "pointer", PointerPayload{Phase: phase, X: 100, Y: 100}))
	}
	for _, phase := range []string{"down", "up"} {
		s.handle(ctx, makeCommand(t, "pointer", PointerPayload{Phase: phase, X: 100, Y: 120}))
	}

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		status, _ := s.planner.Solution(0)
		return status == planner.SolutionReady
	}, 2*time.Second, 10*time.Millisecond)

	s.mu.Lock()
	_, sol := s.planner.Solution(0)
	s.mu.Unlock()
	assert.InDelta(t, 20*grid.MetersPerPixelY, sol.Distance, 1e-6)

	b.mu.Lock()
	assert.Equal(t, 1, b.calcs)
	b.mu.Unlock()
}

func TestSessionSaveAndLoadPlan(t *testing.T) {
	m, b := newTestManager(t, 1)
	s, err := m.Create()
	require.NoError(t, err)
	ctx := context.Background()

	s.handle(ctx, makeCommand(t, "change_map", MapPayload{MapID: "MapDeadLandsHex"}))
	for _, y := range []float64{100, 200} {
		for _, phase := range []string{"down", "up"} {
			s.handle(ctx, makeCommand(t, "pointer", PointerPayload{Phase: phase, X: 100, Y: y}))
		}
	}
	s.handle(ctx, makeCommand(t, "save_plan", SavePlanPayload{Name: "ridge"}))

	b.mu.Lock()
	saved, ok := b.plans["saved-1"]
	b.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "ridge", saved.Name)
	assert.Equal(t, "MapDeadLandsHex", saved.MapID)
	assert.Len(t, saved.Emitters, 1)
	assert.Len(t, saved.Targets, 1)

	s.handle(ctx, makeCommand(t, "change_map", MapPayload{MapID: "MapWestgateHex"}))
	s.handle(ctx, makeCommand(t, "load_plan", LoadPlanPayload{ID: "saved-1"}))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, "MapDeadLandsHex", s.planner.MapID())
	assert.Len(t, s.planner.State().Emitters, 1)
	assert.False(t, s.planner.CanUndo())
}

func TestSessionLoadMissingPlanKeepsState(t *testing.T) {
	m, _ := newTestManager(t, 1)
	s, err := m.Create()
	require.NoError(t, err)
	ctx := context.Background()
	for _, phase := range []string{"down", "up"} {
		s.handle(ctx, makeCommand(t, "pointer", PointerPayload{Phase: phase, X: 100, Y: 100}))
	}

	s.handle(ctx, makeCommand(t, "load_plan", LoadPlanPayload{ID: "missing"}))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.planner.State().Emitters, 1)
}
