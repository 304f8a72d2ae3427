// Package session runs planning sessions over websockets. Each session owns
// one planner driven by a single connected client.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"artillery-planner/ballistics"
	"artillery-planner/config"
	"artillery-planner/game"
	"artillery-planner/grid"
	"artillery-planner/planner"
	"artillery-planner/service"
	"artillery-planner/store"
)

var ErrSessionLimit = errors.New("maximum number of sessions reached")

// Backend is what sessions need from the planning service. Both
// *service.Service and *client.Client satisfy it.
type Backend interface {
	planner.Tracker
	Calculate(ctx context.Context, emitter, target grid.WorldPos, weaponID string, wind *ballistics.Wind) (ballistics.Solution, error)
	CreatePlan(ctx context.Context, req service.PlanRequest) (store.Plan, error)
	FetchPlan(ctx context.Context, id string) (store.Plan, error)
}

type Session struct {
	ID string

	mu      sync.Mutex
	conn    *websocket.Conn
	planner *planner.Planner
	changes planner.Change
	calc    planner.Calculator
	backend Backend
	timeout time.Duration
	log     zerolog.Logger

	// lastSeen is when the client last attached, sent a command or left.
	lastSeen time.Time
	joined   bool
}

type Manager struct {
	sessions    map[string]*Session
	mu          sync.Mutex
	maxSessions int
	undoLimit   int
	timeout     time.Duration
	backend     Backend
	log         zerolog.Logger
}

func NewManager(cfg config.Config, backend Backend, log zerolog.Logger) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: cfg.MaxSessions,
		undoLimit:   cfg.UndoLimit,
		timeout:     cfg.RequestTimeout(),
		backend:     backend,
		log:         log,
	}
}

func (m *Manager) Reset() {
	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
}

// Create starts a new session with an empty plan.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions && !m.evictIdle() {
		return nil, ErrSessionLimit
	}

	id := uuid.NewString()
	s := &Session{
		ID:       id,
		lastSeen: time.Now(),
		backend:  m.backend,
		timeout:  m.timeout,
		log:      m.log.With().Str("session", id).Logger(),
	}
	s.planner = planner.New(m.undoLimit, m.backend, s.log)
	s.planner.Subscribe(func(c planner.Change) { s.changes |= c })
	s.calc = planner.CalculatorFunc(s.calculate)
	m.sessions[id] = s

	m.log.Info().Str("session", id).Msg("session created")
	return s, nil
}

// evictIdle drops the session that has gone longest without a client. A
// session nobody has joined yet is kept until it has been idle longer than
// the request timeout. It reports false when nothing could be evicted. The
// caller holds m.mu.
func (m *Manager) evictIdle() bool {
	var (
		victim string
		oldest time.Time
	)
	for id, s := range m.sessions {
		s.mu.Lock()
		seen := s.lastSeen
		idle := s.conn == nil && (s.joined || time.Since(seen) > m.timeout)
		s.mu.Unlock()
		if idle && (victim == "" || seen.Before(oldest)) {
			victim, oldest = id, seen
		}
	}
	if victim == "" {
		return false
	}
	delete(m.sessions, victim)
	m.log.Info().Str("session", victim).Msg("evicted idle session")
	return true
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) CreateSession(c *fiber.Ctx) error {
	s, err := m.Create()
	if errors.Is(err, ErrSessionLimit) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"sessionId": s.ID,
	})
}

func (m *Manager) GetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := m.Get(id); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}
	return c.JSON(fiber.Map{
		"sessionId": id,
	})
}

// HandleWS drives the session named by the sessionId route parameter. A
// session accepts one client at a time; further connections are closed.
func (m *Manager) HandleWS(c *websocket.Conn) {
	sessionID := c.Params("sessionId")
	s, ok := m.Get(sessionID)
	if !ok {
		c.Close()
		return
	}

	if !s.attach(c) {
		s.log.Warn().Msg("rejected second client")
		c.Close()
		return
	}
	s.log.Info().Msg("client joined")

	ctx, cancel := context.WithCancel(context.Background())

	defer func() {
		cancel()
		s.detach()
		c.Close()
		s.log.Info().Msg("client left")
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Msg("read")
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.mu.Lock()
			s.sendError(fmt.Errorf("invalid message: %w", err))
			s.mu.Unlock()
			continue
		}
		s.handle(ctx, msg)
	}
}

// attach makes c the session's client and sends it the current state.
func (s *Session) attach(c *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return false
	}
	s.conn = c
	s.joined = true
	s.lastSeen = time.Now()
	s.sendState()
	return true
}

func (s *Session) detach() {
	s.mu.Lock()
	s.conn = nil
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) handle(ctx context.Context, msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	var err error
	switch msg.Type {
	case "save_plan":
		err = s.savePlan(ctx, msg)
	case "load_plan":
		err = s.loadPlan(ctx, msg)
	default:
		err = processCommand(msg, s.planner)
	}
	if err != nil {
		s.log.Debug().Err(err).Str("type", msg.Type).Msg("command failed")
		s.sendError(err)
	}

	s.resolve()
	s.flush()
}

func (s *Session) savePlan(ctx context.Context, msg ClientMessage) error {
	var pl SavePlanPayload
	if err := decode(msg, &pl); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state := s.planner.State()
	p, err := s.backend.CreatePlan(ctx, service.PlanRequest{
		Name:   pl.Name,
		MapID:  s.planner.MapID(),
		Record: state.Record(),
	})
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	s.send(ServerMessage{Type: "plan_saved", Payload: PlanSavedPayload{ID: p.ID}})
	return nil
}

func (s *Session) loadPlan(ctx context.Context, msg ClientMessage) error {
	var pl LoadPlanPayload
	if err := decode(msg, &pl); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.backend.FetchPlan(ctx, pl.ID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	state, err := game.FromRecord(p.Record)
	if err != nil {
		return fmt.Errorf("load plan %s: %w", p.ID, err)
	}
	s.planner.Load(p.MapID, state)
	return nil
}

func (s *Session) calculate(ctx context.Context, key planner.SolutionKey) (ballistics.Solution, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.backend.Calculate(ctx, key.Emitter, key.Target, key.WeaponID, key.WindInput())
}

// resolve dispatches pending firing-solution requests. Results are applied
// under the session lock and pushed to the client as they arrive. Requests
// outlive the connection so a reconnecting client finds them answered.
func (s *Session) resolve() {
	reqs := s.planner.TakeRequests()
	if len(reqs) == 0 {
		return
	}
	planner.Resolve(context.Background(), s.calc, reqs, func(res planner.SolutionResult) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.planner.ApplySolution(res)
		s.flush()
	})
}

// flush sends the state if anything changed since the last send.
func (s *Session) flush() {
	if s.changes == 0 {
		return
	}
	s.sendState()
}

func (s *Session) sendState() {
	s.changes = 0
	s.send(ServerMessage{Type: "state_update", Payload: s.planner.Status()})
}

func (s *Session) sendError(err error) {
	s.send(ServerMessage{Type: "error", Payload: ErrorPayload{Message: err.Error()}})
}

// send writes msg to the client. The caller holds s.mu.
func (s *Session) send(msg ServerMessage) {
	if s.conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal message")
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debug().Err(err).Msg("write")
	}
}
