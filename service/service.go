// Package service implements the planning backend: firing solutions against
// the weapon catalog, saved plans and placement statistics.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"artillery-planner/ballistics"
	"artillery-planner/catalog"
	"artillery-planner/game"
	"artillery-planner/grid"
	"artillery-planner/store"
)

// MaxNameLength is the longest plan name accepted, in characters.
const MaxNameLength = 200

// ErrValidation wraps every rejected request.
var ErrValidation = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type Service struct {
	catalog *catalog.Catalog
	store   store.Store
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string
}

func New(cat *catalog.Catalog, st store.Store, log zerolog.Logger) *Service {
	return &Service{
		catalog: cat,
		store:   st,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Calculate returns the firing solution for weaponID from emitter to target.
// A nil wind is calm.
func (s *Service) Calculate(ctx context.Context, emitter, target grid.WorldPos, weaponID string, wind *ballistics.Wind) (ballistics.Solution, error) {
	if err := grid.ValidateWorld(emitter); err != nil {
		return ballistics.Solution{}, invalid("emitter: %v", err)
	}
	if err := grid.ValidateWorld(target); err != nil {
		return ballistics.Solution{}, invalid("target: %v", err)
	}
	w, err := s.catalog.Weapon(weaponID)
	if err != nil {
		return ballistics.Solution{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if wind != nil {
		if err := game.ValidateWind(*wind); err != nil {
			return ballistics.Solution{}, invalid("%v", err)
		}
	}
	return ballistics.Solve(emitter, target, w.Ballistics(), wind), nil
}

type Catalog struct {
	Maps    []catalog.Map    `json:"maps"`
	Weapons []catalog.Weapon `json:"weapons"`
}

// Catalog returns every map and weapon.
func (s *Service) Catalog() Catalog {
	return Catalog{Maps: s.catalog.Maps(false), Weapons: s.catalog.Weapons("")}
}

func (s *Service) Maps(activeOnly bool) []catalog.Map {
	return s.catalog.Maps(activeOnly)
}

// Weapons lists the weapons usable by faction; an empty faction lists all.
func (s *Service) Weapons(faction string) ([]catalog.Weapon, error) {
	if faction == "" {
		return s.catalog.Weapons(""), nil
	}
	f, err := catalog.ParseFaction(faction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.catalog.Weapons(f), nil
}

// PlanRequest is a plan to save. Positions are world meters.
type PlanRequest struct {
	Name  string `json:"name"`
	MapID string `json:"mapId"`
	game.Record
}

// CreatePlan validates and stores a new plan.
func (s *Service) CreatePlan(ctx context.Context, req PlanRequest) (store.Plan, error) {
	if err := s.validatePlan(req); err != nil {
		s.log.Warn().Err(err).Msg("plan rejected")
		return store.Plan{}, err
	}

	now := s.now().UTC()
	p := store.Plan{
		ID:        s.newID(),
		Name:      req.Name,
		MapID:     req.MapID,
		Record:    req.Record,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SavePlan(ctx, p); err != nil {
		s.log.Error().Err(err).Msg("failed to save plan")
		return store.Plan{}, fmt.Errorf("save plan: %w", err)
	}
	s.log.Info().Str("id", p.ID).Str("map", p.MapID).Int("emitters", len(p.Emitters)).Msg("plan created")
	return p, nil
}

func (s *Service) validatePlan(req PlanRequest) error {
	if n := utf8.RuneCountInString(req.Name); n > MaxNameLength {
		return invalid("name is %d characters, limit is %d", n, MaxNameLength)
	}
	if _, err := s.catalog.Map(req.MapID); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	r := req.Record
	if len(r.WeaponIDs) > len(r.Emitters) {
		return invalid("%d weapon ids for %d emitters", len(r.WeaponIDs), len(r.Emitters))
	}
	for i, id := range r.WeaponIDs {
		if !s.catalog.ValidWeaponID(id) {
			return invalid("weapon %d: %v: %s", i, catalog.ErrUnknownWeapon, id)
		}
	}

	lists := []struct {
		what string
		pos  []grid.WorldPos
	}{
		{"emitter", r.Emitters},
		{"target", r.Targets},
		{"observer", r.Observers},
	}
	for _, l := range lists {
		for i, p := range l.pos {
			if err := grid.ValidateWorld(p); err != nil {
				return invalid("%s %d: %v", l.what, i, err)
			}
		}
	}

	if len(r.Pairings) > len(r.Emitters) {
		return invalid("%d pairings for %d emitters", len(r.Pairings), len(r.Emitters))
	}
	for i, t := range r.Pairings {
		if t != nil && (*t < 0 || *t >= len(r.Targets)) {
			return invalid("pairing %d points at target %d of %d", i, *t, len(r.Targets))
		}
	}

	if r.Wind != nil {
		if err := game.ValidateWind(*r.Wind); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

// FetchPlan returns a saved plan. Legacy single-position plans are upgraded.
func (s *Service) FetchPlan(ctx context.Context, id string) (store.Plan, error) {
	return s.store.GetPlan(ctx, id)
}

// TrackPlacement counts a placed marker. Emitters are counted per weapon,
// with an empty weapon counted as unassigned.
func (s *Service) TrackPlacement(ctx context.Context, kind game.Kind, weaponID string) error {
	key := ""
	if kind == game.KindEmitter {
		key = weaponID
		if key == "" {
			key = catalog.UnassignedWeapon
		}
		if !s.catalog.ValidWeaponID(key) {
			return invalid("%v: %s", catalog.ErrUnknownWeapon, key)
		}
	}
	return s.store.IncrementPlacement(ctx, kind, key)
}
