package service

import (
	"context"
	"fmt"

	"artillery-planner/catalog"
	"artillery-planner/game"
)

type WeaponStat struct {
	Slug        string          `json:"slug"`
	DisplayName string          `json:"displayName"`
	Faction     catalog.Faction `json:"faction"`
	Placements  int64           `json:"placements"`
}

type Stats struct {
	TotalPlans int64        `json:"totalPlans"`
	Weapons    []WeaponStat `json:"weapons"`
	Unassigned int64        `json:"unassigned"`
	// Factions totals emitter placements per side. Weapons usable by both
	// sides count toward each.
	Factions  map[catalog.Faction]int64 `json:"factions"`
	Targets   int64                     `json:"targets"`
	Observers int64                     `json:"observers"`
}

// Stats summarizes saved plans and placements.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.store.CountPlans(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count plans: %w", err)
	}
	counters, err := s.store.Placements(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load placements: %w", err)
	}

	perWeapon := map[string]int64{}
	st := Stats{
		TotalPlans: total,
		Factions:   map[catalog.Faction]int64{catalog.Colonial: 0, catalog.Warden: 0},
	}
	for _, c := range counters {
		kind, err := game.ParseKind(c.Kind)
		if err != nil {
			s.log.Warn().Str("kind", c.Kind).Msg("ignoring unknown placement counter")
			continue
		}
		switch kind {
		case game.KindEmitter:
			perWeapon[c.Key] += c.Count
		case game.KindTarget:
			st.Targets += c.Count
		case game.KindObserver:
			st.Observers += c.Count
		}
	}

	st.Unassigned = perWeapon[catalog.UnassignedWeapon]
	for _, w := range s.catalog.Weapons("") {
		n := perWeapon[w.Slug]
		st.Weapons = append(st.Weapons, WeaponStat{
			Slug:        w.Slug,
			DisplayName: w.DisplayName,
			Faction:     w.Faction,
			Placements:  n,
		})
		switch w.Faction {
		case catalog.Both:
			st.Factions[catalog.Colonial] += n
			st.Factions[catalog.Warden] += n
		default:
			st.Factions[w.Faction] += n
		}
	}
	return st, nil
}
