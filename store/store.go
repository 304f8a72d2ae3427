// Package store persists saved plans and placement counters. Postgres is
// used when a database URL is configured and reachable; otherwise plans go
// to a local SQLite file.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"artillery-planner/game"
	"artillery-planner/grid"
)

var ErrNotFound = errors.New("plan not found")

// Plan is a saved plan document.
type Plan struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	MapID string `json:"mapId"`
	game.Record
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Plans saved before multiple markers existed carry one position each.
	LegacyEmitter  *grid.WorldPos `json:"gunPosition,omitempty"`
	LegacyTarget   *grid.WorldPos `json:"targetPosition,omitempty"`
	LegacyObserver *grid.WorldPos `json:"spotterPosition,omitempty"`
}

// Migrate moves legacy single positions into the position lists when those
// are empty.
func (p *Plan) Migrate() {
	promote := func(list *[]grid.WorldPos, legacy **grid.WorldPos) {
		if *legacy == nil {
			return
		}
		if len(*list) == 0 {
			*list = []grid.WorldPos{**legacy}
		}
		*legacy = nil
	}
	promote(&p.Emitters, &p.LegacyEmitter)
	promote(&p.Targets, &p.LegacyTarget)
	promote(&p.Observers, &p.LegacyObserver)
}

// Counter is one placement tally. Emitters are counted per weapon slug;
// targets and observers use an empty key.
type Counter struct {
	Kind  string `json:"kind"`
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Store interface {
	SavePlan(ctx context.Context, p Plan) error
	GetPlan(ctx context.Context, id string) (Plan, error)
	CountPlans(ctx context.Context) (int64, error)
	IncrementPlacement(ctx context.Context, kind game.Kind, key string) error
	Placements(ctx context.Context) ([]Counter, error)
	Close() error
}

// Open connects to Postgres when databaseURL is set, falling back to SQLite
// at sqlitePath if the connection fails. An empty sqlitePath keeps the
// fallback in memory.
func Open(databaseURL, sqlitePath string, log zerolog.Logger) (Store, error) {
	if databaseURL != "" {
		pg, err := New(databaseURL)
		if err == nil {
			log.Info().Msg("connected to postgres")
			return pg, nil
		}
		log.Error().Err(err).Msg("failed to connect to postgres, trying sqlite")
	}

	s, err := NewSQLite(sqlitePath)
	if err != nil {
		return nil, err
	}
	if sqlitePath == "" {
		log.Info().Msg("using in-memory sqlite store")
	} else {
		log.Info().Str("path", sqlitePath).Msg("using local sqlite store")
	}
	return s, nil
}
