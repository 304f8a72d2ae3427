package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"artillery-planner/game"
)

// Postgres stores plans as JSONB documents.
type Postgres struct {
	pool *pgxpool.Pool
}

// New connects to the database and creates the tables if they do not exist.
func New(connStr string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	schema := []string{`
		CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			plan_json JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`, `
		CREATE TABLE IF NOT EXISTS placement_counters (
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (kind, key)
		);`,
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	return &Postgres{pool: pool}, nil
}

// SavePlan upserts the plan document.
func (s *Postgres) SavePlan(ctx context.Context, p Plan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	query := `
		INSERT INTO plans (id, plan_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET plan_json = EXCLUDED.plan_json, updated_at = EXCLUDED.updated_at;
	`
	_, err = s.pool.Exec(ctx, query, p.ID, data, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Postgres) GetPlan(ctx context.Context, id string) (Plan, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT plan_json FROM plans WHERE id = $1", id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, err
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("decode plan %s: %w", id, err)
	}
	p.Migrate()
	return p, nil
}

func (s *Postgres) CountPlans(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM plans").Scan(&n)
	return n, err
}

func (s *Postgres) IncrementPlacement(ctx context.Context, kind game.Kind, key string) error {
	query := `
		INSERT INTO placement_counters (kind, key, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, key) DO UPDATE
		SET count = placement_counters.count + 1;
	`
	_, err := s.pool.Exec(ctx, query, kind.String(), key)
	return err
}

func (s *Postgres) Placements(ctx context.Context) ([]Counter, error) {
	rows, err := s.pool.Query(ctx, "SELECT kind, key, count FROM placement_counters ORDER BY kind, key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Counter
	for rows.Next() {
		var c Counter
		if err := rows.Scan(&c.Kind, &c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close shuts down the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
