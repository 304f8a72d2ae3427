package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"artillery-planner/game"
)

type planRow struct {
	ID        string `gorm:"primaryKey"`
	Data      datatypes.JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (planRow) TableName() string { return "plans" }

type counterRow struct {
	Kind  string `gorm:"primaryKey"`
	Key   string `gorm:"primaryKey"`
	Count int64
}

func (counterRow) TableName() string { return "placement_counters" }

// SQLite is the local fallback store.
type SQLite struct {
	db *gorm.DB
}

// NewSQLite opens (or creates) the database file at path. An empty path
// opens a private in-memory database.
func NewSQLite(path string) (*SQLite, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// One connection: SQLite allows a single writer, and an in-memory
	// database lives only as long as its connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&planRow{}, &counterRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SavePlan(ctx context.Context, p Plan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	row := planRow{ID: p.ID, Data: datatypes.JSON(data), CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *SQLite) GetPlan(ctx context.Context, id string) (Plan, error) {
	var row planRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, err
	}
	var p Plan
	if err := json.Unmarshal(row.Data, &p); err != nil {
		return Plan{}, fmt.Errorf("decode plan %s: %w", id, err)
	}
	p.Migrate()
	return p, nil
}

func (s *SQLite) CountPlans(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&planRow{}).Count(&n).Error
	return n, err
}

func (s *SQLite) IncrementPlacement(ctx context.Context, kind game.Kind, key string) error {
	row := counterRow{Kind: kind.String(), Key: key, Count: 1}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{"count": gorm.Expr("placement_counters.count + 1")}),
	}).Create(&row).Error
}

func (s *SQLite) Placements(ctx context.Context) ([]Counter, error) {
	var rows []counterRow
	if err := s.db.WithContext(ctx).Order("kind, key").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Counter, len(rows))
	for i, r := range rows {
		out[i] = Counter{Kind: r.Kind, Key: r.Key, Count: r.Count}
	}
	return out, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
