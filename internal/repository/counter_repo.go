package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepository seeds and lists named sequences outside of an
// allocation transaction.
type CounterRepository interface {
	// Raise moves each counter up to at least its floor in one transaction.
	// A counter already past its floor keeps its value; returns how many
	// counters were created or moved.
	Raise(ctx context.Context, floors []model.Counter) (int, error)
	List(ctx context.Context, prefix string) ([]model.Counter, error)
}

type counterRepo struct{ db *gorm.DB }

func NewCounterRepository(db *gorm.DB) CounterRepository { return &counterRepo{db: db} }

func (r *counterRepo) Raise(ctx context.Context, floors []model.Counter) (int, error) {
	sorted := append([]model.Counter(nil), floors...)
	// fixed lock order across concurrent seeders
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	moved := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range sorted {
			c := sorted[i]
			res := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "name"}},
				DoUpdates: clause.Assignments(map[string]any{
					"next":             gorm.Expr("excluded.next"),
					"source":           gorm.Expr("excluded.source"),
					"sample_last_code": gorm.Expr("excluded.sample_last_code"),
					"updated_at":       gorm.Expr("now()"),
				}),
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: "counters.next < excluded.next"},
				}},
			}).Create(&c)
			if res.Error != nil {
				return fmt.Errorf("counter %s: %w", c.Name, res.Error)
			}
			moved += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (r *counterRepo) List(ctx context.Context, prefix string) ([]model.Counter, error) {
	var out []model.Counter
	q := r.db.WithContext(ctx).Order("name")
	if prefix != "" {
		q = q.Where("name LIKE ?", escapeLike(prefix)+"%")
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	return out, nil
}
