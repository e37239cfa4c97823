package repository

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptCounterRepository struct {
	DB *gorm.DB
}

func NewAttemptCounterRepository(db *gorm.DB) *AttemptCounterRepository {
	return &AttemptCounterRepository{DB: db}
}

func (r *AttemptCounterRepository) GetCount(ctx context.Context, actorID string, mode quiz.Mode) (int, error) {
	var counter model.AttemptCounter
	err := r.DB.WithContext(ctx).
		Where("actor_id = ? AND mode = ?", actorID, string(mode)).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Attempts, nil
}

func (r *AttemptCounterRepository) Increment(ctx context.Context, actorID string, mode quiz.Mode) error {
	return incrementCounter(r.DB.WithContext(ctx), actorID, mode)
}

// incrementCounter 用 upsert 保证每个 (actor, mode) 只有一行
func incrementCounter(tx *gorm.DB, actorID string, mode quiz.Mode) error {
	now := time.Now()
	counter := model.AttemptCounter{
		ActorID:   actorID,
		Mode:      string(mode),
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "actor_id"}, {Name: "mode"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		}),
	}).Create(&counter).Error
}

// CountsFor 返回某个用户各模式的计数，缺失模式为 0
func (r *AttemptCounterRepository) CountsFor(ctx context.Context, actorID string) (map[quiz.Mode]int, error) {
	var rows []model.AttemptCounter
	if err := r.DB.WithContext(ctx).Where("actor_id = ?", actorID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[quiz.Mode]int, len(quiz.Modes))
	for _, m := range quiz.Modes {
		out[m] = 0
	}
	for _, row := range rows {
		out[quiz.Mode(row.Mode)] = row.Attempts
	}
	return out, nil
}
