package repository

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"context"
	"errors"

	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

// RecordAttempt 在同一事务中写入测验记录并递增计数。
// 写入失败时计数不变，用户不会因存储故障被扣额度。
func (r *QuizAttemptRepository) RecordAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		return incrementCounter(tx, quiz.UserActor(attempt.UserID).ID(), quiz.Mode(attempt.Mode))
	})
}

// FindBySubmissionKey 返回 (nil, nil) 表示该 key 尚未提交过
func (r *QuizAttemptRepository) FindBySubmissionKey(ctx context.Context, key string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.WithContext(ctx).Where("submission_key = ?", key).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *QuizAttemptRepository) FindForUser(ctx context.Context, userID, attemptID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", attemptID, userID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *QuizAttemptRepository) ListByUser(ctx context.Context, userID uint, mode string, page, limit int) ([]model.QuizAttempt, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).Where("user_id = ?", userID)
	if mode != "" {
		query = query.Where("mode = ?", mode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []model.QuizAttempt
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&attempts).Error
	return attempts, total, err
}

// AllByUser 按时间正序返回用户全部记录，用于错题统计
func (r *QuizAttemptRepository) AllByUser(ctx context.Context, userID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&attempts).Error
	return attempts, err
}
