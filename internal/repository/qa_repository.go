package repository

import (
	"civics_quiz_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type QARepository struct {
	DB *gorm.DB
}

func NewQARepository(db *gorm.DB) *QARepository {
	return &QARepository{DB: db}
}

func (r *QARepository) Save(ctx context.Context, messages ...*model.QAMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(messages).Error
}

// Recent 返回某会话最近 limit 条消息，按时间正序
func (r *QARepository) Recent(ctx context.Context, userID uint, sessionID string, limit int) ([]model.QAMessage, error) {
	var messages []model.QAMessage
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *QARepository) History(ctx context.Context, userID uint, page, limit int) ([]model.QAMessage, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.QAMessage{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var messages []model.QAMessage
	err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&messages).Error
	return messages, total, err
}
