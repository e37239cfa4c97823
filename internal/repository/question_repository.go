package repository

import (
	"civics_quiz_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// IDs 返回题目 id，category 为空时不过滤
func (r *QuestionRepository) IDs(ctx context.Context, category string) ([]uint, error) {
	var ids []uint
	query := r.DB.WithContext(ctx).Model(&model.Question{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("id").Pluck("id", &ids).Error
	return ids, err
}

// FindByIDs 按传入顺序返回题目，不存在的 id 被跳过
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.Question
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Question, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

func (r *QuestionRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("category <> ''").
		Distinct().
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

func (r *QuestionRepository) Search(ctx context.Context, keyword string, limit int) ([]model.Question, error) {
	var rows []model.Question
	like := "%" + keyword + "%"
	err := r.DB.WithContext(ctx).
		Where("prompt LIKE ? OR explanation LIKE ?", like, like).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(questions, 100).Error
}
