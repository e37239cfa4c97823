package repository

import (
	"civics_quiz_backend/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

// List 列表不返回正文
func (r *ContentRepository) List(ctx context.Context, category string) ([]model.StudySection, error) {
	var sections []model.StudySection
	query := r.DB.WithContext(ctx).Omit("body")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("position ASC, id ASC").Find(&sections).Error
	return sections, err
}

func (r *ContentRepository) FindBySlug(ctx context.Context, slug string) (*model.StudySection, error) {
	var section model.StudySection
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *ContentRepository) Search(ctx context.Context, keyword string, limit int) ([]model.StudySection, error) {
	var sections []model.StudySection
	like := "%" + keyword + "%"
	err := r.DB.WithContext(ctx).
		Where("title LIKE ? OR summary LIKE ? OR body LIKE ?", like, like, like).
		Order("position ASC").
		Limit(limit).
		Find(&sections).Error
	return sections, err
}

// UpsertBySlug 导入脚本使用，slug 相同则覆盖
func (r *ContentRepository) UpsertBySlug(ctx context.Context, sections []model.StudySection) error {
	if len(sections) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "body", "category", "position", "asset_key", "updated_at"}),
	}).Create(&sections).Error
}
