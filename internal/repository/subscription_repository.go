package repository

import (
	"civics_quiz_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	DB *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

// FindByUserID 没有订阅时返回 (nil, nil)
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID uint) (*model.Subscription, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *SubscriptionRepository) FindByCustomerID(ctx context.Context, customerID string) (*model.Subscription, error) {
	return r.findOne(ctx, "customer_id = ?", customerID)
}

func (r *SubscriptionRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.DB.WithContext(ctx).Where(where, arg).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert 按 user_id 覆盖订阅镜像，已加载的记录直接更新
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	if sub.ID != 0 {
		return r.DB.WithContext(ctx).Save(sub).Error
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id", "subscription_id", "price_id", "status",
			"current_period_end", "cancel_at_period_end", "updated_at",
		}),
	}).Create(sub).Error
}
