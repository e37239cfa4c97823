package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
)

// Subscription 支付方订阅状态的本地镜像，由 webhook 维护
type Subscription struct {
	BaseModel
	UserID            uint               `gorm:"uniqueIndex;not null" json:"userId"`
	CustomerID        string             `gorm:"size:64;index" json:"customerId"`
	SubscriptionID    string             `gorm:"size:64;index" json:"subscriptionId"`
	PriceID           string             `gorm:"size:64" json:"priceId"`
	Status            SubscriptionStatus `gorm:"size:20;not null;default:'incomplete'" json:"status"`
	CurrentPeriodEnd  *time.Time         `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool               `gorm:"default:false" json:"cancelAtPeriodEnd"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// Paid reports whether the subscription grants premium access at t.
func (s *Subscription) Paid(t time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionActive && s.Status != SubscriptionTrialing {
		return false
	}
	return s.CurrentPeriodEnd == nil || t.Before(*s.CurrentPeriodEnd)
}
