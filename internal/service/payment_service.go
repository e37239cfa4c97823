package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type Plan struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Interval string          `json:"interval"`
}

type PaymentService struct {
	SubRepo  *repository.SubscriptionRepository
	UserRepo *repository.UserRepository
	Provider BillingProvider
	Cfg      config.PaymentConfig

	now func() time.Time
}

func NewPaymentService(subRepo *repository.SubscriptionRepository, userRepo *repository.UserRepository, provider BillingProvider, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{
		SubRepo:  subRepo,
		UserRepo: userRepo,
		Provider: provider,
		Cfg:      cfg,
		now:      time.Now,
	}
}

func (s *PaymentService) Plans() []Plan {
	amount, err := decimal.NewFromString(s.Cfg.PlanAmount)
	if err != nil {
		amount = decimal.Zero
	}
	return []Plan{{
		ID:       s.Cfg.PriceID,
		Name:     s.Cfg.PlanName,
		Amount:   amount.Round(2),
		Currency: s.Cfg.Currency,
		Interval: "month",
	}}
}

// TierFor 订阅处于 active/trialing 且未过期即为付费用户
func (s *PaymentService) TierFor(ctx context.Context, userID uint) (quiz.Tier, error) {
	sub, err := s.SubRepo.FindByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub.Paid(s.now()) {
		return quiz.TierPaid, nil
	}
	return quiz.TierFree, nil
}

func (s *PaymentService) Subscription(ctx context.Context, userID uint) (*model.Subscription, error) {
	sub, err := s.SubRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, util.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *PaymentService) Checkout(ctx context.Context, userID uint) (*CheckoutSession, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	sub, err := s.SubRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Paid(s.now()) {
		return nil, fmt.Errorf("%w: already subscribed", util.ErrMalformedRequest)
	}

	req := CheckoutRequest{
		UserID:     userID,
		Email:      user.Email,
		PriceID:    s.Cfg.PriceID,
		SuccessURL: s.Cfg.SuccessURL,
		CancelURL:  s.Cfg.CancelURL,
	}
	if sub != nil {
		req.CustomerID = sub.CustomerID
	}
	session, err := s.Provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}

	if sub == nil && session.CustomerID != "" {
		err = s.SubRepo.Upsert(ctx, &model.Subscription{
			UserID:     userID,
			CustomerID: session.CustomerID,
			PriceID:    s.Cfg.PriceID,
			Status:     model.SubscriptionIncomplete,
		})
		if err != nil {
			logger.With(ctx).Warn("Failed to store pending subscription", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return session, nil
}

func (s *PaymentService) Cancel(ctx context.Context, userID uint) (*model.Subscription, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, true)
}

func (s *PaymentService) Reactivate(ctx context.Context, userID uint) (*model.Subscription, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, false)
}

func (s *PaymentService) setCancelAtPeriodEnd(ctx context.Context, userID uint, cancel bool) (*model.Subscription, error) {
	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionID == "" || sub.Status == model.SubscriptionCanceled {
		return nil, util.ErrSubscriptionNotFound
	}

	remote, err := s.Provider.SetCancelAtPeriodEnd(ctx, sub.SubscriptionID, cancel)
	if err != nil {
		return nil, err
	}
	applyProviderSubscription(sub, remote)
	if err := s.SubRepo.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// HandleWebhook 校验签名后同步本地订阅镜像。未知事件忽略。
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := constructEvent(payload, signature, s.Cfg.WebhookSecret)
	if err != nil {
		return err
	}
	logger.With(ctx).Info("Payment webhook received", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
	if event.Data == nil {
		return nil
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var obj stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
			return fmt.Errorf("%w: %v", util.ErrMalformedRequest, err)
		}
		return s.completeCheckout(ctx, &obj)
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var obj stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
			return fmt.Errorf("%w: %v", util.ErrMalformedRequest, err)
		}
		remote := subscriptionFromStripe(&obj)
		if event.Type == "customer.subscription.deleted" {
			remote.Status = string(model.SubscriptionCanceled)
		}
		return s.syncSubscription(ctx, remote)
	}
	return nil
}

func (s *PaymentService) completeCheckout(ctx context.Context, obj *stripe.CheckoutSession) error {
	userID, err := strconv.ParseUint(obj.ClientReferenceID, 10, 32)
	if err != nil || userID == 0 {
		return fmt.Errorf("%w: bad client_reference_id %q", util.ErrMalformedRequest, obj.ClientReferenceID)
	}
	sub, err := s.SubRepo.FindByUserID(ctx, uint(userID))
	if err != nil {
		return err
	}
	if sub == nil {
		sub = &model.Subscription{UserID: uint(userID), PriceID: s.Cfg.PriceID}
	}
	if obj.Customer != nil {
		sub.CustomerID = obj.Customer.ID
	}
	if obj.Subscription != nil {
		sub.SubscriptionID = obj.Subscription.ID
	}
	sub.Status = model.SubscriptionActive
	return s.SubRepo.Upsert(ctx, sub)
}

func (s *PaymentService) syncSubscription(ctx context.Context, remote *ProviderSubscription) error {
	sub, err := s.SubRepo.FindByCustomerID(ctx, remote.Customer)
	if err != nil {
		return err
	}
	if sub == nil {
		// 结账完成事件可能晚到，此时没有对应用户，等待平台重试
		logger.With(ctx).Warn("Subscription event for unknown customer", zap.String("customer", remote.Customer))
		return util.ErrSubscriptionNotFound
	}
	applyProviderSubscription(sub, remote)
	return s.SubRepo.Upsert(ctx, sub)
}

func applyProviderSubscription(sub *model.Subscription, remote *ProviderSubscription) {
	if remote.ID != "" {
		sub.SubscriptionID = remote.ID
	}
	if remote.Status != "" {
		sub.Status = model.SubscriptionStatus(remote.Status)
	}
	if remote.PriceID != "" {
		sub.PriceID = remote.PriceID
	}
	if end := remote.PeriodEnd(); end != nil {
		sub.CurrentPeriodEnd = end
	}
	sub.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
}
