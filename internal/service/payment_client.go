package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// webhook 时间戳允许的偏差
const signatureTolerance = 5 * time.Minute

// BillingProvider 支付平台的最小接口，结账和订阅生命周期由平台负责
type BillingProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*ProviderSubscription, error)
}

type CheckoutRequest struct {
	UserID     uint
	Email      string
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CustomerID string `json:"customer"`
}

// ProviderSubscription 平台订阅对象中本地镜像关心的字段
type ProviderSubscription struct {
	ID                string
	Customer          string
	Status            string
	PriceID           string
	CurrentPeriodEnd  int64
	CancelAtPeriodEnd bool
}

func (p *ProviderSubscription) PeriodEnd() *time.Time {
	if p.CurrentPeriodEnd == 0 {
		return nil
	}
	t := time.Unix(p.CurrentPeriodEnd, 0).UTC()
	return &t
}

func subscriptionFromStripe(sub *stripe.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.Customer = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out
}

// StripeClient 通过 stripe-go 调用 Stripe
type StripeClient struct {
	api *client.API
}

func NewStripeClient(cfg config.PaymentConfig) *StripeClient {
	var backends *stripe.Backends
	if cfg.BaseURL != "" {
		backendCfg := &stripe.BackendConfig{
			URL:        stripe.String(cfg.BaseURL),
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
		}
		backends = &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
		}
	}
	return &StripeClient{api: client.New(cfg.SecretKey, backends)}
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(req.UserID), 10)),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPaymentProvider, err)
	}
	out := &CheckoutSession{ID: session.ID, URL: session.URL}
	if session.Customer != nil {
		out.CustomerID = session.Customer.ID
	}
	return out, nil
}

func (c *StripeClient) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPaymentProvider, err)
	}
	return subscriptionFromStripe(sub), nil
}

// constructEvent 校验 Stripe-Signature 头并解析事件
func constructEvent(payload []byte, header, secret string) (stripe.Event, error) {
	if secret == "" {
		return stripe.Event{}, errors.New("webhook secret not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                signatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned), errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature), errors.Is(err, webhook.ErrTooOld):
			return stripe.Event{}, fmt.Errorf("%w: %v", util.ErrInvalidSignature, err)
		}
		return stripe.Event{}, fmt.Errorf("%w: %v", util.ErrMalformedRequest, err)
	}
	return event, nil
}
