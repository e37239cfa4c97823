package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type fakeBilling struct {
	checkouts []CheckoutRequest
	cancels   map[string]bool
}

func (f *fakeBilling) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.checkouts = append(f.checkouts, req)
	return &CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1", CustomerID: "cus_1"}, nil
}

func (f *fakeBilling) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*ProviderSubscription, error) {
	if f.cancels == nil {
		f.cancels = map[string]bool{}
	}
	f.cancels[subscriptionID] = cancel
	return &ProviderSubscription{ID: subscriptionID, Customer: "cus_1", Status: "active", CancelAtPeriodEnd: cancel}, nil
}

func newPaymentFixture(t *testing.T) (*PaymentService, *fakeBilling, *gorm.DB, *model.User) {
	t.Helper()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	user := &model.User{Name: "Ana", Email: "ana@example.com", Password: "x"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	billing := &fakeBilling{}
	svc := NewPaymentService(repository.NewSubscriptionRepository(db), users, billing, config.PaymentConfig{
		WebhookSecret: testWebhookSecret,
		PriceID:       "price_premium",
		PlanName:      "Premium",
		PlanAmount:    "9.989",
		Currency:      "usd",
	})
	svc.now = func() time.Time { return time.Unix(1767225600, 0) }
	return svc, billing, db, user
}

func signed(payload string) string {
	return signedAt(payload, testWebhookSecret, time.Now())
}

func signedAt(payload, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: at,
	}).Header
}

func TestConstructEventChecksSignature(t *testing.T) {
	payload := `{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{}}}`
	event, err := constructEvent([]byte(payload), signedAt(payload, "secret", time.Now()), "secret")
	if err != nil || event.ID != "evt_1" {
		t.Fatalf("valid signature = (%+v, %v)", event, err)
	}

	cases := map[string]string{
		"wrong secret": signedAt(payload, "other", time.Now()),
		"stale":        signedAt(payload, "secret", time.Now().Add(-10*time.Minute)),
		"missing v1":   "t=" + strconv.FormatInt(time.Now().Unix(), 10),
		"garbage":      "nonsense",
	}
	for name, header := range cases {
		if _, err := constructEvent([]byte(payload), header, "secret"); !errors.Is(err, util.ErrInvalidSignature) {
			t.Errorf("%s: err = %v, want ErrInvalidSignature", name, err)
		}
	}
	if _, err := constructEvent([]byte(payload), signedAt(payload, "secret", time.Now()), ""); err == nil {
		t.Fatalf("missing webhook secret must be rejected")
	}
}

func TestWebhookActivatesAndCancelsSubscription(t *testing.T) {
	svc, _, _, user := newPaymentFixture(t)
	ctx := context.Background()

	completed := fmt.Sprintf(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"client_reference_id":"%d","customer":"cus_9","subscription":"sub_9"}}}`, user.ID)
	if err := svc.HandleWebhook(ctx, []byte(completed), signed(completed)); err != nil {
		t.Fatalf("checkout completed: %v", err)
	}
	if tier, err := svc.TierFor(ctx, user.ID); err != nil || tier != quiz.TierPaid {
		t.Fatalf("TierFor = (%s, %v), want paid", tier, err)
	}

	periodEnd := svc.now().Add(30 * 24 * time.Hour).Unix()
	updated := fmt.Sprintf(`{"id":"evt_2","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_9","customer":"cus_9","status":"active","current_period_end":%d,"cancel_at_period_end":true,"items":{"data":[{"price":{"id":"price_premium"}}]}}}}`, periodEnd)
	if err := svc.HandleWebhook(ctx, []byte(updated), signed(updated)); err != nil {
		t.Fatalf("subscription updated: %v", err)
	}
	sub, err := svc.Subscription(ctx, user.ID)
	if err != nil {
		t.Fatalf("Subscription: %v", err)
	}
	if !sub.CancelAtPeriodEnd || sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.Unix() != periodEnd {
		t.Fatalf("subscription = %+v", sub)
	}

	deleted := `{"id":"evt_3","object":"event","type":"customer.subscription.deleted","data":{"object":{"id":"sub_9","customer":"cus_9","status":"active"}}}`
	if err := svc.HandleWebhook(ctx, []byte(deleted), signed(deleted)); err != nil {
		t.Fatalf("subscription deleted: %v", err)
	}
	if tier, _ := svc.TierFor(ctx, user.ID); tier != quiz.TierFree {
		t.Fatalf("tier after deletion = %s, want free", tier)
	}
}

func TestWebhookRejectsBadSignatureAndUnknownCustomer(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	payload := `{"id":"evt_1","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_x","customer":"cus_unknown","status":"active"}}}`
	if err := svc.HandleWebhook(ctx, []byte(payload), "t=1,v1=deadbeef"); !errors.Is(err, util.ErrInvalidSignature) {
		t.Fatalf("bad signature err = %v", err)
	}
	if err := svc.HandleWebhook(ctx, []byte(payload), signed(payload)); !errors.Is(err, util.ErrSubscriptionNotFound) {
		t.Fatalf("unknown customer err = %v", err)
	}

	ignored := `{"id":"evt_2","object":"event","type":"invoice.paid","data":{"object":{}}}`
	if err := svc.HandleWebhook(ctx, []byte(ignored), signed(ignored)); err != nil {
		t.Fatalf("unhandled events should be ignored, got %v", err)
	}
}

func TestCheckoutStoresPendingCustomer(t *testing.T) {
	svc, billing, _, user := newPaymentFixture(t)
	ctx := context.Background()

	session, err := svc.Checkout(ctx, user.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if session.URL == "" || len(billing.checkouts) != 1 || billing.checkouts[0].Email != user.Email {
		t.Fatalf("checkout = %+v, requests = %+v", session, billing.checkouts)
	}
	sub, err := svc.Subscription(ctx, user.ID)
	if err != nil || sub.CustomerID != "cus_1" || sub.Status != model.SubscriptionIncomplete {
		t.Fatalf("pending subscription = (%+v, %v)", sub, err)
	}
	if tier, _ := svc.TierFor(ctx, user.ID); tier != quiz.TierFree {
		t.Fatalf("incomplete subscription must not grant access")
	}
}

func TestCancelAndReactivate(t *testing.T) {
	svc, billing, _, user := newPaymentFixture(t)
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, user.ID); !errors.Is(err, util.ErrSubscriptionNotFound) {
		t.Fatalf("cancel without subscription err = %v", err)
	}
	if err := svc.SubRepo.Upsert(ctx, &model.Subscription{UserID: user.ID, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: model.SubscriptionActive}); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	sub, err := svc.Cancel(ctx, user.ID)
	if err != nil || !sub.CancelAtPeriodEnd || !billing.cancels["sub_1"] {
		t.Fatalf("Cancel = (%+v, %v)", sub, err)
	}
	sub, err = svc.Reactivate(ctx, user.ID)
	if err != nil || sub.CancelAtPeriodEnd || billing.cancels["sub_1"] {
		t.Fatalf("Reactivate = (%+v, %v)", sub, err)
	}
}

func TestPlansRoundsAmount(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(t)
	plans := svc.Plans()
	if len(plans) != 1 || plans[0].Amount.String() != "9.99" || plans[0].ID != "price_premium" {
		t.Fatalf("plans = %+v", plans)
	}
}
