package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeStripe 记录收到的表单，按路径返回固定对象
type fakeStripe struct {
	mu    sync.Mutex
	forms map[string]map[string]string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := map[string]string{"authorization": r.Header.Get("Authorization")}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	f.mu.Lock()
	if f.forms == nil {
		f.forms = map[string]map[string]string{}
	}
	f.forms[r.URL.Path] = form
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/checkout/sessions":
		fmt.Fprint(w, `{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.test/cs_1","customer":"cus_1"}`)
	case "/v1/subscriptions/sub_1":
		fmt.Fprintf(w, `{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active","current_period_end":1767225600,"cancel_at_period_end":%s,"items":{"object":"list","data":[{"id":"si_1","price":{"id":"price_premium"}}]}}`, r.PostForm.Get("cancel_at_period_end"))
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"no such route"}}`)
	}
}

func newStripeFixture(t *testing.T) (*StripeClient, *fakeStripe) {
	t.Helper()
	fake := &fakeStripe{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewStripeClient(config.PaymentConfig{BaseURL: srv.URL, SecretKey: "sk_test_1"}), fake
}

func TestStripeClientCreatesCheckoutSession(t *testing.T) {
	c, fake := newStripeFixture(t)

	session, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		UserID:     7,
		Email:      "ana@example.com",
		PriceID:    "price_premium",
		SuccessURL: "https://app.test/ok",
		CancelURL:  "https://app.test/cancel",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if session.ID != "cs_1" || session.CustomerID != "cus_1" || session.URL == "" {
		t.Fatalf("session = %+v", session)
	}

	form := fake.forms["/v1/checkout/sessions"]
	want := map[string]string{
		"mode":                    "subscription",
		"line_items[0][price]":    "price_premium",
		"line_items[0][quantity]": "1",
		"client_reference_id":     "7",
		"customer_email":          "ana@example.com",
		"authorization":           "Bearer sk_test_1",
	}
	for k, v := range want {
		if form[k] != v {
			t.Fatalf("form[%s] = %q, want %q (form: %v)", k, form[k], v, form)
		}
	}
}

func TestStripeClientUpdatesCancelFlag(t *testing.T) {
	c, fake := newStripeFixture(t)

	sub, err := c.SetCancelAtPeriodEnd(context.Background(), "sub_1", true)
	if err != nil {
		t.Fatalf("SetCancelAtPeriodEnd: %v", err)
	}
	if fake.forms["/v1/subscriptions/sub_1"]["cancel_at_period_end"] != "true" {
		t.Fatalf("form = %v", fake.forms["/v1/subscriptions/sub_1"])
	}
	if !sub.CancelAtPeriodEnd || sub.Customer != "cus_1" || sub.PriceID != "price_premium" || sub.PeriodEnd() == nil {
		t.Fatalf("subscription = %+v", sub)
	}

	if _, err := c.SetCancelAtPeriodEnd(context.Background(), "sub_missing", true); !errors.Is(err, util.ErrPaymentProvider) {
		t.Fatalf("unknown subscription err = %v, want ErrPaymentProvider", err)
	}
}
