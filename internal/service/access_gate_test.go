package service

import (
	"civics_quiz_backend/internal/quiz"
	"context"
	"testing"
)

func TestAccessGateGuestLimit(t *testing.T) {
	guests := newMemCounter()
	gate := NewAccessGate(newMemCounter(), guests, &fakeTiers{}, oneEach())
	guest := quiz.GuestActor("2f1c8f0e-7c1b-4f55-9a61-0a3c6a1e9b10")
	ctx := context.Background()

	first := gate.CheckAccess(ctx, guest, quiz.ModeStandard)
	if !first.CanAttempt || first.IsKnownActor || first.Limit != 1 {
		t.Fatalf("first check = %+v", first)
	}

	_ = guests.Increment(ctx, guest.ID(), quiz.ModeStandard)
	second := gate.CheckAccess(ctx, guest, quiz.ModeStandard)
	if second.CanAttempt || second.Code != quiz.DecisionLimitExceeded {
		t.Fatalf("second check = %+v", second)
	}

	// 其他模式的额度互不影响
	if timed := gate.CheckAccess(ctx, guest, quiz.ModeTimed); !timed.CanAttempt {
		t.Fatalf("timed mode should still be available: %+v", timed)
	}
}

func TestAccessGateUsesUserCounterForSignedInUsers(t *testing.T) {
	users := newMemCounter()
	guests := newMemCounter()
	gate := NewAccessGate(users, guests, &fakeTiers{}, oneEach())
	ctx := context.Background()

	_ = guests.Increment(ctx, "7", quiz.ModeStandard)
	if d := gate.CheckAccess(ctx, quiz.UserActor(7), quiz.ModeStandard); !d.CanAttempt || !d.IsKnownActor {
		t.Fatalf("guest counters must not apply to users: %+v", d)
	}

	_ = users.Increment(ctx, "7", quiz.ModeStandard)
	if d := gate.CheckAccess(ctx, quiz.UserActor(7), quiz.ModeStandard); d.CanAttempt {
		t.Fatalf("user at the limit should be denied: %+v", d)
	}
}

func TestAccessGatePaidUserSkipsCounter(t *testing.T) {
	users := newMemCounter()
	users.readErr = errStoreDown
	gate := NewAccessGate(users, newMemCounter(), &fakeTiers{tiers: map[uint]quiz.Tier{3: quiz.TierPaid}}, oneEach())

	d := gate.CheckAccess(context.Background(), quiz.UserActor(3), quiz.ModeTimed)
	if !d.CanAttempt || !d.Unlimited {
		t.Fatalf("paid user = %+v, want unlimited access", d)
	}
}

func TestAccessGateFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("tier lookup", func(t *testing.T) {
		gate := NewAccessGate(newMemCounter(), newMemCounter(), &fakeTiers{err: errStoreDown}, oneEach())
		d := gate.CheckAccess(ctx, quiz.UserActor(1), quiz.ModeStandard)
		if d.CanAttempt || !d.Retryable() || d.Reason == "" {
			t.Fatalf("decision = %+v, want retryable denial", d)
		}
	})

	t.Run("user counter", func(t *testing.T) {
		users := newMemCounter()
		users.readErr = errStoreDown
		gate := NewAccessGate(users, newMemCounter(), &fakeTiers{}, oneEach())
		if d := gate.CheckAccess(ctx, quiz.UserActor(1), quiz.ModeStandard); d.CanAttempt || !d.Retryable() {
			t.Fatalf("decision = %+v, want retryable denial", d)
		}
	})

	t.Run("guest counter", func(t *testing.T) {
		guests := newMemCounter()
		guests.readErr = errStoreDown
		gate := NewAccessGate(newMemCounter(), guests, &fakeTiers{}, oneEach())
		d := gate.CheckAccess(ctx, quiz.GuestActor("g"), quiz.ModePractice)
		if d.CanAttempt || !d.Retryable() || d.IsKnownActor {
			t.Fatalf("decision = %+v, want retryable guest denial", d)
		}
	})
}

func TestAccessGateSetLimits(t *testing.T) {
	users := newMemCounter()
	gate := NewAccessGate(users, newMemCounter(), &fakeTiers{}, oneEach())
	ctx := context.Background()
	_ = users.Increment(ctx, "5", quiz.ModeStandard)

	if d := gate.CheckAccess(ctx, quiz.UserActor(5), quiz.ModeStandard); d.CanAttempt {
		t.Fatalf("expected denial before limits change")
	}
	gate.SetLimits(quiz.Limits{quiz.ModeStandard: 3})
	if d := gate.CheckAccess(ctx, quiz.UserActor(5), quiz.ModeStandard); !d.CanAttempt || d.Limit != 3 {
		t.Fatalf("after SetLimits = %+v", d)
	}
	if got := gate.Limits().Of(quiz.ModeStandard); got != 3 {
		t.Fatalf("Limits() = %d, want 3", got)
	}
}
