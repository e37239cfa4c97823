package service

import (
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/pkg/logger"
	"civics_quiz_backend/pkg/monitoring"
	"civics_quiz_backend/pkg/tracing"
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TierResolver 查询登录用户的订阅等级
type TierResolver interface {
	TierFor(ctx context.Context, userID uint) (quiz.Tier, error)
}

// AccessGate 决定某个访问者能否开始新的测验。
// 任何存储或等级查询失败都按拒绝处理，绝不放行。
type AccessGate struct {
	users  repository.CounterStore
	guests repository.CounterStore
	tiers  TierResolver
	policy atomic.Pointer[quiz.Policy]
}

func NewAccessGate(users, guests repository.CounterStore, tiers TierResolver, limits quiz.Limits) *AccessGate {
	g := &AccessGate{users: users, guests: guests, tiers: tiers}
	g.policy.Store(quiz.NewPolicy(limits))
	return g
}

// SetLimits 配置热更新时替换免费额度
func (g *AccessGate) SetLimits(limits quiz.Limits) {
	g.policy.Store(quiz.NewPolicy(limits))
	logger.Log.Info("Free quiz limits updated",
		zap.Int("standard", limits.Of(quiz.ModeStandard)),
		zap.Int("timed", limits.Of(quiz.ModeTimed)),
		zap.Int("practice", limits.Of(quiz.ModePractice)),
	)
}

func (g *AccessGate) Limits() quiz.Limits {
	return g.policy.Load().Limits()
}

func (g *AccessGate) CheckAccess(ctx context.Context, actor quiz.Actor, mode quiz.Mode) quiz.AccessDecision {
	ctx, span := tracing.Start(ctx, "AccessGate.CheckAccess")
	defer span.End()

	decision := g.decide(ctx, actor, mode)

	span.SetAttributes(
		attribute.String("quiz.mode", string(mode)),
		attribute.Bool("quiz.known_actor", actor.Known()),
		attribute.String("quiz.decision", string(decision.Code)),
	)
	monitoring.GateDecisions.WithLabelValues(string(mode), string(decision.Code), monitoring.ActorLabel(actor.Known())).Inc()
	return decision
}

func (g *AccessGate) decide(ctx context.Context, actor quiz.Actor, mode quiz.Mode) quiz.AccessDecision {
	policy := g.policy.Load()

	if !actor.Known() {
		count, err := g.guests.GetCount(ctx, actor.ID(), mode)
		if err != nil {
			logger.With(ctx).Warn("Failed to read guest attempt counter",
				zap.String("guest_id", actor.GuestID),
				zap.String("mode", string(mode)),
				zap.Error(err),
			)
			return quiz.VerificationFailed(false)
		}
		return policy.Decide(quiz.TierFree, mode, count, false)
	}

	tier, err := g.tiers.TierFor(ctx, actor.UserID)
	if err != nil {
		logger.With(ctx).Warn("Failed to resolve subscription tier",
			zap.Uint("user_id", actor.UserID),
			zap.Error(err),
		)
		return quiz.VerificationFailed(true)
	}
	if tier == quiz.TierPaid {
		// 付费用户不读计数
		return policy.Decide(tier, mode, 0, true)
	}

	count, err := g.users.GetCount(ctx, actor.ID(), mode)
	if err != nil {
		logger.With(ctx).Warn("Failed to read attempt counter",
			zap.Uint("user_id", actor.UserID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		return quiz.VerificationFailed(true)
	}
	return policy.Decide(tier, mode, count, true)
}
