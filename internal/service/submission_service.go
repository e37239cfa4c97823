package service

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/logger"
	"civics_quiz_backend/pkg/monitoring"
	"civics_quiz_backend/pkg/tracing"
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// AttemptRecorder 持久化测验记录，RecordAttempt 需在同一事务内递增计数
type AttemptRecorder interface {
	FindBySubmissionKey(ctx context.Context, key string) (*model.QuizAttempt, error)
	RecordAttempt(ctx context.Context, attempt *model.QuizAttempt) error
}

type SubmissionOutcome struct {
	AttemptID uint         `json:"attemptId,omitempty"`
	Persisted bool         `json:"persisted"`
	Duplicate bool         `json:"duplicate,omitempty"`
	Result    *quiz.Result `json:"result"`
}

const (
	submissionRecorded  = "recorded"
	submissionDuplicate = "duplicate"
	submissionFailed    = "failed"
	submissionEphemeral = "ephemeral"
)

type SubmissionService struct {
	attempts AttemptRecorder
	guests   repository.CounterStore
}

func NewSubmissionService(attempts AttemptRecorder, guests repository.CounterStore) *SubmissionService {
	return &SubmissionService{attempts: attempts, guests: guests}
}

// Submit 保存一次完成的测验。登录用户写库并计数（同一 submissionKey 只计一次），
// 游客只递增 Redis 计数并直接返回成绩。
func (s *SubmissionService) Submit(ctx context.Context, actor quiz.Actor, result *quiz.Result, submissionKey string) (*SubmissionOutcome, error) {
	if result == nil || result.Total == 0 {
		return nil, util.ErrMalformedRequest
	}
	if !actor.Valid() {
		return nil, util.ErrAuthenticationRequired
	}

	ctx, span := tracing.Start(ctx, "SubmissionService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("quiz.mode", string(result.Mode)),
		attribute.Bool("quiz.known_actor", actor.Known()),
	)

	if !actor.Known() {
		if err := s.guests.Increment(ctx, actor.ID(), result.Mode); err != nil {
			logger.With(ctx).Warn("Failed to increment guest attempt counter",
				zap.String("guest_id", actor.GuestID),
				zap.String("mode", string(result.Mode)),
				zap.Error(err),
			)
		}
		s.observe(result.Mode, actor, submissionEphemeral)
		return &SubmissionOutcome{Result: result}, nil
	}

	if submissionKey != "" {
		existing, err := s.attempts.FindBySubmissionKey(ctx, submissionKey)
		if err != nil {
			return nil, s.fail(ctx, span, result.Mode, actor, err)
		}
		if existing != nil {
			return s.duplicate(existing, actor, result)
		}
	}

	attempt := attemptFromResult(actor.UserID, result, submissionKey)
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		// 并发提交同一 key 时唯一索引冲突，以先写入的一条为准
		if submissionKey != "" {
			if existing, findErr := s.attempts.FindBySubmissionKey(ctx, submissionKey); findErr == nil && existing != nil {
				return s.duplicate(existing, actor, result)
			}
		}
		return nil, s.fail(ctx, span, result.Mode, actor, err)
	}

	logger.With(ctx).Info("Quiz attempt recorded",
		zap.Uint("user_id", actor.UserID),
		zap.Uint("attempt_id", attempt.ID),
		zap.String("mode", string(result.Mode)),
		zap.Int("score", result.Score),
		zap.Int("total", result.Total),
	)
	s.observe(result.Mode, actor, submissionRecorded)
	return &SubmissionOutcome{AttemptID: attempt.ID, Persisted: true, Result: result}, nil
}

func (s *SubmissionService) duplicate(existing *model.QuizAttempt, actor quiz.Actor, result *quiz.Result) (*SubmissionOutcome, error) {
	if existing.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: submission key belongs to another user", util.ErrMalformedRequest)
	}
	s.observe(result.Mode, actor, submissionDuplicate)
	return &SubmissionOutcome{AttemptID: existing.ID, Persisted: true, Duplicate: true, Result: result}, nil
}

func (s *SubmissionService) fail(ctx context.Context, span trace.Span, mode quiz.Mode, actor quiz.Actor, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "persist attempt")
	logger.With(ctx).Error("Failed to record quiz attempt",
		zap.Uint("user_id", actor.UserID),
		zap.String("mode", string(mode)),
		zap.Error(err),
	)
	s.observe(mode, actor, submissionFailed)
	return fmt.Errorf("%w: %v", util.ErrPersistenceFailed, err)
}

func (s *SubmissionService) observe(mode quiz.Mode, actor quiz.Actor, status string) {
	monitoring.Submissions.WithLabelValues(string(mode), monitoring.ActorLabel(actor.Known()), status).Inc()
}

func attemptFromResult(userID uint, result *quiz.Result, submissionKey string) *model.QuizAttempt {
	answers := result.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	attempt := &model.QuizAttempt{
		UserID:           userID,
		Mode:             string(result.Mode),
		QuestionIDs:      datatypes.NewJSONSlice(result.QuestionIDs),
		Answers:          datatypes.NewJSONType(answers),
		Score:            result.Score,
		Total:            result.Total,
		TimeTakenSeconds: result.TimeSeconds,
		IsTimed:          result.Mode == quiz.ModeTimed,
		IsPractice:       result.Mode == quiz.ModePractice,
		PracticeType:     result.PracticeType,
		Completion:       string(result.Completion),
	}
	if submissionKey != "" {
		attempt.SubmissionKey = &submissionKey
	}
	return attempt
}
