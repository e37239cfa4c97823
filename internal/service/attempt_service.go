package service

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AttemptRequest 客户端自行计时答题后提交的结果
type AttemptRequest struct {
	UserAnswers   map[string]string `json:"userAnswers" binding:"required"`
	QuestionIDs   []uint            `json:"questionIds" binding:"required,min=1"`
	IsTimed       bool              `json:"isTimed"`
	TimeTaken     int               `json:"timeTaken" binding:"min=0"`
	IsPractice    bool              `json:"isPractice"`
	PracticeType  string            `json:"practiceType"`
	Completion    string            `json:"completion" binding:"omitempty,oneof=manual timeout"`
	SubmissionKey string            `json:"submissionKey" binding:"max=64"`
}

// Mode 由 isTimed / isPractice 推出测验模式
func (r *AttemptRequest) Mode() (quiz.Mode, error) {
	switch {
	case r.IsTimed && r.IsPractice:
		return "", fmt.Errorf("%w: a quiz cannot be both timed and practice", util.ErrMalformedRequest)
	case r.IsTimed:
		return quiz.ModeTimed, nil
	case r.IsPractice:
		return quiz.ModePractice, nil
	default:
		return quiz.ModeStandard, nil
	}
}

type AttemptDetail struct {
	Attempt *model.QuizAttempt `json:"attempt"`
	Result  quiz.Result        `json:"result"`
}

type AttemptService struct {
	AttemptRepo *repository.QuizAttemptRepository
	Questions   *QuestionService
	Submissions *SubmissionService
}

func NewAttemptService(attemptRepo *repository.QuizAttemptRepository, questions *QuestionService, submissions *SubmissionService) *AttemptService {
	return &AttemptService{AttemptRepo: attemptRepo, Questions: questions, Submissions: submissions}
}

// Submit 重新按题库计分后提交，客户端给出的分数一律忽略
func (s *AttemptService) Submit(ctx context.Context, actor quiz.Actor, req *AttemptRequest) (*SubmissionOutcome, error) {
	mode, err := req.Mode()
	if err != nil {
		return nil, err
	}
	if len(req.QuestionIDs) == 0 || req.UserAnswers == nil {
		return nil, util.ErrMalformedRequest
	}

	// 题目必须全部存在于题库，否则在计数和落库之前拒绝
	bank, err := s.Questions.Bank(ctx, req.QuestionIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range req.QuestionIDs {
		if _, ok := bank[id]; !ok {
			return nil, fmt.Errorf("%w: unknown question id %d", util.ErrMalformedRequest, id)
		}
	}

	answers := quiz.AnswersToWire(quiz.AnswersFromWire(req.UserAnswers, len(req.QuestionIDs)))
	result := quiz.Rescore(req.QuestionIDs, answers, bank)
	result.Mode = mode
	result.TimeSeconds = req.TimeTaken
	result.TimeTaken = time.Duration(req.TimeTaken) * time.Second
	result.Completion = quiz.CompletionManual
	if req.Completion != "" {
		result.Completion = quiz.Completion(req.Completion)
	}
	if mode == quiz.ModePractice {
		result.PracticeType = req.PracticeType
	}
	return s.Submissions.Submit(ctx, actor, &result, req.SubmissionKey)
}

func (s *AttemptService) List(ctx context.Context, userID uint, mode string, page, limit int) ([]model.QuizAttempt, int64, error) {
	return s.AttemptRepo.ListByUser(ctx, userID, mode, page, limit)
}

// Detail 返回记录以及按存储的题目和答案重新计算的明细
func (s *AttemptService) Detail(ctx context.Context, userID, attemptID uint) (*AttemptDetail, error) {
	attempt, err := s.AttemptRepo.FindForUser(ctx, userID, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	result, err := s.Questions.Rescore(ctx, attempt.QuestionIDs, attempt.Answers.Data())
	if err != nil {
		return nil, err
	}
	result.Mode = quiz.Mode(attempt.Mode)
	result.TimeSeconds = attempt.TimeTakenSeconds
	result.TimeTaken = time.Duration(attempt.TimeTakenSeconds) * time.Second
	result.Completion = quiz.Completion(attempt.Completion)
	result.PracticeType = attempt.PracticeType
	return &AttemptDetail{Attempt: attempt, Result: result}, nil
}
