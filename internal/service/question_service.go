package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/logger"
	"context"
	"math/rand"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

const PracticeIncorrect = "incorrect"

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
	AttemptRepo  *repository.QuizAttemptRepository
	Cfg          *config.QuizConfig

	shuffle func(n int, swap func(i, j int))
}

func NewQuestionService(questionRepo *repository.QuestionRepository, attemptRepo *repository.QuizAttemptRepository, cfg *config.QuizConfig) *QuestionService {
	return &QuestionService{
		QuestionRepo: questionRepo,
		AttemptRepo:  attemptRepo,
		Cfg:          cfg,
		shuffle:      rand.Shuffle,
	}
}

// DefaultCount 各模式默认出题数
func (s *QuestionService) DefaultCount(mode quiz.Mode) int {
	switch mode {
	case quiz.ModeTimed:
		return s.Cfg.TimedQuestions
	case quiz.ModePractice:
		return s.Cfg.PracticeQuestions
	default:
		return s.Cfg.StandardQuestions
	}
}

// Random 随机抽题，count<=0 时使用模式默认值
func (s *QuestionService) Random(ctx context.Context, mode quiz.Mode, category string, count int) ([]quiz.Question, error) {
	if count <= 0 {
		count = s.DefaultCount(mode)
	}
	ids, err := s.QuestionRepo.IDs(ctx, category)
	if err != nil {
		return nil, err
	}
	return s.sample(ctx, ids, count)
}

// ByIDs 按给定顺序取题
func (s *QuestionService) ByIDs(ctx context.Context, ids []uint) ([]quiz.Question, error) {
	rows, err := s.QuestionRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toQuiz(rows), nil
}

// Practice 练习模式取题。incorrectOnly 只从用户最近一次答错的题里抽。
func (s *QuestionService) Practice(ctx context.Context, actor quiz.Actor, category string, incorrectOnly bool, count int) ([]quiz.Question, error) {
	if count <= 0 {
		count = s.DefaultCount(quiz.ModePractice)
	}
	if !incorrectOnly {
		return s.Random(ctx, quiz.ModePractice, category, count)
	}
	if !actor.Known() {
		return nil, util.ErrAuthenticationRequired
	}

	ids, err := s.IncorrectIDs(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if category != "" {
		allowed, err := s.QuestionRepo.IDs(ctx, category)
		if err != nil {
			return nil, err
		}
		ids = intersect(ids, allowed)
	}
	return s.sample(ctx, ids, count)
}

// ForSession 按模式为新会话准备题目
func (s *QuestionService) ForSession(ctx context.Context, actor quiz.Actor, mode quiz.Mode, category, practiceType string) ([]quiz.Question, error) {
	if mode == quiz.ModePractice {
		return s.Practice(ctx, actor, category, practiceType == PracticeIncorrect, 0)
	}
	return s.Random(ctx, mode, category, 0)
}

func (s *QuestionService) Categories(ctx context.Context) ([]string, error) {
	return s.QuestionRepo.Categories(ctx)
}

// Bank 按 id 建立题目索引，不存在或无效的题不在结果中
func (s *QuestionService) Bank(ctx context.Context, ids []uint) (map[uint]quiz.Question, error) {
	questions, err := s.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	bank := make(map[uint]quiz.Question, len(questions))
	for _, q := range questions {
		bank[q.ID] = q
	}
	return bank, nil
}

// Rescore 用题库重新计分，已下线的题按答错计
func (s *QuestionService) Rescore(ctx context.Context, ids []uint, answers map[string]string) (quiz.Result, error) {
	bank, err := s.Bank(ctx, ids)
	if err != nil {
		return quiz.Result{}, err
	}
	return quiz.Rescore(ids, answers, bank), nil
}

// IncorrectIDs 遍历用户全部记录，返回最近一次作答仍为错误的题目 id
func (s *QuestionService) IncorrectIDs(ctx context.Context, userID uint) ([]uint, error) {
	attempts, err := s.AttemptRepo.AllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{})
	var all []uint
	for _, a := range attempts {
		for _, id := range a.QuestionIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				all = append(all, id)
			}
		}
	}
	questions, err := s.ByIDs(ctx, all)
	if err != nil {
		return nil, err
	}
	correct := make(map[uint]quiz.OptionTag, len(questions))
	for _, q := range questions {
		correct[q.ID] = q.Correct
	}

	wrong := make(map[uint]bool)
	for _, a := range attempts {
		answers := a.Answers.Data()
		for i, id := range a.QuestionIDs {
			key, ok := correct[id]
			if !ok {
				continue
			}
			tag, answered := quiz.ParseOptionTag(answers[strconv.Itoa(i)])
			wrong[id] = !answered || tag != key
		}
	}

	var ids []uint
	for id, isWrong := range wrong {
		if isWrong {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *QuestionService) sample(ctx context.Context, ids []uint, count int) ([]quiz.Question, error) {
	if len(ids) == 0 {
		return nil, util.ErrQuestionNotFound
	}
	picked := append([]uint(nil), ids...)
	s.shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if count < len(picked) {
		picked = picked[:count]
	}
	questions, err := s.ByIDs(ctx, picked)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuestionNotFound
	}
	return questions, nil
}

// toQuiz 跳过答案标记非法的题目
func toQuiz(rows []model.Question) []quiz.Question {
	out := make([]quiz.Question, 0, len(rows))
	for i := range rows {
		q, err := rows[i].ToQuiz()
		if err != nil {
			logger.Log.Warn("Skipping invalid question", zap.Error(err))
			continue
		}
		out = append(out, q)
	}
	return out
}

func intersect(ids, allowed []uint) []uint {
	set := make(map[uint]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
