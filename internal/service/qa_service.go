package service

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/pkg/logger"
	"civics_quiz_backend/pkg/monitoring"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SourceKnowledgeBase = "knowledge_base"
	SourceLLM           = "llm"

	historyTurns = 10
)

// Passage 检索到的一段资料
type Passage struct {
	Kind  string
	Title string
	Text  string
}

// Retriever 为问题检索背景资料，可替换为向量检索
type Retriever interface {
	Retrieve(ctx context.Context, question string, limit int) ([]Passage, error)
}

// KeywordRetriever 按关键词 LIKE 检索学习资料和题库
type KeywordRetriever struct {
	ContentRepo  *repository.ContentRepository
	QuestionRepo *repository.QuestionRepository
}

var stopWords = map[string]struct{}{
	"what": {}, "which": {}, "when": {}, "where": {}, "does": {}, "have": {},
	"that": {}, "this": {}, "with": {}, "from": {}, "about": {}, "there": {},
	"were": {}, "they": {}, "their": {}, "your": {}, "many": {}, "name": {},
}

// Keywords 去掉标点、短词和停用词
func Keywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	seen := make(map[string]struct{})
	var out []string
	for _, f := range fields {
		if len(f) < 4 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func (r *KeywordRetriever) Retrieve(ctx context.Context, question string, limit int) ([]Passage, error) {
	var passages []Passage
	seenSections := make(map[uint]struct{})
	seenQuestions := make(map[uint]struct{})

	for _, kw := range Keywords(question) {
		if len(passages) >= limit {
			break
		}
		sections, err := r.ContentRepo.Search(ctx, kw, limit)
		if err != nil {
			return nil, err
		}
		for _, sec := range sections {
			if _, ok := seenSections[sec.ID]; ok || len(passages) >= limit {
				continue
			}
			seenSections[sec.ID] = struct{}{}
			text := sec.Summary
			if sec.Body != "" {
				text = sec.Body
			}
			passages = append(passages, Passage{Kind: "study guide", Title: sec.Title, Text: text})
		}

		questions, err := r.QuestionRepo.Search(ctx, kw, limit)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if _, ok := seenQuestions[q.ID]; ok || len(passages) >= limit {
				continue
			}
			seenQuestions[q.ID] = struct{}{}
			passages = append(passages, Passage{Kind: "test question", Title: q.Prompt, Text: questionAnswerText(q)})
		}
	}
	return passages, nil
}

func questionAnswerText(q model.Question) string {
	answer := map[string]string{"a": q.OptionA, "b": q.OptionB, "c": q.OptionC, "d": q.OptionD}[strings.ToLower(q.CorrectOption)]
	text := "Answer: " + answer
	if q.Explanation != "" {
		text += "\n" + q.Explanation
	}
	return text
}

type QAService struct {
	Retriever   Retriever
	AI          *AIService
	QARepo      *repository.QARepository
	MaxPassages int
}

func NewQAService(retriever Retriever, ai *AIService, qaRepo *repository.QARepository, maxPassages int) *QAService {
	if maxPassages <= 0 {
		maxPassages = 4
	}
	return &QAService{Retriever: retriever, AI: ai, QARepo: qaRepo, MaxPassages: maxPassages}
}

// AnswerStream 一次问答的流式输出
type AnswerStream struct {
	SessionID string
	Source    string
	Tokens    <-chan string
	Errs      <-chan error
}

// Answer 非流式问答的完整结果
type Answer struct {
	SessionID string `json:"sessionId"`
	Source    string `json:"source"`
	Answer    string `json:"answer"`
}

// askContext 一次提问所需的背景资料和对话历史
type askContext struct {
	sessionID  string
	source     string
	background string
	history    []AIChatMessage
}

func (s *QAService) prepare(ctx context.Context, userID uint, sessionID, question string) askContext {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	passages, err := s.Retriever.Retrieve(ctx, question, s.MaxPassages)
	if err != nil {
		// 检索失败不影响回答，只是没有背景资料
		logger.With(ctx).Warn("Q&A retrieval failed", zap.Error(err))
		passages = nil
	}
	source := SourceLLM
	var background strings.Builder
	for _, p := range passages {
		source = SourceKnowledgeBase
		fmt.Fprintf(&background, "[%s] %s\n%s\n\n", p.Kind, p.Title, p.Text)
	}
	monitoring.AssistantRequests.WithLabelValues(source).Inc()

	var history []AIChatMessage
	if userID != 0 {
		recent, err := s.QARepo.Recent(ctx, userID, sessionID, historyTurns)
		if err != nil {
			logger.With(ctx).Warn("Failed to load Q&A history", zap.Uint("user_id", userID), zap.Error(err))
		}
		for _, m := range recent {
			history = append(history, AIChatMessage{Role: m.Role, Content: m.Content})
		}
	}
	return askContext{sessionID: sessionID, source: source, background: background.String(), history: history}
}

// Ask 非流式问答，供不接收 SSE 的客户端使用
func (s *QAService) Ask(ctx context.Context, userID uint, sessionID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	ac := s.prepare(ctx, userID, sessionID, question)

	text, err := s.AI.Chat(ctx, question, ac.background, ac.history)
	if err != nil {
		return nil, err
	}
	if userID != 0 && text != "" {
		s.saveExchange(ctx, userID, ac.sessionID, question, text, ac.source)
	}
	return &Answer{SessionID: ac.sessionID, Source: ac.source, Answer: text}, nil
}

// AskStream 检索资料后流式调用模型。登录用户的问答在完整结束后入库。
func (s *QAService) AskStream(ctx context.Context, userID uint, sessionID, question string) (*AnswerStream, error) {
	question = strings.TrimSpace(question)
	ac := s.prepare(ctx, userID, sessionID, question)
	sessionID, source := ac.sessionID, ac.source

	upstream, upstreamErrs := s.AI.ChatStream(ctx, question, ac.background, ac.history)
	tokens := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(tokens)
		defer close(errs)

		var answer strings.Builder
		for token := range upstream {
			answer.WriteString(token)
			select {
			case tokens <- token:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := <-upstreamErrs; err != nil {
			errs <- err
			return
		}
		if userID != 0 && answer.Len() > 0 {
			s.saveExchange(context.WithoutCancel(ctx), userID, sessionID, question, answer.String(), source)
		}
	}()

	return &AnswerStream{SessionID: sessionID, Source: source, Tokens: tokens, Errs: errs}, nil
}

func (s *QAService) saveExchange(ctx context.Context, userID uint, sessionID, question, answer, source string) {
	err := s.QARepo.Save(ctx,
		&model.QAMessage{UserID: userID, SessionID: sessionID, Role: "user", Content: question},
		&model.QAMessage{UserID: userID, SessionID: sessionID, Role: "assistant", Content: answer, Source: source},
	)
	if err != nil {
		logger.With(ctx).Error("Failed to save Q&A exchange", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *QAService) History(ctx context.Context, userID uint, page, limit int) ([]model.QAMessage, int64, error) {
	return s.QARepo.History(ctx, userID, page, limit)
}
