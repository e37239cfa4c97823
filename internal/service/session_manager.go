package service

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/logger"
	"civics_quiz_backend/pkg/monitoring"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gate 访问判定
type Gate interface {
	CheckAccess(ctx context.Context, actor quiz.Actor, mode quiz.Mode) quiz.AccessDecision
}

// QuestionSource 为新会话出题
type QuestionSource interface {
	ForSession(ctx context.Context, actor quiz.Actor, mode quiz.Mode, category, practiceType string) ([]quiz.Question, error)
}

// Submitter 提交成绩
type Submitter interface {
	Submit(ctx context.Context, actor quiz.Actor, result *quiz.Result, submissionKey string) (*SubmissionOutcome, error)
}

// AccessDeniedError 携带拒绝时的判定详情
type AccessDeniedError struct {
	Decision quiz.AccessDecision
}

func (e *AccessDeniedError) Error() string {
	return e.Decision.Reason
}

func (e *AccessDeniedError) Unwrap() error {
	if e.Decision.Retryable() {
		return util.ErrVerificationFailed
	}
	return util.ErrLimitExceeded
}

const (
	EventTick     = "tick"
	EventFinished = "finished"
)

type SessionEvent struct {
	Type             string       `json:"type"`
	RemainingSeconds int          `json:"remainingSeconds"`
	Session          *SessionView `json:"session,omitempty"`
}

// SessionView 会话对外视图
type SessionView struct {
	ID string `json:"sessionId"`
	quiz.Snapshot
	Result      *quiz.Result       `json:"result,omitempty"`
	Submission  *SubmissionOutcome `json:"submission,omitempty"`
	SubmitError string             `json:"submitError,omitempty"`
}

type CreateSessionRequest struct {
	Mode         quiz.Mode
	PracticeType string
	Category     string
}

type liveSession struct {
	mu          sync.Mutex
	id          string
	owner       quiz.Actor
	quiz        *quiz.Session
	lastSeen    time.Time
	finishedAt  time.Time
	outcome     *SubmissionOutcome
	submitErr   error
	subscribers map[chan SessionEvent]struct{}
}

// SessionManager 持有进行中的测验会话。每个会话一把锁，
// 同一会话的操作、倒计时和提交都串行执行。
type SessionManager struct {
	gate        Gate
	questions   QuestionSource
	submissions Submitter
	cfg         config.QuizConfig
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

func NewSessionManager(gate Gate, questions QuestionSource, submissions Submitter, cfg config.QuizConfig) *SessionManager {
	return &SessionManager{
		gate:        gate,
		questions:   questions,
		submissions: submissions,
		cfg:         cfg,
		now:         time.Now,
		sessions:    make(map[string]*liveSession),
	}
}

// Create 先过访问判定再出题，被拒绝的会话不会保存
func (m *SessionManager) Create(ctx context.Context, actor quiz.Actor, req CreateSessionRequest) (*SessionView, error) {
	if !actor.Valid() {
		return nil, util.ErrAuthenticationRequired
	}

	session := quiz.NewSession(quiz.Options{
		Mode:         req.Mode,
		TimeLimit:    m.cfg.TimedDuration,
		PracticeType: req.PracticeType,
		Now:          m.now,
	})

	decision := m.gate.CheckAccess(ctx, actor, req.Mode)
	if err := session.ApplyAccess(decision); err != nil {
		return nil, err
	}
	if denial, denied := session.Denial(); denied {
		return nil, &AccessDeniedError{Decision: denial}
	}

	questions, err := m.questions.ForSession(ctx, actor, req.Mode, req.Category, req.PracticeType)
	if err != nil {
		return nil, err
	}
	if err := session.SetQuestions(questions); err != nil {
		return nil, err
	}

	ls := &liveSession{
		id:          uuid.New().String(),
		owner:       actor,
		quiz:        session,
		lastSeen:    m.now(),
		subscribers: make(map[chan SessionEvent]struct{}),
	}
	m.mu.Lock()
	m.sessions[ls.id] = ls
	monitoring.LiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	logger.With(ctx).Info("Quiz session started",
		zap.String("session_id", ls.id),
		zap.String("actor", actor.ID()),
		zap.String("mode", string(req.Mode)),
		zap.Int("questions", session.Len()),
	)
	return ls.view(), nil
}

func (m *SessionManager) lookup(id string, actor quiz.Actor) (*liveSession, error) {
	m.mu.RLock()
	ls, ok := m.sessions[id]
	m.mu.RUnlock()
	// 不是自己的会话按不存在处理
	if !ok || !ls.owner.Same(actor) {
		return nil, util.ErrSessionNotFound
	}
	return ls, nil
}

// apply 在会话锁内执行一次操作。操作导致会话结束（含超时）时立即提交成绩。
// 返回的视图在出错时也有效，便于客户端刷新状态。
func (m *SessionManager) apply(ctx context.Context, id string, actor quiz.Actor, op func(*quiz.Session) error) (*SessionView, error) {
	ls, err := m.lookup(id, actor)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.lastSeen = m.now()
	opErr := op(ls.quiz)
	m.finalize(ctx, ls)
	return ls.view(), opErr
}

func (m *SessionManager) Get(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(*quiz.Session) error { return nil })
}

func (m *SessionManager) Answer(ctx context.Context, id string, actor quiz.Actor, option string) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error { return s.SelectAnswer(option) })
}

func (m *SessionManager) Next(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error { return s.Next() })
}

func (m *SessionManager) Previous(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error { return s.Previous() })
}

func (m *SessionManager) Jump(ctx context.Context, id string, actor quiz.Actor, index int) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error { return s.Jump(index) })
}

func (m *SessionManager) RequestEnd(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error { return s.RequestEnd() })
}

func (m *SessionManager) CancelEnd(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error { return s.CancelEnd() })
}

func (m *SessionManager) ConfirmEnd(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error {
		_, err := s.ConfirmEnd()
		return err
	})
}

// Finish 答完最后一题直接交卷，无需二次确认
func (m *SessionManager) Finish(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	return m.apply(ctx, id, actor, func(s *quiz.Session) error {
		_, err := s.Finish()
		return err
	})
}

// Submit 重试上次失败的提交；已成功提交的会话直接返回结果
func (m *SessionManager) Submit(ctx context.Context, id string, actor quiz.Actor) (*SessionView, error) {
	view, err := m.apply(ctx, id, actor, func(s *quiz.Session) error {
		if _, ok := s.Result(); !ok {
			return quiz.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return view, err
	}
	if view.Submission == nil {
		return view, util.ErrPersistenceFailed
	}
	return view, nil
}

// Abandon 放弃会话，不消耗额度
func (m *SessionManager) Abandon(id string, actor quiz.Actor) error {
	ls, err := m.lookup(id, actor)
	if err != nil {
		return err
	}
	m.remove(ls)
	logger.Log.Info("Quiz session abandoned", zap.String("session_id", id))
	return nil
}

// Subscribe 订阅倒计时与结束事件，返回的函数用于退订
func (m *SessionManager) Subscribe(id string, actor quiz.Actor) (<-chan SessionEvent, func(), error) {
	ls, err := m.lookup(id, actor)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan SessionEvent, 8)

	ls.mu.Lock()
	if ls.subscribers == nil {
		ls.mu.Unlock()
		return nil, nil, util.ErrSessionNotFound
	}
	ls.subscribers[ch] = struct{}{}
	if _, done := ls.quiz.Result(); done {
		ls.publish(SessionEvent{Type: EventFinished, Session: ls.view()})
	}
	ls.mu.Unlock()

	cancel := func() {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		if _, ok := ls.subscribers[ch]; ok {
			delete(ls.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// Run 每秒驱动计时会话倒计时并清理过期会话，直到 ctx 结束
func (m *SessionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.TickAll(ctx)
			m.Sweep()
		}
	}
}

// TickAll 所有计时会话倒计时一秒
func (m *SessionManager) TickAll(ctx context.Context) {
	for _, ls := range m.snapshot() {
		ls.mu.Lock()
		if ls.quiz.Timed() && ls.outcome == nil && ls.finishedAt.IsZero() {
			if _, finished := ls.quiz.Tick(); finished {
				logger.Log.Info("Timed quiz session expired", zap.String("session_id", ls.id))
			} else {
				ls.publish(SessionEvent{Type: EventTick, RemainingSeconds: int(ls.quiz.Remaining() / time.Second)})
			}
			m.finalize(ctx, ls)
		}
		ls.mu.Unlock()
	}
}

// Sweep 清理超时未操作的会话和已过保留期的结果
func (m *SessionManager) Sweep() {
	now := m.now()
	for _, ls := range m.snapshot() {
		ls.mu.Lock()
		expired := false
		if !ls.finishedAt.IsZero() {
			expired = now.Sub(ls.finishedAt) > m.cfg.ResultRetention
		} else if m.cfg.SessionIdleTimeout > 0 {
			expired = now.Sub(ls.lastSeen) > m.cfg.SessionIdleTimeout
		}
		ls.mu.Unlock()
		if expired {
			m.remove(ls)
		}
	}
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) snapshot() []*liveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*liveSession, 0, len(m.sessions))
	for _, ls := range m.sessions {
		out = append(out, ls)
	}
	return out
}

func (m *SessionManager) remove(ls *liveSession) {
	m.mu.Lock()
	delete(m.sessions, ls.id)
	monitoring.LiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	ls.mu.Lock()
	for ch := range ls.subscribers {
		close(ch)
	}
	ls.subscribers = nil
	ls.mu.Unlock()
}

// finalize 会话结束后提交成绩，调用方持有 ls.mu。
// 成功提交后不再重复提交；失败时保留错误等待客户端重试。
func (m *SessionManager) finalize(ctx context.Context, ls *liveSession) {
	result, done := ls.quiz.Result()
	if !done || ls.outcome != nil {
		return
	}
	first := ls.finishedAt.IsZero()
	if first {
		ls.finishedAt = m.now()
	}

	outcome, err := m.submissions.Submit(ctx, ls.owner, result, ls.id)
	if err != nil {
		ls.submitErr = err
		logger.With(ctx).Warn("Quiz session submission failed",
			zap.String("session_id", ls.id),
			zap.Bool("retryable", errors.Is(err, util.ErrPersistenceFailed)),
			zap.Error(err),
		)
	} else {
		ls.outcome = outcome
		ls.submitErr = nil
	}
	if first || ls.outcome != nil {
		ls.publish(SessionEvent{Type: EventFinished, Session: ls.view()})
	}
}

func (ls *liveSession) view() *SessionView {
	v := &SessionView{
		ID:         ls.id,
		Snapshot:   ls.quiz.Snapshot(),
		Submission: ls.outcome,
	}
	if res, ok := ls.quiz.Result(); ok {
		v.Result = res
	}
	if ls.submitErr != nil {
		v.SubmitError = ls.submitErr.Error()
	}
	return v
}

// publish 不阻塞，慢订阅者会丢事件
func (ls *liveSession) publish(ev SessionEvent) {
	for ch := range ls.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
