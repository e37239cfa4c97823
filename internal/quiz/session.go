package quiz

import (
	"errors"
	"time"
)

// State of a quiz session.
type State string

const (
	StateInitializing  State = "initializing"
	StateActive        State = "active"
	StateConfirmingEnd State = "confirming_end"
	StateFinishing     State = "finishing"
	StateTerminated    State = "terminated"
)

var (
	ErrInvalidTransition = errors.New("invalid quiz session transition")
	ErrSessionTerminated = errors.New("quiz session already terminated")
	ErrInvalidOption     = errors.New("answer must be one of a, b, c, d")
	ErrNoQuestions       = errors.New("quiz session needs at least one question")
)

type Options struct {
	Mode Mode
	// TimeLimit 仅 timed 模式生效
	TimeLimit    time.Duration
	PracticeType string
	Now          func() time.Time
}

// Session is the in-memory state of one quiz run. It is not safe for
// concurrent use; callers serialize access (see service.SessionManager).
type Session struct {
	mode         Mode
	practiceType string
	timeLimit    time.Duration
	remaining    time.Duration
	now          func() time.Time

	questions []Question
	access    *AccessDecision
	answers   map[int]OptionTag
	current   int
	state     State
	startedAt time.Time
	result    *Result
}

func NewSession(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		mode:         opts.Mode,
		practiceType: opts.PracticeType,
		now:          now,
		answers:      make(map[int]OptionTag),
		state:        StateInitializing,
	}
	if opts.Mode == ModeTimed {
		s.timeLimit = opts.TimeLimit
	}
	return s
}

// SetQuestions loads the question set. Only valid while initializing.
func (s *Session) SetQuestions(questions []Question) error {
	if s.state != StateInitializing {
		return ErrInvalidTransition
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	s.questions = append([]Question(nil), questions...)
	s.activateIfReady()
	return nil
}

// ApplyAccess records the gate decision. A denial terminates the session
// before it ever becomes active.
func (s *Session) ApplyAccess(d AccessDecision) error {
	if s.state != StateInitializing {
		return ErrInvalidTransition
	}
	s.access = &d
	if !d.CanAttempt {
		s.state = StateTerminated
		return nil
	}
	s.activateIfReady()
	return nil
}

func (s *Session) activateIfReady() {
	if s.access == nil || !s.access.CanAttempt || len(s.questions) == 0 {
		return
	}
	s.state = StateActive
	s.startedAt = s.now()
	s.remaining = s.timeLimit
}

func (s *Session) State() State         { return s.state }
func (s *Session) Mode() Mode           { return s.mode }
func (s *Session) PracticeType() string { return s.practiceType }
func (s *Session) Len() int             { return len(s.questions) }
func (s *Session) CurrentIndex() int    { return s.current }
func (s *Session) Timed() bool          { return s.mode == ModeTimed && s.timeLimit > 0 }
func (s *Session) Remaining() time.Duration {
	return s.remaining
}

// Denial returns the gate decision that terminated the session, if any.
func (s *Session) Denial() (AccessDecision, bool) {
	if s.access == nil || s.access.CanAttempt {
		return AccessDecision{}, false
	}
	return *s.access, true
}

func (s *Session) Current() (Question, bool) {
	if len(s.questions) == 0 {
		return Question{}, false
	}
	return s.questions[s.current], true
}

func (s *Session) Selected(index int) (OptionTag, bool) {
	tag, ok := s.answers[index]
	return tag, ok
}

// Result is available once the session has terminated after finishing.
func (s *Session) Result() (*Result, bool) {
	return s.result, s.result != nil
}

func (s *Session) SelectAnswer(raw string) error {
	if err := s.requireActive(); err != nil {
		return err
	}
	tag, ok := ParseOptionTag(raw)
	if !ok {
		return ErrInvalidOption
	}
	s.answers[s.current] = tag
	return nil
}

func (s *Session) Next() error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if s.current < len(s.questions)-1 {
		s.current++
	}
	return nil
}

func (s *Session) Previous() error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if s.current > 0 {
		s.current--
	}
	return nil
}

// Jump moves to an arbitrary index, clamped to the question range.
func (s *Session) Jump(index int) error {
	if err := s.requireActive(); err != nil {
		return err
	}
	switch {
	case index < 0:
		index = 0
	case index >= len(s.questions):
		index = len(s.questions) - 1
	}
	s.current = index
	return nil
}

func (s *Session) RequestEnd() error {
	if err := s.requireActive(); err != nil {
		return err
	}
	s.state = StateConfirmingEnd
	return nil
}

func (s *Session) CancelEnd() error {
	if s.enforceDeadline() {
		return ErrSessionTerminated
	}
	if s.state != StateConfirmingEnd {
		return s.transitionError()
	}
	s.state = StateActive
	return nil
}

// ConfirmEnd finishes the session early. In timed mode an expired deadline
// takes priority and the session completes as a timeout instead.
func (s *Session) ConfirmEnd() (*Result, error) {
	if s.enforceDeadline() {
		return s.result, nil
	}
	if s.state != StateConfirmingEnd {
		return nil, s.transitionError()
	}
	return s.finish(CompletionManual), nil
}

// Finish completes the session from the active state without confirmation.
func (s *Session) Finish() (*Result, error) {
	if s.enforceDeadline() {
		return s.result, nil
	}
	if s.state != StateActive && s.state != StateConfirmingEnd {
		return nil, s.transitionError()
	}
	return s.finish(CompletionManual), nil
}

// Tick advances the countdown by one second. It reports the result when the
// tick expired the session.
func (s *Session) Tick() (*Result, bool) {
	if !s.Timed() || (s.state != StateActive && s.state != StateConfirmingEnd) {
		return nil, false
	}
	s.remaining -= time.Second
	if s.remaining <= 0 || s.wallExpired() {
		s.remaining = 0
		return s.finish(CompletionTimeout), true
	}
	return nil, false
}

func (s *Session) requireActive() error {
	if s.enforceDeadline() {
		return ErrSessionTerminated
	}
	if s.state != StateActive {
		return s.transitionError()
	}
	return nil
}

func (s *Session) transitionError() error {
	if s.state == StateTerminated {
		return ErrSessionTerminated
	}
	return ErrInvalidTransition
}

// enforceDeadline finishes an expired timed session. It reports whether the
// session is (now) terminated by timeout.
func (s *Session) enforceDeadline() bool {
	if !s.Timed() || (s.state != StateActive && s.state != StateConfirmingEnd) {
		return false
	}
	if s.remaining > 0 && !s.wallExpired() {
		return false
	}
	s.remaining = 0
	s.finish(CompletionTimeout)
	return true
}

func (s *Session) wallExpired() bool {
	return !s.now().Before(s.startedAt.Add(s.timeLimit))
}

func (s *Session) finish(completion Completion) *Result {
	s.state = StateFinishing

	score, breakdown := Score(s.questions, s.answers)
	ids := make([]uint, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}
	taken := s.elapsed(completion)

	s.result = &Result{
		Score:        score,
		Total:        len(s.questions),
		Breakdown:    breakdown,
		TimeTaken:    taken,
		TimeSeconds:  int(taken / time.Second),
		Mode:         s.mode,
		Completion:   completion,
		PracticeType: s.practiceType,
		QuestionIDs:  ids,
		Answers:      AnswersToWire(s.answers),
	}
	s.state = StateTerminated
	return s.result
}

func (s *Session) elapsed(completion Completion) time.Duration {
	wall := s.now().Sub(s.startedAt)
	if !s.Timed() {
		return wall
	}
	if completion == CompletionTimeout {
		return s.timeLimit
	}
	ticked := s.timeLimit - s.remaining
	if ticked > wall {
		wall = ticked
	}
	if wall > s.timeLimit {
		wall = s.timeLimit
	}
	return wall
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	ID      uint              `json:"id"`
	Prompt  string            `json:"prompt"`
	Options map[string]string `json:"options"`
}

func ViewOf(q Question) QuestionView {
	return QuestionView{
		ID:     q.ID,
		Prompt: q.Prompt,
		Options: map[string]string{
			string(OptionA): q.Options[0],
			string(OptionB): q.Options[1],
			string(OptionC): q.Options[2],
			string(OptionD): q.Options[3],
		},
	}
}

// Snapshot is what clients see of a session between operations.
type Snapshot struct {
	State            State         `json:"state"`
	Mode             Mode          `json:"mode"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	Question         *QuestionView `json:"question,omitempty"`
	Selected         string        `json:"selected,omitempty"`
	Answered         []int         `json:"answered"`
	Timed            bool          `json:"timed"`
	RemainingSeconds int           `json:"remainingSeconds,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:    s.state,
		Mode:     s.mode,
		Index:    s.current,
		Total:    len(s.questions),
		Answered: sortedIndices(s.answers),
		Timed:    s.Timed(),
	}
	if s.Timed() {
		snap.RemainingSeconds = int(s.remaining / time.Second)
	}
	if s.state == StateActive || s.state == StateConfirmingEnd {
		if q, ok := s.Current(); ok {
			view := ViewOf(q)
			snap.Question = &view
		}
		if tag, ok := s.answers[s.current]; ok {
			snap.Selected = string(tag)
		}
	}
	return snap
}
