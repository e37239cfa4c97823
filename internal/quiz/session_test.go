package quiz

import (
	"errors"
	"testing"
	"time"
)

func sampleQuestions(n int) []Question {
	tags := []OptionTag{OptionA, OptionB, OptionC, OptionD}
	out := make([]Question, n)
	for i := range out {
		out[i] = Question{
			ID:      uint(i + 1),
			Prompt:  "question",
			Options: [4]string{"w", "x", "y", "z"},
			Correct: tags[i%len(tags)],
		}
	}
	return out
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newActiveSession(t *testing.T, opts Options, questions []Question) *Session {
	t.Helper()
	s := NewSession(opts)
	if err := s.SetQuestions(questions); err != nil {
		t.Fatalf("SetQuestions: %v", err)
	}
	if err := s.ApplyAccess(AccessDecision{CanAttempt: true, Code: DecisionAllowed}); err != nil {
		t.Fatalf("ApplyAccess: %v", err)
	}
	if s.State() != StateActive {
		t.Fatalf("state = %s, want active", s.State())
	}
	return s
}

func TestSessionNeedsQuestionsAndAccess(t *testing.T) {
	s := NewSession(Options{Mode: ModeStandard})
	if err := s.ApplyAccess(AccessDecision{CanAttempt: true}); err != nil {
		t.Fatalf("ApplyAccess: %v", err)
	}
	if s.State() != StateInitializing {
		t.Fatalf("state = %s before questions, want initializing", s.State())
	}
	if err := s.SetQuestions(nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("SetQuestions(nil) err = %v, want ErrNoQuestions", err)
	}
	if err := s.SetQuestions(sampleQuestions(2)); err != nil {
		t.Fatalf("SetQuestions: %v", err)
	}
	if s.State() != StateActive {
		t.Fatalf("state = %s, want active", s.State())
	}
}

func TestSessionDeniedAccessTerminates(t *testing.T) {
	s := NewSession(Options{Mode: ModeStandard})
	denied := NewPolicy(Limits{ModeStandard: 1}).Decide(TierFree, ModeStandard, 1, true)
	if err := s.ApplyAccess(denied); err != nil {
		t.Fatalf("ApplyAccess: %v", err)
	}
	if s.State() != StateTerminated {
		t.Fatalf("state = %s, want terminated", s.State())
	}
	if d, ok := s.Denial(); !ok || d.Reason == "" {
		t.Fatalf("Denial() = (%+v, %v), want denial with reason", d, ok)
	}
	if err := s.SetQuestions(sampleQuestions(1)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("SetQuestions after denial err = %v", err)
	}
	if _, ok := s.Result(); ok {
		t.Fatalf("denied session must not produce a result")
	}
}

func TestSessionNavigationClamps(t *testing.T) {
	s := newActiveSession(t, Options{Mode: ModeStandard}, sampleQuestions(3))

	if err := s.Previous(); err != nil || s.CurrentIndex() != 0 {
		t.Fatalf("Previous at start = (%d, %v), want (0, nil)", s.CurrentIndex(), err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if s.CurrentIndex() != 2 {
		t.Fatalf("index = %d after overrun, want 2", s.CurrentIndex())
	}
	if s.State() != StateActive {
		t.Fatalf("moving past the end must not finish the session, state = %s", s.State())
	}
	if err := s.Jump(-4); err != nil || s.CurrentIndex() != 0 {
		t.Fatalf("Jump(-4) = (%d, %v)", s.CurrentIndex(), err)
	}
}

func TestSessionSelectAnswerLastWriteWins(t *testing.T) {
	s := newActiveSession(t, Options{Mode: ModeStandard}, sampleQuestions(1))

	if err := s.SelectAnswer("B"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := s.SelectAnswer("a"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if tag, _ := s.Selected(0); tag != OptionA {
		t.Fatalf("selected = %q, want a", tag)
	}
	if err := s.SelectAnswer("e"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("SelectAnswer(e) err = %v, want ErrInvalidOption", err)
	}
	if tag, _ := s.Selected(0); tag != OptionA {
		t.Fatalf("invalid option must not overwrite, got %q", tag)
	}
}

func TestSessionEndConfirmation(t *testing.T) {
	s := newActiveSession(t, Options{Mode: ModeStandard}, sampleQuestions(2))

	if _, err := s.ConfirmEnd(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ConfirmEnd without request err = %v", err)
	}
	if err := s.RequestEnd(); err != nil {
		t.Fatalf("RequestEnd: %v", err)
	}
	if err := s.SelectAnswer("a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("answers are frozen while confirming, err = %v", err)
	}
	if err := s.CancelEnd(); err != nil || s.State() != StateActive {
		t.Fatalf("CancelEnd = (%s, %v)", s.State(), err)
	}
	if err := s.RequestEnd(); err != nil {
		t.Fatalf("RequestEnd: %v", err)
	}
	res, err := s.ConfirmEnd()
	if err != nil {
		t.Fatalf("ConfirmEnd: %v", err)
	}
	if res.Completion != CompletionManual || res.Total != 2 || res.Score != 0 {
		t.Fatalf("result = %+v", res)
	}
	if s.State() != StateTerminated {
		t.Fatalf("state = %s, want terminated", s.State())
	}
	if err := s.Next(); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("Next after termination err = %v", err)
	}
}

func TestSessionScoresExampleScenario(t *testing.T) {
	questions := []Question{
		{ID: 10, Correct: OptionA},
		{ID: 11, Correct: OptionB},
		{ID: 12, Correct: OptionC},
	}
	s := newActiveSession(t, Options{Mode: ModeStandard}, questions)

	for _, answer := range []string{"a", "B", "d"} {
		if err := s.SelectAnswer(answer); err != nil {
			t.Fatalf("SelectAnswer: %v", err)
		}
		if err := s.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	res, err := s.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if res.Score != 2 || res.Total != 3 {
		t.Fatalf("score = %d/%d, want 2/3", res.Score, res.Total)
	}
	if res.Answers["1"] != "b" {
		t.Fatalf("answers should be normalized to lowercase, got %v", res.Answers)
	}
	if got := res.QuestionIDs; len(got) != 3 || got[0] != 10 || got[2] != 12 {
		t.Fatalf("question ids = %v", got)
	}
}

func TestTimedSessionAutoSubmitsOnLastTick(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newActiveSession(t, Options{Mode: ModeTimed, TimeLimit: time.Second, Now: clock.Now}, sampleQuestions(2))

	res, finished := s.Tick()
	if !finished || res == nil {
		t.Fatalf("Tick with one second left should finish")
	}
	if res.Completion != CompletionTimeout || res.Score != 0 || res.Total != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.TimeTaken != time.Second {
		t.Fatalf("TimeTaken = %v, want the full limit", res.TimeTaken)
	}
	if s.State() != StateTerminated {
		t.Fatalf("state = %s", s.State())
	}
}

func TestTimedSessionCountsDown(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newActiveSession(t, Options{Mode: ModeTimed, TimeLimit: 3 * time.Second, Now: clock.Now}, sampleQuestions(1))

	clock.Advance(time.Second)
	if _, finished := s.Tick(); finished {
		t.Fatalf("first tick should not finish")
	}
	if s.Remaining() != 2*time.Second {
		t.Fatalf("remaining = %v, want 2s", s.Remaining())
	}
	if snap := s.Snapshot(); snap.RemainingSeconds != 2 || !snap.Timed {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestTimeoutWinsOverPendingConfirmation(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newActiveSession(t, Options{Mode: ModeTimed, TimeLimit: 5 * time.Second, Now: clock.Now}, sampleQuestions(2))

	if err := s.RequestEnd(); err != nil {
		t.Fatalf("RequestEnd: %v", err)
	}
	clock.Advance(6 * time.Second)

	res, err := s.ConfirmEnd()
	if err != nil {
		t.Fatalf("ConfirmEnd: %v", err)
	}
	if res.Completion != CompletionTimeout {
		t.Fatalf("completion = %s, want timeout", res.Completion)
	}
}

func TestExpiredTimedSessionRejectsAnswers(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newActiveSession(t, Options{Mode: ModeTimed, TimeLimit: 2 * time.Second, Now: clock.Now}, sampleQuestions(1))

	clock.Advance(3 * time.Second)
	if err := s.SelectAnswer("a"); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("SelectAnswer after deadline err = %v", err)
	}
	res, ok := s.Result()
	if !ok || res.Completion != CompletionTimeout || res.Score != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestTickIgnoredForUntimedModes(t *testing.T) {
	s := newActiveSession(t, Options{Mode: ModeStandard, TimeLimit: time.Second}, sampleQuestions(1))
	if _, finished := s.Tick(); finished || s.State() != StateActive {
		t.Fatalf("standard sessions have no countdown")
	}
}

func TestSnapshotHidesAnswerKey(t *testing.T) {
	s := newActiveSession(t, Options{Mode: ModePractice, PracticeType: "incorrect"}, sampleQuestions(2))
	_ = s.SelectAnswer("c")
	snap := s.Snapshot()
	if snap.Question == nil || snap.Question.ID != 1 || snap.Selected != "c" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Answered) != 1 || snap.Answered[0] != 0 {
		t.Fatalf("answered = %v", snap.Answered)
	}
}
