package repository

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"context"
	"testing"

	"gorm.io/datatypes"
)

func TestAttemptCounterMissingRowIsZero(t *testing.T) {
	repo := NewAttemptCounterRepository(newTestDB(t))
	got, err := repo.GetCount(context.Background(), "42", quiz.ModeStandard)
	if err != nil || got != 0 {
		t.Fatalf("GetCount = (%d, %v), want (0, nil)", got, err)
	}
}

func TestAttemptCounterIncrementUpserts(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttemptCounterRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.Increment(ctx, "7", quiz.ModeTimed); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	if got, _ := repo.GetCount(ctx, "7", quiz.ModeTimed); got != 3 {
		t.Fatalf("timed count = %d, want 3", got)
	}
	if got, _ := repo.GetCount(ctx, "7", quiz.ModeStandard); got != 0 {
		t.Fatalf("standard count = %d, want 0", got)
	}

	var rows int64
	db.Model(&model.AttemptCounter{}).Where("actor_id = ?", "7").Count(&rows)
	if rows != 1 {
		t.Fatalf("counter rows = %d, want exactly one per actor and mode", rows)
	}

	counts, err := repo.CountsFor(ctx, "7")
	if err != nil {
		t.Fatalf("CountsFor: %v", err)
	}
	if counts[quiz.ModeTimed] != 3 || counts[quiz.ModePractice] != 0 {
		t.Fatalf("CountsFor = %v", counts)
	}
}

func newAttempt(userID uint, key string) *model.QuizAttempt {
	attempt := &model.QuizAttempt{
		UserID:      userID,
		Mode:        string(quiz.ModeStandard),
		QuestionIDs: datatypes.NewJSONSlice([]uint{1, 2}),
		Answers:     datatypes.NewJSONType(map[string]string{"0": "a"}),
		Score:       1,
		Total:       2,
		Completion:  string(quiz.CompletionManual),
	}
	if key != "" {
		attempt.SubmissionKey = &key
	}
	return attempt
}

func TestRecordAttemptIncrementsCounterOnce(t *testing.T) {
	db := newTestDB(t)
	attempts := NewQuizAttemptRepository(db)
	counters := NewAttemptCounterRepository(db)
	ctx := context.Background()

	first := newAttempt(5, "session-1")
	if err := attempts.RecordAttempt(ctx, first); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("attempt id not assigned")
	}

	if err := attempts.RecordAttempt(ctx, newAttempt(5, "session-1")); err == nil {
		t.Fatalf("duplicate submission key should be rejected")
	}
	if got, _ := counters.GetCount(ctx, "5", quiz.ModeStandard); got != 1 {
		t.Fatalf("count = %d after rejected duplicate, want 1", got)
	}

	found, err := attempts.FindBySubmissionKey(ctx, "session-1")
	if err != nil || found == nil || found.ID != first.ID {
		t.Fatalf("FindBySubmissionKey = (%+v, %v)", found, err)
	}
	if got := found.Answers.Data()["0"]; got != "a" {
		t.Fatalf("stored answers = %v", found.Answers.Data())
	}

	missing, err := attempts.FindBySubmissionKey(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing key = (%+v, %v), want (nil, nil)", missing, err)
	}
}

func TestListAttemptsByUser(t *testing.T) {
	db := newTestDB(t)
	attempts := NewQuizAttemptRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := attempts.RecordAttempt(ctx, newAttempt(9, "")); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	if err := attempts.RecordAttempt(ctx, newAttempt(10, "")); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	list, total, err := attempts.ListByUser(ctx, 9, "", 1, 2)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("ListByUser = %d items of %d, want 2 of 3", len(list), total)
	}

	if _, err := attempts.FindForUser(ctx, 10, list[0].ID); err == nil {
		t.Fatalf("another user's attempt must not be visible")
	}
}
