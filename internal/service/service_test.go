package service

import (
	"civics_quiz_backend/internal/model"
	"civics_quiz_backend/internal/quiz"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "service.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.Question{},
		&model.AttemptCounter{},
		&model.QuizAttempt{},
		&model.StudySection{},
		&model.QAMessage{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedQuestions(t *testing.T, db *gorm.DB, n int, category string) []model.Question {
	t.Helper()
	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{
			Prompt:        "Who is the Commander in Chief of the military?",
			OptionA:       "the President",
			OptionB:       "the Vice President",
			OptionC:       "the Speaker of the House",
			OptionD:       "the Chief Justice",
			CorrectOption: "a",
			Category:      category,
		}
	}
	if err := db.Create(&questions).Error; err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return questions
}

var errStoreDown = errors.New("store unavailable")

// memCounter 内存计数，可模拟读写故障
type memCounter struct {
	mu       sync.Mutex
	counts   map[string]int
	readErr  error
	writeErr error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: make(map[string]int)}
}

func (c *memCounter) GetCount(ctx context.Context, actorID string, mode quiz.Mode) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, c.readErr
	}
	return c.counts[actorID+":"+string(mode)], nil
}

func (c *memCounter) Increment(ctx context.Context, actorID string, mode quiz.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.counts[actorID+":"+string(mode)]++
	return nil
}

func (c *memCounter) get(actorID string, mode quiz.Mode) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[actorID+":"+string(mode)]
}

type fakeTiers struct {
	tiers map[uint]quiz.Tier
	err   error
}

func (f *fakeTiers) TierFor(ctx context.Context, userID uint) (quiz.Tier, error) {
	if f.err != nil {
		return "", f.err
	}
	if tier, ok := f.tiers[userID]; ok {
		return tier, nil
	}
	return quiz.TierFree, nil
}

func oneEach() quiz.Limits {
	return quiz.Limits{quiz.ModeStandard: 1, quiz.ModeTimed: 1, quiz.ModePractice: 1}
}
