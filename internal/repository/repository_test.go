package repository

import (
	"civics_quiz_backend/internal/model"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "quiz.db")), &gorm.Config{
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
			Prompt:        "What is the supreme law of the land?",
			OptionA:       "the Constitution",
			OptionB:       "the Bill of Rights",
			OptionC:       "the Declaration of Independence",
			OptionD:       "the Federalist Papers",
			CorrectOption: "a",
			Category:      category,
		}
	}
	if err := db.Create(&questions).Error; err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return questions
}
