package model

import (
	"civics_quiz_backend/internal/quiz"
	"fmt"
)

// Question 题库中的一道四选一题目
type Question struct {
	BaseModel
	Prompt        string `gorm:"type:text;not null" json:"prompt" yaml:"prompt"`
	OptionA       string `gorm:"size:500;not null" json:"optionA" yaml:"a"`
	OptionB       string `gorm:"size:500;not null" json:"optionB" yaml:"b"`
	OptionC       string `gorm:"size:500;not null" json:"optionC" yaml:"c"`
	OptionD       string `gorm:"size:500;not null" json:"optionD" yaml:"d"`
	CorrectOption string `gorm:"size:1;not null" json:"correctOption" yaml:"answer"`
	Category      string `gorm:"size:100;index" json:"category" yaml:"category"`
	Explanation   string `gorm:"type:text" json:"explanation,omitempty" yaml:"explanation"`
}

func (Question) TableName() string {
	return "questions"
}

// ToQuiz validates the row and converts it for use in a session.
func (q *Question) ToQuiz() (quiz.Question, error) {
	tag, ok := quiz.ParseOptionTag(q.CorrectOption)
	if !ok {
		return quiz.Question{}, fmt.Errorf("question %d: invalid correct option %q", q.ID, q.CorrectOption)
	}
	if q.Prompt == "" {
		return quiz.Question{}, fmt.Errorf("question %d: empty prompt", q.ID)
	}
	return quiz.Question{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD},
		Correct: tag,
	}, nil
}
