package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt 一次完成的测验记录，创建后不可修改
type QuizAttempt struct {
	ID               uint                                  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint                                  `gorm:"index;not null" json:"userId"`
	Mode             string                                `gorm:"size:20;not null;index" json:"mode"`
	QuestionIDs      datatypes.JSONSlice[uint]             `gorm:"type:json;not null" json:"questionIds"`
	Answers          datatypes.JSONType[map[string]string] `gorm:"type:json;not null" json:"userAnswers"`
	Score            int                                   `gorm:"not null" json:"score"`
	Total            int                                   `gorm:"not null" json:"total"`
	TimeTakenSeconds int                                   `gorm:"not null;default:0" json:"timeTaken"`
	IsTimed          bool                                  `gorm:"default:false" json:"isTimed"`
	IsPractice       bool                                  `gorm:"default:false" json:"isPractice"`
	PracticeType     string                                `gorm:"size:50" json:"practiceType,omitempty"`
	Completion       string                                `gorm:"size:20" json:"completion"`
	SubmissionKey    *string                               `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt        time.Time                             `json:"createdAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
