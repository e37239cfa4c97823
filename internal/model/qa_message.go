package model

import "time"

// QAMessage 问答助手的一条对话记录
type QAMessage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	SessionID string    `gorm:"size:36;index;not null" json:"sessionId"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Source    string    `gorm:"size:30" json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (QAMessage) TableName() string {
	return "qa_messages"
}
