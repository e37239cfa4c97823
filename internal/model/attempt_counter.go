package model

import "time"

// AttemptCounter 每个 (actor, mode) 仅一行，不存在即为 0
type AttemptCounter struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID   string    `gorm:"size:64;not null;uniqueIndex:idx_counter_actor_mode,priority:1" json:"actorId"`
	Mode      string    `gorm:"size:20;not null;uniqueIndex:idx_counter_actor_mode,priority:2" json:"mode"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AttemptCounter) TableName() string {
	return "attempt_counters"
}
