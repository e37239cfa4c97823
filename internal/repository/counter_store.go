package repository

import (
	"civics_quiz_backend/internal/quiz"
	"context"
)

// CounterStore 免费额度计数。不存在的计数视为 0，而不是错误。
// Store 本身不去重，每次成功提交由调用方保证最多 Increment 一次。
type CounterStore interface {
	GetCount(ctx context.Context, actorID string, mode quiz.Mode) (int, error)
	Increment(ctx context.Context, actorID string, mode quiz.Mode) error
}
