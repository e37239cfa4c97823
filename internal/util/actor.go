package util

import (
	"civics_quiz_backend/internal/quiz"

	"github.com/gin-gonic/gin"
)

const ContextGuestKey = "guest_id"

// ActorFromContext 登录用户优先，否则退回游客身份
func ActorFromContext(c *gin.Context) quiz.Actor {
	if claims := GetUserFromContext(c); claims != nil && claims.UserID != 0 {
		return quiz.UserActor(claims.UserID)
	}
	if guest := c.GetString(ContextGuestKey); guest != "" {
		return quiz.GuestActor(guest)
	}
	return quiz.Actor{}
}
