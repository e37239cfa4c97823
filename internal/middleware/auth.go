package middleware

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func tokenFromRequest(c *gin.Context) string {
	tokenString := ""
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// websocket 无法携带自定义头，允许 query 传 token
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	return tokenString
}

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT parse failed", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		setUser(c, claims)
		c.Next()
	}
}

func setUser(c *gin.Context, claims *util.Claims) {
	c.Set(util.ContextUserKey, claims)
	c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), zap.Uint("user_id", claims.UserID)))
}

// TryAuthMiddleware 可选认证：有合法 token 则注入用户，否则按游客继续
func TryAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := tokenFromRequest(c); tokenString != "" {
			if claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret); err == nil {
				setUser(c, claims)
			}
		}
		c.Next()
	}
}

// GuestMiddleware 为未登录访问者分配稳定的游客 id（cookie 或请求头）
func GuestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		guestID := c.GetHeader(util.GuestHeaderName)
		if guestID == "" {
			guestID, _ = c.Cookie(util.GuestCookieName)
		}
		if _, err := uuid.Parse(guestID); err != nil {
			guestID = uuid.New().String()
			c.SetCookie(util.GuestCookieName, guestID, 60*60*24*365, "/", "", false, true)
		}
		c.Header(util.GuestHeaderName, guestID)
		c.Set(util.ContextGuestKey, guestID)
		if util.GetUserFromContext(c) == nil {
			c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), zap.String("guest_id", guestID)))
		}
		c.Next()
	}
}
