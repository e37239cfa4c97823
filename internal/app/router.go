package app

import (
	"civics_quiz_backend/docs"
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/middleware"
	"civics_quiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 测验与题目：登录用户与游客都可访问
	a.registerQuizRoutes(router, c, cfg)

	// 3. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)

		payments := authGroup.Group("/payments")
		{
			payments.POST("/checkout", c.payment.Checkout)
			payments.GET("/subscription", c.payment.Subscription)
			payments.POST("/subscription/cancel", c.payment.Cancel)
			payments.POST("/subscription/reactivate", c.payment.Reactivate)
		}

		authGroup.GET("/qa/history", c.qa.History)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/content/sections", c.content.ListSections)
		public.GET("/content/sections/:slug", c.content.GetSection)
		public.GET("/content/search", c.content.Search)

		public.GET("/payments/plans", c.payment.Plans)
		// 签名校验代替登录
		public.POST("/payments/webhook", c.payment.Webhook)

		public.POST("/qa/ask", middleware.TryAuthMiddleware(a.Config), c.qa.Ask)
	}
}

func (a *App) registerQuizRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	visitor := router.Group("/api")
	visitor.Use(middleware.TryAuthMiddleware(cfg), middleware.GuestMiddleware())

	quizGroup := visitor.Group("/quiz")
	{
		quizGroup.GET("/access", c.quiz.CheckAccess)

		sessions := quizGroup.Group("/sessions")
		{
			sessions.POST("", c.quiz.CreateSession)
			sessions.GET("/:id", c.quiz.GetSession)
			sessions.DELETE("/:id", c.quiz.Abandon)
			sessions.GET("/:id/ws", c.quiz.SessionSocket)
			sessions.POST("/:id/answer", c.quiz.Answer)
			sessions.POST("/:id/next", c.quiz.Next)
			sessions.POST("/:id/previous", c.quiz.Previous)
			sessions.POST("/:id/jump", c.quiz.Jump)
			sessions.POST("/:id/end", c.quiz.RequestEnd)
			sessions.POST("/:id/end/confirm", c.quiz.ConfirmEnd)
			sessions.POST("/:id/end/cancel", c.quiz.CancelEnd)
			sessions.POST("/:id/finish", c.quiz.Finish)
			sessions.POST("/:id/submit", c.quiz.Submit)
		}

		quizGroup.POST("/attempts", c.quiz.SubmitAttempt)
		quizGroup.GET("/attempts", middleware.AuthMiddleware(cfg), c.quiz.ListAttempts)
		quizGroup.GET("/attempts/:id", middleware.AuthMiddleware(cfg), c.quiz.GetAttempt)
	}

	questions := visitor.Group("/questions")
	{
		questions.GET("", c.question.ByIDs)
		questions.GET("/random", c.question.Random)
		questions.GET("/practice", c.question.Practice)
		questions.GET("/categories", c.question.Categories)
	}
}
