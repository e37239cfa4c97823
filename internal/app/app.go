package app

import (
	"civics_quiz_backend/internal/config"
	"civics_quiz_backend/internal/controller"
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/repository"
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/internal/util"
	"civics_quiz_backend/pkg/configwatcher"
	"civics_quiz_backend/pkg/database"
	"civics_quiz_backend/pkg/logger"
	"civics_quiz_backend/pkg/monitoring"
	"civics_quiz_backend/pkg/security"
	"civics_quiz_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigDir 配置文件目录，热更新监听该目录
const ConfigDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.Limiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	subscription *repository.SubscriptionRepository
	question     *repository.QuestionRepository
	counter      *repository.AttemptCounterRepository
	guestCounter *repository.GuestCounterStore
	attempt      *repository.QuizAttemptRepository
	content      *repository.ContentRepository
	qa           *repository.QARepository
}

type services struct {
	storage    *service.StorageService
	payment    *service.PaymentService
	gate       *service.AccessGate
	question   *service.QuestionService
	submission *service.SubmissionService
	session    *service.SessionManager
	attempt    *service.AttemptService
	auth       *service.AuthService
	content    *service.ContentService
	ai         *service.AIService
	qa         *service.QAService
}

type controllers struct {
	auth     *controller.AuthController
	quiz     *controller.QuizController
	question *controller.QuestionController
	content  *controller.ContentController
	payment  *controller.PaymentController
	qa       *controller.QAController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig 热更新只影响可在运行期替换的配置项
func (a *App) applyConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

// quizLimits 配置中的免费额度转为判定使用的表
func quizLimits(cfg config.QuizConfig) quiz.Limits {
	return quiz.Limits{
		quiz.ModeStandard: cfg.FreeLimits.Standard,
		quiz.ModeTimed:    cfg.FreeLimits.Timed,
		quiz.ModePractice: cfg.FreeLimits.Practice,
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		subscription: repository.NewSubscriptionRepository(db),
		question:     repository.NewQuestionRepository(db),
		counter:      repository.NewAttemptCounterRepository(db),
		guestCounter: repository.NewGuestCounterStore(rdb, cfg.Quiz.GuestCounterTTL),
		attempt:      repository.NewQuizAttemptRepository(db),
		content:      repository.NewContentRepository(db),
		qa:           repository.NewQARepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, billing service.BillingProvider) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.payment = service.NewPaymentService(repos.subscription, repos.user, billing, cfg.Payment)
	s.gate = service.NewAccessGate(repos.counter, repos.guestCounter, s.payment, quizLimits(cfg.Quiz))
	s.question = service.NewQuestionService(repos.question, repos.attempt, &cfg.Quiz)
	s.submission = service.NewSubmissionService(repos.attempt, repos.guestCounter)
	s.session = service.NewSessionManager(s.gate, s.question, s.submission, cfg.Quiz)
	s.attempt = service.NewAttemptService(repos.attempt, s.question, s.submission)
	s.auth = service.NewAuthService(repos.user, repos.counter, s.payment, s.gate, cfg)
	s.content = service.NewContentService(repos.content, repos.question, s.storage)

	s.ai = service.NewAIService(cfg.AI)
	retriever := &service.KeywordRetriever{ContentRepo: repos.content, QuestionRepo: repos.question}
	s.qa = service.NewQAService(retriever, s.ai, repos.qa, cfg.AI.MaxPassages)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.gate.SetLimits(quizLimits(newCfg.Quiz))
	})
	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		quiz:     controller.NewQuizController(s.gate, s.session, s.attempt),
		question: controller.NewQuestionController(s.question),
		content:  controller.NewContentController(s.content),
		payment:  controller.NewPaymentController(s.payment),
		qa:       controller.NewQAController(s.qa),
		health:   controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// build 在 DB 与 Redis 就绪后组装服务和路由
func (a *App) build(billing service.BillingProvider) {
	cfg := a.Config
	repos := a.initRepositories(a.DB, a.Redis, cfg)
	a.services = a.initServices(repos, cfg, billing)
	controllers := a.initControllers(a.services)

	monitoring.Init()

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	a.limiter = security.NewLimiter(cfg.RateLimit.MaxRequests, window)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	a.Router = router

	a.setupMiddlewares(router, cfg)
	a.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.services.session.Run(ctx)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := a.limiter.Sweep(now); n > 0 {
					logger.Log.Debug("Rate limiter entries swept", zap.Int("count", n))
				}
			}
		}
	}()

	go func() {
		if err := configwatcher.Watch(ctx, ConfigDir, a.applyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")
	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("civics-quiz-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.build(service.NewStripeClient(cfg.Payment))
	return app
}

func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.startBackgroundTasks(ctx)

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 先停止倒计时与配置监听，进行中的会话随进程丢弃，不消耗额度
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
