package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"quizgen_backend/internal/config"
	"quizgen_backend/internal/controller"
	"quizgen_backend/internal/repository"
	"quizgen_backend/internal/service"
	"quizgen_backend/internal/util"
	"quizgen_backend/pkg/configwatcher"
	"quizgen_backend/pkg/database"
	"quizgen_backend/pkg/logger"
	"quizgen_backend/pkg/monitoring"
	"quizgen_backend/pkg/security"
	"quizgen_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "quizgen-backend"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configFile      string
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user   *repository.UserRepository
	test   *repository.TestRepository
	result *repository.ResultRepository
}

type services struct {
	auth    *service.AuthService
	storage *service.StorageService
	keys    *service.KeyPool
	test    *service.TestService
	attempt *service.AttemptService
	report  *service.ReportService
	reaper  *service.ReaperService
}

type controllers struct {
	auth    *controller.AuthController
	test    *controller.TestController
	attempt *controller.AttemptController
	report  *controller.ReportController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:   repository.NewUserRepository(db),
		test:   repository.NewTestRepository(db),
		result: repository.NewResultRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)

	s.keys = service.NewKeyPool(cfg.AI.APIKeys)
	if s.keys.Len() == 0 {
		logger.Log.Warn("No AI API keys configured, document upload will fail until keys are added")
	}
	generator := service.NewGeminiGenerator(
		s.keys,
		cfg.AI.Model,
		cfg.AI.MaxSourceChars,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second,
	)

	s.test = service.NewTestService(repos.test, repos.result, s.storage, generator, cfg)
	s.attempt = service.NewAttemptService(repos.test, repos.result, service.NewAttemptLedger(rdb), cfg)
	s.report = service.NewReportService(repos.test, repos.result, cfg)
	s.reaper = service.NewReaperService(repos.test, s.storage, &cfg.Reaper)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		test:    controller.NewTestController(s.test, a.Config.Storage.MaxUploadMB),
		attempt: controller.NewAttemptController(s.attempt),
		report:  controller.NewReportController(s.report),
		health:  controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时清理、限流表回收和配置热加载，随 ctx 结束
func (a *App) startBackgroundTasks(ctx context.Context) {
	if err := a.services.reaper.Start(); err != nil {
		logger.Log.Error("Failed to start reaper", zap.Error(err))
	}

	go a.limiter.Run(ctx)

	if a.configFile == "" {
		return
	}
	err := configwatcher.WatchConfig(ctx, a.configFile, func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config watcher disabled", zap.String("file", a.configFile), zap.Error(err))
	}
}

// NewApp configDir 为 configs 目录，用于热加载 config.yaml
func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
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
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	app.Redis = rdb
	if configDir != "" {
		app.configFile = filepath.Join(configDir, "config.yaml")
	}

	// 监控初始化
	monitoring.Init()
	if err := util.RegisterValidators(); err != nil {
		logger.Log.Fatal("Failed to register validators", zap.Error(err))
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// AI 密钥变更后直接替换密钥池，无需重启
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.keys.Replace(newCfg.AI.APIKeys)
		logger.Log.Info("AI key pool reloaded", zap.Int("keys", services.keys.Len()))
	})

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.MaxMultipartMemory = int64(cfg.Storage.MaxUploadMB) << 20
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(serviceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, os.ModePerm)
		}
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	a.startBackgroundTasks(bgCtx)

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	// 等待正在执行的清理任务
	a.services.reaper.Stop(ctx)

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exiting")
}
