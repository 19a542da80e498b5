package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/controller"
	"study_notebook_backend/internal/localcache"
	"study_notebook_backend/internal/repository"
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/session"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"
	"study_notebook_backend/pkg/configwatcher"
	"study_notebook_backend/pkg/database"
	"study_notebook_backend/pkg/logger"
	"study_notebook_backend/pkg/monitoring"
	"study_notebook_backend/pkg/scheduler"
	"study_notebook_backend/pkg/security"
	"study_notebook_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const identityTimeout = 2 * time.Second

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Mongo           *mongo.Client
	Cache           localcache.Store
	Records         *repository.UserRecordRepository
	scheduler       *scheduler.Scheduler
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type services struct {
	auth        *service.AuthService
	userData    *service.UserDataService
	storage     *service.StorageService
	export      *service.ExportService
	goal        *service.GoalService
	calendar    *service.CalendarService
	score       *service.ScoreService
	wrongAnswer *service.WrongAnswerService
}

type controllers struct {
	auth        *controller.AuthController
	userData    *controller.UserDataController
	goal        *controller.GoalController
	calendar    *controller.CalendarController
	score       *controller.ScoreController
	wrongAnswer *controller.WrongAnswerController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// initDocumentStore 按配置选择用户数据文档存储
func (a *App) initDocumentStore(cfg *config.Config) (repository.DocumentStore, error) {
	switch cfg.DocumentStore.Driver {
	case config.DocumentStoreMongo:
		client, err := database.InitMongo(&cfg.DocumentStore)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.Mongo = client

		store := repository.NewMongoDocumentStore(client, cfg.DocumentStore.MongoDatabase, cfg.DocumentStore.Collection)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DocumentStore.Timeout)
		defer cancel()
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return store, nil
	case config.DocumentStoreSQL:
		return repository.NewSQLDocumentStore(a.DB), nil
	case config.DocumentStoreMemory:
		logger.Log.Warn("Using in-memory document store, user data will not survive a restart")
		return repository.NewMemoryDocumentStore(), nil
	}
	return nil, fmt.Errorf("unsupported document store driver %q", cfg.DocumentStore.Driver)
}

func (a *App) initServices(cfg *config.Config, clock util.Clock) *services {
	s := &services{}
	s.storage = service.NewStorageService(cfg)
	s.export = service.NewExportService(s.storage, clock)
	s.auth = service.NewAuthService(repository.NewUserRepository(a.DB), a.Records, a.Cache, cfg)
	s.userData = service.NewUserDataService(a.Records)
	s.goal = service.NewGoalService(clock)
	s.calendar = service.NewCalendarService()
	s.score = service.NewScoreService()
	s.wrongAnswer = service.NewWrongAnswerService(clock)
	return s
}

func (a *App) initControllers(s *services, identities usersync.IdentitySource, factory *usersync.Factory) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth, identities),
		userData:    controller.NewUserDataController(s.userData, s.export),
		goal:        controller.NewGoalController(s.goal, factory),
		calendar:    controller.NewCalendarController(s.calendar, factory),
		score:       controller.NewScoreController(s.score, factory),
		wrongAnswer: controller.NewWrongAnswerController(s.wrongAnswer, factory),
		health:      controller.NewHealthController(a.DB, a.Records),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if cfg.RateLimit.MaxRequests > 0 && window > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	app := &App{Config: cfg}

	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	app.DB = db
	if cfg.MigrateOnly {
		return app, nil
	}

	if cfg.LocalCache.Type == config.LocalCacheRedis {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("initialize redis: %w", err)
		}
		app.Redis = rdb
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("study-notebook", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	clock := util.NewMonotonicClock()

	store, err := app.initDocumentStore(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Records = repository.NewUserRecordRepository(store, clock, cfg.DocumentStore.Timeout)

	cache, err := localcache.New(cfg.LocalCache, app.Redis, clock)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("initialize local cache: %w", err)
	}
	app.Cache = cache

	identities := session.NewBinding(session.NewJWTProvider(cfg.JWT.Secret), identityTimeout)
	factory := usersync.NewFactory(identities, app.Records, cache)

	services := app.initServices(cfg, clock)
	controllers := app.initControllers(services, identities, factory)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, identities, factory)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	probeEvery := time.Duration(cfg.Jobs.StoreProbeSeconds) * time.Second
	app.scheduler = scheduler.New(app.Records, probeEvery)

	return app, nil
}

// Close 释放数据库、缓存等连接
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			logger.Log.Warn("Failed to close local cache", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Disconnect(ctx); err != nil {
			logger.Log.Warn("Failed to disconnect mongo", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	if err := a.scheduler.Start(); err != nil {
		logger.Log.Error("Failed to start scheduler", zap.Error(err))
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	watcher := configwatcher.New(filepath.Join("configs", "config.yaml"), configwatcher.LogLevelReloader)
	for _, cb := range a.configCallbacks {
		watcher.Reloaders = append(watcher.Reloaders, cb)
	}
	go func() {
		if err := watcher.Run(watchCtx); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}
