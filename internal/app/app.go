package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/restyle/server/cmd/server/docs" // swagger docs
	"github.com/restyle/server/internal/module/auth"
	"github.com/restyle/server/internal/module/decorate"
	"github.com/restyle/server/internal/module/ledger"
	"github.com/restyle/server/internal/module/synthesis"
	sharedcache "github.com/restyle/server/internal/shared/cache"
	"github.com/restyle/server/internal/shared/config"
	"github.com/restyle/server/internal/shared/database"
	"github.com/restyle/server/internal/shared/logger"
	"github.com/restyle/server/internal/utils/metrics"
	"github.com/restyle/server/internal/utils/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Application is the minimal surface main needs to run the server.
type Application interface {
	Router() *gin.Engine
	Stop()
}

var _ Application = (*App)(nil)

// App wires configuration, storage and modules into an HTTP server.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	jwtManager  *auth.JWTManager
	ledgerRepo  ledger.Repository
	synthesizer synthesis.Synthesizer

	ledgerHandler   *ledger.Handler
	decorateHandler *decorate.Handler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	// Initialize logger
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	// Initialize zap logger for modules that use zap
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("restyle"),
	}

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrate(&ledger.Account{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	app.db = db

	// Initialize Redis (optional, used for per-user throttling)
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, request throttling disabled", "error", err)
		} else {
			app.redis = redisClient
		}
	}

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.router = app.setupRouter()

	return app, nil
}

// initModules builds the ledger, synthesis and decoration modules.
func (a *App) initModules() error {
	a.jwtManager = auth.NewJWTManager(&auth.JWTConfig{
		Secret:            a.config.Auth.JWTSecret,
		AccessTokenExpiry: a.config.Auth.AccessTokenExpiry,
		Issuer:            a.config.Auth.Issuer,
	})

	a.ledgerRepo = ledger.NewRepository(a.db)
	a.ledgerHandler = ledger.NewHandler(a.ledgerRepo, a.metrics, a.zapLogger)

	synth, err := synthesis.NewFromConfig(&a.config.Synthesis, a.metrics)
	if err != nil {
		return fmt.Errorf("create synthesizer: %w", err)
	}
	a.synthesizer = synth

	decorateService := decorate.NewService(a.ledgerRepo, a.synthesizer, a.metrics, a.zapLogger)
	a.decorateHandler = decorate.NewHandler(decorateService, a.config.Upload.MaxImageBytes)

	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORSWithOrigins(a.config.CORS.AllowOrigins))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	a.registerRoutes(r)

	return r
}

// registerRoutes mounts the API endpoints.
func (a *App) registerRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.Use(middleware.RequireAuth(a.jwtManager))

	decorateGroup := api.Group("")
	if a.redis != nil && a.config.RateLimit.Enabled {
		limiter := sharedcache.NewRateLimiter(a.redis)
		decorateGroup.Use(middleware.RateLimitByUser(
			limiter,
			a.config.RateLimit.Limit,
			a.config.RateLimit.Window,
		))
	}
	decorateGroup.POST("/decorate", a.decorateHandler.Decorate)

	api.GET("/credits", a.ledgerHandler.GetBalance)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/credits", a.ledgerHandler.GrantCredits)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.logger.Warn("close database", "error", err)
			}
		}
	}
	_ = a.zapLogger.Sync()
}
