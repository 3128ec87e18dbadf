package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appfinance "github.com/erp/reconciliation/internal/application/finance"
	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/auth"
	"github.com/erp/reconciliation/internal/infrastructure/cache"
	"github.com/erp/reconciliation/internal/infrastructure/config"
	"github.com/erp/reconciliation/internal/infrastructure/event"
	"github.com/erp/reconciliation/internal/infrastructure/logger"
	"github.com/erp/reconciliation/internal/infrastructure/migration"
	"github.com/erp/reconciliation/internal/infrastructure/persistence"
	"github.com/erp/reconciliation/internal/infrastructure/telemetry"
	"github.com/erp/reconciliation/internal/interfaces/http/handler"
	"github.com/erp/reconciliation/internal/interfaces/http/middleware"
	"github.com/erp/reconciliation/internal/interfaces/http/router"
	"github.com/erp/reconciliation/migrations"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting reconciliation engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   db.DBSystem(),
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := migrate(db, log); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if needsRedis(cfg) {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	factory := cache.NewFactory(cache.WithLogger(log), cache.WithRedisClient(redisClient))
	locker, err := factory.PartyLocker(cfg.Lock)
	if err != nil {
		log.Fatal("Failed to create party lock", zap.Error(err))
	}
	idempotency, err := factory.IdempotencyStore(cfg.Idempotency)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditHandler(log))
	if cfg.Events.RedisStream != "" && redisClient != nil {
		bus.Subscribe(event.NewRedisStreamHandler(redisClient, cfg.Events.RedisStream, cfg.Events.StreamMaxLen))
		log.Info("Forwarding payment events", zap.String("stream", cfg.Events.RedisStream))
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	meter := meterProvider.Meter("reconciliation")
	metrics, err := telemetry.NewReconciliationMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to create reconciliation metrics", zap.Error(err))
	}

	repos := persistence.NewGormRepositories(db.DB)
	paymentService := appfinance.NewPaymentService(repos, persistence.NewGormTransactionScope(db.DB), locker,
		appfinance.WithEventPublisher(bus),
		appfinance.WithIdempotency(idempotency, shared.IdempotencyConfig{
			Enabled: cfg.Idempotency.Enabled,
			TTL:     cfg.Idempotency.TTL,
		}),
		appfinance.WithMetrics(metrics),
		appfinance.WithLogger(log),
	)
	balanceService := appfinance.NewBalanceService(repos, cfg.Balance.MaxTopLimit)
	agingService := appfinance.NewAgingService(repos,
		finance.AgingPolicy{OverdueAfterDays: cfg.Aging.OverdueAfterDays}, cfg.Aging.PartitionSize)

	routerCfg := router.Config{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter:          meter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}
	if cfg.JWT.Enabled {
		routerCfg.JWTService = auth.NewJWTService(cfg.JWT)
	} else {
		log.Warn("JWT authentication disabled, API is open")
	}

	engine, err := router.NewEngine(routerCfg, router.Handlers{
		Payments: handler.NewPaymentHandler(paymentService),
		Reports:  handler.NewReportHandler(balanceService, agingService),
		Health:   handler.NewHealthHandler(db),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}
	if closer, ok := idempotency.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown tracer provider", zap.Error(err))
	}

	log.Info("Server exited", zap.Duration("shutdown_budget", cfg.HTTP.ShutdownTimeout))
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Lock.Backend == cache.BackendRedis ||
		(cfg.Idempotency.Enabled && cfg.Idempotency.Backend == cache.BackendRedis) ||
		cfg.Events.RedisStream != ""
}

// migrate applies the embedded SQL migrations on postgres and the model
// schema on sqlite.
func migrate(db *persistence.Database, log *zap.Logger) error {
	if db.DBSystem() == "sqlite" {
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
