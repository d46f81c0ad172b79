package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/bizledger/backend/internal/application/billing"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/infrastructure/cache"
	"github.com/bizledger/backend/internal/infrastructure/config"
	"github.com/bizledger/backend/internal/infrastructure/event"
	"github.com/bizledger/backend/internal/infrastructure/logger"
	"github.com/bizledger/backend/internal/infrastructure/persistence"
	"github.com/bizledger/backend/internal/infrastructure/scheduler"
	"github.com/bizledger/backend/internal/infrastructure/telemetry"
	"github.com/bizledger/backend/internal/interfaces/http/handler"
	"github.com/bizledger/backend/internal/interfaces/http/middleware"
	"github.com/bizledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			BizLedger API
//	@version		1.0
//	@description	Invoice and payment ledger backend

//	@contact.name	API Support
//	@contact.url	https://github.com/bizledger/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BusinessID
//	@in							header
//	@name						X-Business-ID
//	@description				Business scope for every ledger operation

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting BizLedger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry providers. Each constructor returns a no-op
	// implementation when telemetry is disabled, so the wiring below stays
	// unconditional.
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
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Bridge zap to OTEL so log records ship alongside traces and metrics
	if cfg.Telemetry.Enabled {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          zapcore.InfoLevel,
		})
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, otelCore)
		}))
	}

	// Continuous profiling via Pyroscope
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiler.Enabled,
		ServerAddress:     cfg.Profiler.ServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Span profiles require a running profiler
	if cfg.Profiler.Enabled && cfg.Telemetry.Enabled {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing (otelgorm) and pool/query metrics
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			SlowQueryThresh:  200 * time.Millisecond,
			DBSystem:         "postgresql",
			WithoutVariables: true,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	dbMetrics, err := telemetry.NewDBMetrics(
		meterProvider.Meter("bizledger/db"),
		telemetry.DBMetricsConfig{Enabled: cfg.Telemetry.Enabled},
		log,
	)
	if err != nil {
		log.Fatal("Failed to initialize database metrics", zap.Error(err))
	}
	defer dbMetrics.Stop()
	if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
		log.Fatal("Failed to register database metrics plugin", zap.Error(err))
	}

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	businessRepo := persistence.NewGormBusinessRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types. The versioned
	// serializer upgrades stored payloads written under older schemas before
	// they reach the handlers.
	eventSerializer := event.NewVersionedSerializer(log)
	event.RegisterAllEvents(eventSerializer)

	// Create outbox publisher for transactional event saving
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Inject outbox publisher into repositories that need transactional event publishing
	invoiceRepo.SetOutboxEventSaver(outboxPublisher)
	paymentRepo.SetOutboxEventSaver(outboxPublisher)

	// Idempotency store backs both payment settlement dedup and event handler dedup.
	// Redis when configured, in-memory otherwise.
	var idempotencyStore shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(true),
		)
		idempotencyStore, err = storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
	}

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Ledger activity audit trail; deduplicated because the outbox processor
	// redelivers events the in-memory publish path already handled
	var activityHandler shared.EventHandler = appbilling.NewLedgerActivityHandler(log)
	if idempotencyStore != nil {
		activityHandler = event.NewIdempotentHandler(activityHandler, idempotencyStore, log,
			event.WithIdempotencyConfig(shared.IdempotencyConfig{
				TTL:     cfg.Idempotency.TTL,
				Enabled: cfg.Idempotency.Enabled,
			}),
		)
	}
	eventBus.Subscribe(activityHandler)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize and start outbox processor for guaranteed event delivery
	// The outbox processor reads events from the outbox_events table and publishes them to the event bus
	outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	if err := outboxProcessor.Start(context.Background()); err != nil {
		log.Fatal("Failed to start outbox processor", zap.Error(err))
	}
	defer func() {
		if err := outboxProcessor.Stop(context.Background()); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}()
	log.Info("Outbox processor started",
		zap.Int("batch_size", outboxProcessorConfig.BatchSize),
		zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
	)

	// Initialize application services
	invoiceService := appbilling.NewInvoiceService(invoiceRepo, eventBus, log)
	paymentService := appbilling.NewPaymentService(appbilling.PaymentServiceConfig{
		PaymentRepo:      paymentRepo,
		InvoiceRepo:      invoiceRepo,
		TransactionScope: persistence.NewGormTransactionScope(db.DB),
		IdempotencyStore: idempotencyStore,
		IdempotencyConfig: &shared.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Enabled: cfg.Idempotency.Enabled,
		},
		EventPublisher: eventBus,
		Logger:         log,
	})

	// Initialize the daily overdue sweep scheduler. The scheduler object always
	// exists so operators can inspect its status; the cron loop only runs when enabled.
	cronHour, cronMinute, err := scheduler.ParseCronSchedule(cfg.Scheduler.DailyCronSchedule)
	if err != nil {
		log.Warn("Invalid cron schedule, using default", zap.Error(err))
	}
	overdueScheduler := scheduler.NewOverdueScheduler(scheduler.OverdueSchedulerConfig{
		Enabled:           cfg.Scheduler.Enabled,
		CronHour:          cronHour,
		CronMinute:        cronMinute,
		DailyCronSchedule: cfg.Scheduler.DailyCronSchedule,
		JobTimeout:        cfg.Scheduler.JobTimeout,
	}, invoiceService, businessRepo, log)
	if cfg.Scheduler.Enabled {
		if err := overdueScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start overdue scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := overdueScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping overdue scheduler", zap.Error(err))
			}
		}()
		log.Info("Overdue scheduler started",
			zap.String("schedule", cfg.Scheduler.DailyCronSchedule),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// Business metrics: receivable gauges collected periodically per business
	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:               meterProvider.Meter("bizledger/ledger"),
		Logger:              log,
		ReceivablesProvider: telemetry.NewGormReceivablesMetricsProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}
	defer ledgerMetrics.Stop()
	if cfg.Telemetry.Enabled {
		ledgerMetrics.StartPeriodicCollection(ctx, telemetry.NewGormBusinessProvider(db.DB), 0)
	}

	// Initialize HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, paymentService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	overdueHandler := handler.NewOverdueHandler(invoiceService, overdueScheduler)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing/Metrics/Profiling - Observability
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled:   cfg.Profiler.Enabled,
		SkipPaths: []string{"/health"},
	}))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning and business scoping)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Every ledger operation is scoped to a business via the X-Business-ID header
	r.Use(middleware.BusinessMiddleware())

	// Invoice routes
	invoiceRoutes := router.NewDomainGroup("invoices", "/invoices")
	invoiceRoutes.POST("", invoiceHandler.Create)
	invoiceRoutes.GET("", invoiceHandler.List)
	invoiceRoutes.GET("/:id", invoiceHandler.Get)
	invoiceRoutes.PUT("/:id/lines", invoiceHandler.ReplaceLines)
	invoiceRoutes.POST("/:id/send", invoiceHandler.Send)
	invoiceRoutes.POST("/:id/viewed", invoiceHandler.MarkViewed)
	invoiceRoutes.POST("/:id/cancel", invoiceHandler.Cancel)
	invoiceRoutes.POST("/:id/reconcile", invoiceHandler.Reconcile)
	invoiceRoutes.DELETE("/:id", invoiceHandler.Delete)

	// Payment routes
	paymentRoutes := router.NewDomainGroup("payments", "/payments")
	paymentRoutes.POST("", paymentHandler.Record)
	paymentRoutes.GET("", paymentHandler.List)
	paymentRoutes.GET("/:id", paymentHandler.Get)
	paymentRoutes.POST("/:id/settle", paymentHandler.Settle)
	paymentRoutes.POST("/:id/refund", paymentHandler.Refund)
	paymentRoutes.POST("/:id/cancel", paymentHandler.Cancel)

	// Overdue sweep routes
	overdueRoutes := router.NewDomainGroup("overdue", "/overdue")
	overdueRoutes.POST("/run", overdueHandler.Run)
	overdueRoutes.POST("/sweep", overdueHandler.TriggerSweep)
	overdueRoutes.GET("/sweep/status", overdueHandler.SweepStatus)

	// System routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(invoiceRoutes).
		Register(paymentRoutes).
		Register(overdueRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
