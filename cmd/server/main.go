// Atelier Server - manufacturing task-planning engine
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/atelier/internal/application/observer"
	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/application/session"
	"github.com/smilemakc/atelier/internal/application/trigger"
	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/infrastructure/api/rest"
	"github.com/smilemakc/atelier/internal/infrastructure/cache"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
	"github.com/smilemakc/atelier/internal/infrastructure/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.Logging)
	logger.SetDefault(appLogger)

	appLogger.Info("Starting Atelier Server",
		"version", "1.0.0",
		"port", cfg.Server.Port,
		"databases", len(cfg.Databases.Specs),
	)

	debug := cfg.Logging.Level == "debug"

	// Upstream databases are opened lazily, on first selection.
	provider := storage.NewProvider(cfg.Databases, debug)
	defer provider.Close()

	// Redis is optional: without it, edits are serialized by the
	// in-process lock only.
	var redisCache *cache.RedisCache
	var editLocker planner.EditLocker
	if cfg.Redis.URL != "" {
		redisCache, err = cache.NewRedisCache(cfg.Redis)
		if err != nil {
			appLogger.Warn("Failed to initialize Redis cache", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			editLocker = cache.NewPlanningLocker(redisCache)
			appLogger.Info("Redis cache connected")
		}
	}

	// WebSocket hub for live planning views.
	var wsHub *observer.WebSocketHub
	if cfg.Observer.EnableWebSocket {
		wsHub = observer.NewWebSocketHub(appLogger)
		appLogger.Info("WebSocket hub initialized")
	}

	observerManager := observer.NewManager(
		observer.WithLogger(appLogger),
		observer.WithBufferSize(cfg.Observer.BufferSize),
	)

	if cfg.Observer.EnableLogger {
		loggerObserver := observer.NewLoggerObserver(
			observer.WithLoggerInstance(appLogger),
		)
		if err := observerManager.Register(loggerObserver); err != nil {
			appLogger.Error("Failed to register logger observer", "error", err)
		} else {
			appLogger.Info("Logger observer registered")
		}
	}

	if cfg.Observer.EnableWebSocket && wsHub != nil {
		wsObserver := observer.NewWebSocketObserver(
			wsHub,
			observer.WithWebSocketLogger(appLogger),
		)
		if err := observerManager.Register(wsObserver); err != nil {
			appLogger.Error("Failed to register WebSocket observer", "error", err)
		} else {
			appLogger.Info("WebSocket observer registered")
		}
	}

	appLogger.Info("Observer system initialized",
		"observer_count", observerManager.Count(),
	)

	// Planning engine.
	planningManager, err := planner.NewManager(storage.NewBackends(provider, mustLocation(cfg)), cfg.Scheduling, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize planning manager", "error", err)
		os.Exit(1)
	}
	coordinator := planner.NewCoordinator(cfg.Scheduling, appLogger, observerManager, editLocker)
	propagator := planner.NewPropagator(storage.NewBackends(provider, mustLocation(cfg)), appLogger, observerManager)

	appLogger.Info("Planning engine initialized",
		"display_timezone", cfg.Scheduling.DisplayTimezone,
		"half_day_hours", cfg.Scheduling.HalfDayHours,
	)

	// Session cookies.
	sessionService, err := session.NewService(cfg.Session)
	if err != nil {
		appLogger.Error("Failed to initialize session service", "error", err)
		os.Exit(1)
	}
	if cfg.Session.Secret == "" {
		appLogger.Warn("ATELIER_SESSION_SECRET not set: sessions reset on restart")
	}

	// Background jobs.
	scheduler := trigger.NewScheduler(planningManager, propagator, appLogger)
	if err := scheduler.Configure(cfg.Jobs); err != nil {
		appLogger.Error("Failed to configure background jobs", "error", err)
		os.Exit(1)
	}
	if scheduler.JobCount() > 0 {
		scheduler.Start()
		appLogger.Info("Background jobs started", "jobs", scheduler.JobCount())
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	loggingMiddleware := rest.NewLoggingMiddleware(appLogger)
	recoveryMiddleware := rest.NewRecoveryMiddleware(appLogger)
	bodySizeMiddleware := rest.NewBodySizeMiddleware(appLogger, cfg.Server.MaxBodySize)
	sessionMiddleware := rest.NewSessionMiddleware(sessionService)
	auditMiddleware := rest.NewAuditMiddleware(appLogger)

	router.Use(recoveryMiddleware.Recovery())
	router.Use(loggingMiddleware.RequestLogger())
	router.Use(bodySizeMiddleware.LimitBodySize())
	router.Use(sessionMiddleware.Load())

	if cfg.Server.CORS {
		router.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			c.Writer.Header().Set("Access-Control-Max-Age", "86400")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
		})
		appLogger.Info("CORS enabled")
	}

	// Health check endpoints.
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if redisCache != nil {
			if err := redisCache.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  fmt.Sprintf("redis: %s", err.Error()),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint.
	router.GET("/metrics", func(c *gin.Context) {
		databases := gin.H{}
		for id, stats := range provider.Stats() {
			databases[id] = gin.H{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
				"max_open_conns":   stats.MaxOpenConnections,
			}
		}

		metrics := gin.H{"databases": databases}

		if redisCache != nil {
			cacheStats := redisCache.Stats()
			metrics["redis"] = gin.H{
				"hits":        cacheStats.Hits,
				"misses":      cacheStats.Misses,
				"total_conns": cacheStats.TotalConns,
				"idle_conns":  cacheStats.IdleConns,
			}
		}

		c.JSON(http.StatusOK, gin.H{"metrics": metrics})
	})

	// WebSocket endpoints.
	if cfg.Observer.EnableWebSocket && wsHub != nil {
		wsHandler := observer.NewWebSocketHandler(wsHub, appLogger)
		router.GET("/ws/planning", func(c *gin.Context) {
			wsHandler.ServeHTTP(c.Writer, c.Request)
		})
		router.GET("/ws/health", func(c *gin.Context) {
			wsHandler.HandleHealthCheck(c.Writer, c.Request)
		})
		appLogger.Info("WebSocket endpoints registered",
			"endpoints", []string{"/ws/planning", "/ws/health"},
		)
	}

	planningHandlers := rest.NewPlanningHandlers(provider, planningManager, sessionMiddleware, appLogger, debug)
	editHandlers := rest.NewEditHandlers(planningManager, coordinator, appLogger)
	propagateHandlers := rest.NewPropagateHandlers(planningManager, propagator, appLogger)

	// Navigation.
	router.GET("/", planningHandlers.HandleLanding)
	router.GET("/select_database/:id", planningHandlers.HandleSelectDatabase)
	router.GET("/change_database", planningHandlers.HandleChangeDatabase)

	withDatabase := router.Group("/", sessionMiddleware.RequireDatabase())
	{
		withDatabase.GET("/planning_selection", planningHandlers.HandlePlanningSelection)
		withDatabase.GET("/select_planning/:id", planningHandlers.HandleSelectPlanning)
		withDatabase.GET("/change_planning", planningHandlers.HandleChangePlanning)
	}

	// Planning view and edits, all bound to the selected planning. The
	// edit rate limit goes through Redis when available so replicas
	// share one budget.
	var editRateLimit gin.HandlerFunc
	if redisCache != nil {
		editRateLimit = rest.NewRedisRateLimiter(redisCache.Client(), "atelier:ratelimit:edit:", 120, time.Minute, time.Minute).Middleware()
	} else {
		editRateLimit = rest.NewRateLimiter(120, time.Minute, time.Minute).Middleware()
	}
	withPlanning := router.Group("/", sessionMiddleware.RequirePlanning())
	{
		withPlanning.GET("/planning", planningHandlers.HandlePlanningView)
		withPlanning.GET("/get_planning_data", planningHandlers.HandleGetPlanningData)
		withPlanning.GET("/api/affairs", planningHandlers.HandleGetAffairs)
		withPlanning.GET("/api/operators", planningHandlers.HandleGetOperators)
		if debug {
			withPlanning.GET("/debug_tasks", planningHandlers.HandleDebugTasks)
		}

		edits := withPlanning.Group("/", editRateLimit, auditMiddleware.RecordEdit())
		{
			edits.POST("/move_task", editHandlers.HandleMoveTask)
			edits.POST("/resize_task", editHandlers.HandleResizeTask)
			edits.POST("/resize_and_move_task", editHandlers.HandleResizeAndMoveTask)
			edits.POST("/keyboard_move_task", editHandlers.HandleKeyboardMoveTask)

			edits.POST("/api/reload-data", planningHandlers.HandleReloadData)
			edits.POST("/api/reload-tasks", planningHandlers.HandleReloadTasks)
			edits.POST("/api/reload-operators", planningHandlers.HandleReloadOperators)
			edits.POST("/api/reload-affairs", planningHandlers.HandleReloadAffairs)

			edits.POST("/api/propagate-productions", propagateHandlers.HandlePropagateProductions)
			edits.POST("/api/propagate-operations", propagateHandlers.HandlePropagateOperations)
		}
	}

	appLogger.Info("REST API routes registered")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		appLogger.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		appLogger.Info("Server shutdown initiated", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if scheduler.JobCount() > 0 {
			appLogger.Info("Stopping background jobs...")
			scheduler.Stop()
			appLogger.Info("Background jobs stopped")
		}

		if err := server.Shutdown(ctx); err != nil {
			appLogger.Error("Graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				appLogger.Error("Server close failed", "error", err)
			}
		}

		appLogger.Info("Server stopped")
	}
}

// mustLocation resolves the display timezone; config validation already
// guaranteed it parses.
func mustLocation(cfg *config.Config) *time.Location {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		log.Fatalf("invalid display timezone: %v", err)
	}
	return loc
}
