package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"selectra/interview/internal/assessment"
	"selectra/interview/internal/config"
	"selectra/interview/internal/handlers"
	"selectra/interview/internal/jobs"
	"selectra/interview/internal/llm"
	_ "selectra/interview/internal/llm/gemini"
	"selectra/interview/internal/metrics"
	"selectra/interview/internal/models"
	"selectra/interview/internal/notify"
	"selectra/interview/internal/prompts"
	"selectra/interview/internal/repositories"
	"selectra/interview/internal/resolver"
	"selectra/interview/internal/routers"
	"selectra/interview/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func registerRoutes(router *chi.Mux, cfg *config.Config, interviewHandler *handlers.InterviewHandler, resultHandler *handlers.ResultHandler, healthHandler *handlers.HealthHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.InterviewRoutes(router, []byte(cfg.JWTSecret), interviewHandler, resultHandler)
}

// initDatabase initializes the PostgreSQL database connection
func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// applications are owned by the job board; only results are migrated here
	if err := db.AutoMigrate(&models.InterviewResult{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.Int("total_questions", cfg.Interview.TotalQuestions),
		zap.Int("time_budget_seconds", cfg.Interview.TimeBudgetSeconds))

	// prompt manager
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	// AI provider based on configuration
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	applications := &repositories.ApplicationRepository{DB: db}
	results := &repositories.ResultRepository{DB: db}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()
	publisher := notify.NewPublisher(rdb, logger)
	if err := publisher.Ping(context.Background()); err != nil {
		logger.Warn("Redis unreachable at startup, session end events will fail until it recovers", zap.Error(err))
	}

	evaluator := assessment.NewService(aiProvider, promptManager, assessment.Options{
		QuestionFallback: cfg.Interview.QuestionFallback,
	}, logger)

	manager := session.NewManager(session.Config{
		TotalQuestions:    cfg.Interview.TotalQuestions,
		TimeBudgetSeconds: cfg.Interview.TimeBudgetSeconds,
		TickInterval:      cfg.Interview.TickInterval,
		CallTimeout:       cfg.Interview.CallTimeout,
	}, session.ManagerDeps{
		Resolvers: func(candidateID string) session.ContextResolver {
			return resolver.New(applications, candidateID)
		},
		Evaluator: evaluator,
		Results:   results,
		Notifier:  publisher,
		Logger:    logger,
	})

	janitor := jobs.NewSessionJanitorJob(manager, &jobs.JanitorConfig{
		Schedule:  cfg.Janitor.Schedule,
		IdleTTL:   cfg.Janitor.IdleTTL,
		RetainTTL: cfg.Janitor.RetainTTL,
	}, logger)
	if err := janitor.Start(); err != nil {
		logger.Fatal("Failed to start session janitor", zap.Error(err))
	}

	interviewHandler := handlers.NewInterviewHandler(manager, results, cfg.AllowedOrigins, logger)
	resultHandler := handlers.NewResultHandler(results, publisher, logger)
	healthHandler := handlers.NewHealthHandler(aiProvider, promptManager, map[string]handlers.Pinger{
		"database": handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"redis": publisher,
	})

	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, metrics.Middleware)

	registerRoutes(router, cfg, interviewHandler, resultHandler, healthHandler)

	serverAddr := ":" + cfg.Port

	// http server with timeouts; websocket connections manage their own deadlines
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	janitor.Stop()

	// graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// live sessions are torn down after the listeners stop accepting commands
	manager.Shutdown()

	logger.Info("Interview service exited")
}
