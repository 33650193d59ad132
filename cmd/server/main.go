package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grammardrill/internal/ai"
	"grammardrill/internal/cache"
	"grammardrill/internal/config"
	"grammardrill/internal/database"
	"grammardrill/internal/handlers"
	"grammardrill/internal/quiz"
	"grammardrill/internal/repository"
	"grammardrill/internal/security"
	"grammardrill/internal/service"
)

// completedSessionTTL bounds how long finished quiz sessions are kept
const completedSessionTTL = 1 * time.Hour

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	drillRepo := repository.NewDrillRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Quiz sessions live in SQL by default, or in Redis with a TTL
	var sessions service.SessionStore = sessionRepo
	if cfg.SessionStore == "redis" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		sessions = cache.NewSessionStore(redisClient, cfg.SessionTTL)
		log.Printf("Using Redis session store at %s:%s (ttl %s)", cfg.Redis.Host, cfg.Redis.Port, cfg.SessionTTL)
	}

	// AI features are optional
	var generator service.DrillGenerator
	var explainer service.Explainer
	if cfg.AI.Enabled() {
		client := ai.NewDeepseekClient(cfg.AI)
		generator = client
		explainer = client
		log.Printf("AI features enabled (model: %s)", cfg.AI.Model)
	} else {
		log.Println("AI features disabled: DEEPSEEK_API_KEY not configured")
	}

	emailService, err := service.NewEmailService(cfg.Email, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	var notifier service.ResultsNotifier
	if emailService.IsEnabled() {
		notifier = emailService
	}

	tokens, err := security.NewTokenManager(cfg.QuizTokenSecret)
	if err != nil {
		log.Fatalf("Failed to initialize quiz tokens: %v", err)
	}

	// Initialize services
	scheduler := quiz.NewScheduler(quiz.NewLockedRand(0))
	drillService := service.NewDrillService(drillRepo, sessions, generator, cfg.AI.SkipValidation)
	quizService := service.NewQuizService(drillRepo, sessions, scheduler, explainer, notifier)

	// Initialize handlers
	middleware := handlers.NewMiddleware(security.NewRateLimiter(cfg.AIRateLimit, time.Minute), tokens)
	drillHandler := handlers.NewDrillHandler(drillService, cfg.UploadMaxSize)
	quizHandler := handlers.NewQuizHandler(quizService, tokens, cfg.SessionTTL)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(drillHandler, quizHandler, middleware),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // AI generation can take up to two minutes
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup; Redis expires its keys on its own
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.SessionStore != "redis" {
		go cleanupStaleSessions(ctx, sessionRepo, cfg.SessionTTL)
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// cleanupStaleSessions periodically removes quiz sessions idle for longer than
// ttl. Completed sessions only need to outlive a final progress read.
func cleanupStaleSessions(ctx context.Context, sessions *repository.SessionRepository, ttl time.Duration) {
	completedTTL := min(ttl, completedSessionTTL)

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			removed, err := sessions.DeleteStale(ctx, now.Add(-ttl), now.Add(-completedTTL))
			if err != nil {
				log.Printf("Error cleaning up stale quiz sessions: %v", err)
				continue
			}
			log.Printf("Removed %d stale quiz sessions", removed)
		}
	}
}
