package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskQuestAPI/handlers"
	"taskQuestAPI/internal/cache"
	"taskQuestAPI/internal/events"
	"taskQuestAPI/middleware"
	"taskQuestAPI/services"
)

var (
	dbPool       *pgxpool.Pool
	taskCache    *cache.TaskCache
	bus          *events.Bus
	taskService  *services.TaskService
	statsService *services.StatsService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	if err := services.EnsureSchema(ctx, dbPool); err != nil {
		log.Fatal("Failed to ensure schema:", err)
	}

	log.Println("Successfully connected to Postgres")

	// Redis is optional: without REDIS_URL every list read hits Postgres.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		taskCache, err = cache.New(redisURL, 5*time.Minute)
		if err != nil {
			log.Printf("Warning: Could not initialize Redis cache: %v", err)
			taskCache = nil
		} else {
			log.Println("Redis task cache initialized")
		}
	}

	bus = events.NewBus()
	statsService = services.NewStatsService(dbPool, bus)
	taskService = services.NewTaskService(dbPool, statsService, taskCache)

	middleware.InitPrometheus()

	bus.Subscribe(events.EventBadgeUnlocked, func(e events.Event) {
		log.Printf("Badge unlocked: %s (%s)", e.Badge.Name, e.Badge.ID)
		middleware.ObserveBadgeUnlock(string(e.Badge.ID))
	})
	bus.Subscribe(events.EventStatsChanged, func(e events.Event) {
		log.Printf("Statistics updated: %d points, streak %d, %d/%d tasks completed",
			e.Aggregate.TotalPoints, e.Aggregate.CurrentStreak,
			e.Aggregate.TasksCompleted, e.Aggregate.TotalTasks)
	})
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
		if err := taskCache.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}()

	taskHandler := handlers.NewTaskHandler(taskService)
	statsHandler := handlers.NewStatsHandler(statsService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "taskQuest-api"}`))
	}).Methods("GET")

	r.HandleFunc("/tasks", taskHandler.ListTasks).Methods("GET")
	r.HandleFunc("/tasks", taskHandler.CreateTask).Methods("POST")
	r.HandleFunc("/tasks/{id}", taskHandler.GetTask).Methods("GET")
	r.HandleFunc("/tasks/{id}", taskHandler.ReplaceTask).Methods("PUT")
	r.HandleFunc("/tasks/{id}", taskHandler.PatchTask).Methods("PATCH")
	r.HandleFunc("/tasks/{id}", taskHandler.DeleteTask).Methods("DELETE")

	r.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	r.HandleFunc("/stats", statsHandler.PatchStats).Methods("PATCH")
	r.HandleFunc("/stats/badges", statsHandler.ReplaceBadges).Methods("PUT")
	r.HandleFunc("/stats/badge/{badgeId}", statsHandler.UnlockBadge).Methods("PATCH")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
