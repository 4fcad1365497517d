package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"scorewise-backend/cmd"
	"scorewise-backend/internal/api"
	"scorewise-backend/internal/config"
	"scorewise-backend/internal/core"
	"scorewise-backend/internal/database"
	"scorewise-backend/internal/grading"
	"scorewise-backend/internal/messaging"
	"scorewise-backend/internal/ocr"
	"scorewise-backend/internal/storage"
)

type Config struct {
	Root string `env:"ROOT" envDefault:"./scorewise"`
	Port int    `env:"PORT" envDefault:"3001"`
}

func createDatabase(root string) *gorm.DB {
	path := filepath.Join(root, "db", "scorewise.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

// createQueue re-enqueues tasks that were still pending when the previous
// process exited, since the in-memory queue does not survive restarts.
func createQueue(db *gorm.DB) *messaging.InMemoryQueue {
	var tasks []database.GradingTask
	if err := db.Where("status IN ?", []string{database.TaskQueued, database.TaskRunning}).Find(&tasks).Error; err != nil {
		log.Fatalf("Failed to fetch tasks from database: %v", err)
	}

	queue := messaging.NewInMemoryQueue()

	for _, task := range tasks {
		if err := queue.PublishGradingTask(context.Background(), messaging.GradingTaskPayload{
			TaskId: task.Id,
		}); err != nil {
			log.Fatalf("Failed to publish grading task: %v", err)
		}
	}

	return queue
}

func createServer(db *gorm.DB, store storage.ObjectStore, queue messaging.Publisher, port int) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // Allow all origins (TODO: make this an env var)
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300, // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	apiHandler := api.NewBackendService(db, queue, store)

	r.Route("/api/v1", func(r chi.Router) {
		apiHandler.AddRoutes(r)
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	var localCfg Config
	if err := env.Parse(&localCfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(localCfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating directory for log file: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(localCfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	slog.Info("starting backend", "root", localCfg.Root, "port", localCfg.Port)

	db := createDatabase(localCfg.Root)

	store, err := storage.NewLocalObjectStore(filepath.Join(localCfg.Root, "storage"))
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	queue := createQueue(db)

	ocrClient := ocr.NewClient(ocr.Config{
		BaseURL:         cfg.OcrBaseURL,
		APIKey:          cfg.OcrAPIKey,
		MaxPollAttempts: cfg.OcrMaxPollAttempts,
		PollDelay:       cfg.OcrPollDelay,
	})

	extractor := core.NewExtractor(ocrClient, cmd.CreateQualityAnalyzer(cfg), cmd.CreateDeciderConfig(cfg))
	engine := grading.NewEngine(grading.NewChatModel(cfg.GradingBaseURL, cfg.GradingAPIKey, cfg.GradingModel))

	worker := core.NewTaskProcessor(db, store, queue, extractor, engine, grading.DefaultLibrary())

	server := createServer(db, store, queue, localCfg.Port)

	slog.Info("starting worker")
	go worker.Start()

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		slog.Info("shutting down worker")
		worker.Stop()
	}()

	slog.Info("server started", "port", localCfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", localCfg.Port, err)
	}

	slog.Info("server stopped")
}
