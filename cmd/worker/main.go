package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"scorewise-backend/cmd"
	"scorewise-backend/internal/config"
	"scorewise-backend/internal/core"
	"scorewise-backend/internal/database"
	"scorewise-backend/internal/grading"
	"scorewise-backend/internal/messaging"
	"scorewise-backend/internal/ocr"
	"scorewise-backend/internal/storage"
)

func main() {
	log.Println("Starting Worker Process...")

	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := storage.NewLocalObjectStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Worker: Failed to create object store: %v", err)
	}

	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	ocrClient := ocr.NewClient(ocr.Config{
		BaseURL:         cfg.OcrBaseURL,
		APIKey:          cfg.OcrAPIKey,
		MaxPollAttempts: cfg.OcrMaxPollAttempts,
		PollDelay:       cfg.OcrPollDelay,
	})

	extractor := core.NewExtractor(ocrClient, cmd.CreateQualityAnalyzer(cfg), cmd.CreateDeciderConfig(cfg))

	engine := grading.NewEngine(grading.NewChatModel(cfg.GradingBaseURL, cfg.GradingAPIKey, cfg.GradingModel))

	worker := core.NewTaskProcessor(db, store, reciever, extractor, engine, grading.DefaultLibrary())

	go worker.Start()

	log.Println("Worker started. Waiting for tasks. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, stopping worker...")

	worker.Stop()

	log.Println("Worker process stopped.")
}
