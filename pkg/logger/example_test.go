package logger_test

import (
	"log/slog"
	"os"

	"github.com/kortexhq/kortex/pkg/logger"
)

func ExampleNewDefault() {
	log := logger.NewDefault(slog.LevelDebug)

	log.Debug("This is a debug message")
	log.Info("This is an info message")
	log.Info("Persisting entities to graph store") // Will be green in terminal
	log.Warn("This is a warning message")           // Will be yellow in terminal
	log.Error("This is an error message")           // Will be red in terminal
}

func ExampleNew() {
	log := logger.New(os.Stderr, slog.LevelInfo)

	log.Info("Processing request", "group_id", "g1", "action", "ingest")
	log.Info("Persisting resolved entities", "count", 42, "batch_size", 100) // Green
	log.Warn("Rate limit approaching", "current", 95, "limit", 100)         // Yellow
	log.Error("Graph store connection failed", "error", "timeout", "retry_count", 3) // Red
}
