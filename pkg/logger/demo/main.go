package main

import (
	"log/slog"

	"github.com/kortexhq/kortex/pkg/logger"
)

func main() {
	log := logger.NewDefault(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    Kortex Colored Logger Demo")
	log.Info("============================================")
	log.Info("")

	log.Debug("Debug message - standard color")
	log.Info("Info message - standard color")
	log.Info("Persisting entities to graph store - green!")
	log.Info("Entities persisted successfully - also green!")
	log.Warn("Warning message - yellow!")
	log.Error("Error message - red!")

	log.Info("")
	log.Info("Graph store operations are highlighted in green:")
	log.Info("Persisting resolved entities", "count", 42, "batch_size", 100)
	log.Info("Entities persisted", "duration", "2.5s")
	log.Info("Persisting resolved edges", "count", 156)
	log.Info("Edges persisted", "duration", "1.8s")

	log.Info("")
	log.Warn("Warnings appear in yellow for attention")
	log.Error("Errors appear in red for immediate visibility")

	log.Info("")
	log.Info("Demo complete!")
}
