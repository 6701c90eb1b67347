package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	approuters "photochat/internal/app_routers"
	"photochat/internal/configuration"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON or YAML config file (optional)")
	flag.Parse()

	container, err := configuration.BuildContainer(*configPath)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer func() {
		if err := container.Close(); err != nil {
			container.Logger.Error("cleanup failed", zap.Error(err))
		}
	}()

	approuters.StartServer(container)
}
