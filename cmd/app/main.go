package main

import (
	"flag"
	"log"
	"os"

	"FinPanel/internal/di"
	"FinPanel/pkg/config"
	"FinPanel/pkg/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	modeFlag := flag.String("mode", string(server.ModeAll), "run mode: all, ingest or build")
	flag.Parse()

	mode, err := server.ParseMode(*modeFlag)
	if err != nil {
		log.Fatalf("invalid mode: %v", err)
	}

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s mode=%s symbols=%d benchmarks=%v", cfg.Environment, mode, len(cfg.Pipeline.Symbols), cfg.Pipeline.Benchmarks)

	// Wire DI: Initialize all dependencies
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run the batch (returns on completion or interrupt)
	err = app.Run(mode)
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
