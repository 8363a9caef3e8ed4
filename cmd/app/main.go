package main

import (
	"flag"
	"log"
	"os"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/di"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s symbols=%v snapshots=%s test_mode=%t",
		cfg.Environment, cfg.Scheduler.Symbols, cfg.Storage.Snapshots, cfg.Scheduler.TestMode)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	err = app.Run()
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
