// Package main implements the sagittarius-server binary: the API that
// receives agent deliveries and serves the running aggregate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/benjaminjonard/sagittarius/internal/app"
	"github.com/benjaminjonard/sagittarius/internal/config"
)

var version = "dev"

func main() {
	var (
		configFile  string
		addr        string
		storeDriver string
		storePath   string
		storeDSN    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&addr, "addr", "", "HTTP listen address")
	flag.StringVar(&storeDriver, "store-driver", "", "Store backend: sqlite or postgres")
	flag.StringVar(&storePath, "store-path", "", "SQLite database path")
	flag.StringVar(&storeDSN, "store-dsn", "", "Postgres connection string")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Sagittarius server - input telemetry aggregation API\n\n")
		fmt.Fprintf(os.Stderr, "Usage: sagittarius-server [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  API_SECRET                 Shared secret for /api/stats (required)\n")
		fmt.Fprintf(os.Stderr, "  SAGITTARIUS_SERVER_ADDR    HTTP listen address\n")
		fmt.Fprintf(os.Stderr, "  SAGITTARIUS_STORE_DRIVER   sqlite or postgres\n")
		fmt.Fprintf(os.Stderr, "  SAGITTARIUS_STORE_PATH     SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  SAGITTARIUS_STORE_DSN      Postgres connection string\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("sagittarius-server version %s\n", version)
		os.Exit(0)
	}

	// A local .env is optional; real deployments use the environment.
	godotenv.Load()

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if storeDSN != "" {
		cfg.Store.DSN = storeDSN
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

func loadConfig(configFile string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}
