// Package main implements the sagittarius-agent binary: it reads classified
// input-device events, aggregates them, and delivers batched snapshots to
// the API with local spooling on failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/benjaminjonard/sagittarius/internal/agent"
	"github.com/benjaminjonard/sagittarius/internal/capture"
	"github.com/benjaminjonard/sagittarius/internal/config"
	"github.com/benjaminjonard/sagittarius/internal/delivery"
	"github.com/benjaminjonard/sagittarius/internal/spool"
	"github.com/benjaminjonard/sagittarius/internal/stats"
)

var version = "dev"

func main() {
	var (
		configFile  string
		apiURL      string
		spoolPath   string
		inputPath   string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&apiURL, "api-url", "", "Ingest endpoint URL")
	flag.StringVar(&spoolPath, "spool", "", "Spool file path for undelivered snapshots")
	flag.StringVar(&inputPath, "input", "", "Device record stream to read events from")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Sagittarius agent - input telemetry capture and delivery\n\n")
		fmt.Fprintf(os.Stderr, "Usage: sagittarius-agent [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  API_URL                      Ingest endpoint URL\n")
		fmt.Fprintf(os.Stderr, "  API_SECRET                   Shared secret (required)\n")
		fmt.Fprintf(os.Stderr, "  SAGITTARIUS_FLUSH_INTERVAL   Delivery period (e.g. 10s)\n")
		fmt.Fprintf(os.Stderr, "  SAGITTARIUS_SPOOL_PATH       Spool file path\n")
		fmt.Fprintf(os.Stderr, "  SAGITTARIUS_INPUT_PATH       Device record stream\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("sagittarius-agent version %s\n", version)
		os.Exit(0)
	}

	godotenv.Load()

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	if apiURL != "" {
		cfg.Agent.APIURL = apiURL
	}
	if spoolPath != "" {
		cfg.Agent.SpoolPath = spoolPath
	}
	if inputPath != "" {
		cfg.Agent.InputPath = inputPath
	}

	if err := cfg.ValidateAgent(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Failing to open the event source is fatal: an agent that cannot
	// capture has nothing to do.
	input, err := os.Open(cfg.Agent.InputPath)
	if err != nil {
		log.Fatalf("Failed to open event source %s: %v", cfg.Agent.InputPath, err)
	}
	defer input.Close()

	log.Printf("Sagittarius agent starting: endpoint=%s interval=%s spool=%s",
		cfg.Agent.APIURL, cfg.Agent.FlushInterval, cfg.Agent.SpoolPath)

	agg := stats.NewAggregator()
	sp := spool.New(cfg.Agent.SpoolPath)
	client := delivery.New(cfg.Agent.APIURL, cfg.Agent.APISecret, cfg.Agent.RequestTimeout, agg, sp)
	source := capture.NewLineSource(input)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := agent.New(source, agg, sp, client, cfg.Agent.FlushInterval)
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Agent exited with error: %v", err)
	}
}
