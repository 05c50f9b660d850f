package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookenrich/internal/config"
	"bookenrich/internal/platform/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (default $ENRICH_CONFIG)")
		input      = flag.String("input", "", "input JSON array, overrides pipeline.input")
		output     = flag.String("output", "", "output JSON file, overrides pipeline.output")
	)
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enrich: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Pipeline.Input = *input
	}
	if *output != "" {
		cfg.Pipeline.Output = *output
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enrich: init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := Run(ctx, cfg, log)
	if err != nil {
		log.Error("enrichment failed", "error", err)
		log.Sync()
		stop()
		os.Exit(1)
	}
	log.Sync()

	fmt.Printf("enriched %d of %d records (%d dropped, %d from cache): %d covers, %d descriptions, %d unknown genre -> %s\n",
		run.Enriched, run.Input, run.Dropped, run.CacheHits,
		run.WithCover, run.WithDescription, run.UnknownGenre, cfg.Pipeline.Output)
}
