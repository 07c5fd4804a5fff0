// Command remind runs a single reminder pass and exits. It suits cron style
// deployments and backfilling a missed day with -date.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hray3182/daymemory/internal/app"
	"github.com/hray3182/daymemory/internal/config"
	"github.com/hray3182/daymemory/internal/logging"
)

func main() {
	date := flag.String("date", "", "run as of this date (YYYY-MM-DD) instead of today")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateReminders(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	asOf := a.Dispatcher.Today()
	if *date != "" {
		asOf, err = time.Parse(time.DateOnly, *date)
		if err != nil {
			log.Fatalf("Invalid -date: %v", err)
		}
	}

	summary, err := a.Dispatcher.RunDue(ctx, asOf)
	if err != nil {
		logger.Error(ctx, "reminder run failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)
}
