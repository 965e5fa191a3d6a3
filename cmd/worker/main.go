package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"boxcars/internal/broker"
	"boxcars/internal/config"
	"boxcars/internal/store"
	"boxcars/internal/table"
	"boxcars/internal/worker"
)

func main() {
	cfg := config.Load()

	b, err := broker.New(cfg)
	if err != nil {
		log.Fatalf("broker unavailable: %v", err)
	}
	defer b.Close()

	s, err := store.New(context.Background())
	if err != nil {
		log.Fatalf("store unavailable: %v", err)
	}
	defer s.Close()

	w := worker.New(b, s, s, table.CryptoDice{}, cfg.MaxActiveTablesPerPlayer)
	w.Delay = cfg.WorkerDelay

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("worker stopped: %v", err)
	}
	log.Println("worker shut down")
}
