package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"boxcars/internal/broker"
	"boxcars/internal/config"
	"boxcars/internal/server"
	"boxcars/internal/store"
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

	app := server.New(cfg, b, s)
	app.RegisterFiberRoutes()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-done
	log.Println("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
