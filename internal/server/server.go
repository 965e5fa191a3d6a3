// Package server is the HTTP front end: it validates requests, enqueues
// intent as jobs, and hands back job ids for clients to poll. All table
// mutation happens in the worker.
package server

import (
	"github.com/gofiber/fiber/v2"

	"boxcars/internal/auth"
	"boxcars/internal/broker"
	"boxcars/internal/config"
	"boxcars/internal/store"
)

type FiberServer struct {
	*fiber.App

	cfg      config.Config
	broker   broker.Service
	store    *store.Service
	sessions *auth.Sessions
	hub      *Hub
}

func New(cfg config.Config, b broker.Service, s *store.Service) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader: "boxcars",
			AppName:      "boxcars",
		}),

		cfg:      cfg,
		broker:   b,
		store:    s,
		sessions: auth.New(b, cfg.AdminEmails),
		hub:      NewHub(),
	}

	go server.hub.Run()

	return server
}
