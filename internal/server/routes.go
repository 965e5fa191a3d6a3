package server

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

func (s *FiberServer) RegisterFiberRoutes() {
	// Apply CORS middleware
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	// Basic routes
	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	api.Get("/tables", s.listTablesHandler)
	api.Get("/tables/:id", s.getTableHandler)
	api.Post("/tables", s.createTableHandler)
	api.Post("/tables/:id/sit", s.sitHandler)
	api.Post("/tables/:id/stand", s.standHandler)
	api.Post("/tables/:id/bets", s.betHandler)
	api.Post("/tables/:id/rolls", s.rollHandler)
	api.Get("/jobs", s.jobLookupHandler)
	api.Post("/admin/reindex", s.adminReindexHandler)

	// WebSocket route for table viewers
	s.App.Get("/ws/:id", websocket.New(s.tableWebSocketHandler))
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"store":  s.store.Health(),
		"broker": s.broker.Health(),
		"ws": fiber.Map{
			"connected_clients": s.hub.GetClientCount(),
		},
	}
	return c.JSON(health)
}

// bearer pulls the token out of the Authorization header.
func bearer(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return ""
}

// authenticate resolves the request's bearer token to a player id, or
// replies 401.
func (s *FiberServer) authenticate(c *fiber.Ctx) (uuid.UUID, bool) {
	playerID, ok := s.sessions.Lookup(c.Context(), bearer(c))
	if !ok {
		c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
		return uuid.Nil, false
	}
	return playerID, true
}

func tableParam(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid table id"})
		return uuid.Nil, false
	}
	return id, true
}

// tableWebSocketHandler streams table events to a connected viewer. The
// viewer gets an initial snapshot, refreshes on demand, and shares the
// broadcast feed of enqueued intent.
func (s *FiberServer) tableWebSocketHandler(conn *websocket.Conn) {
	tableID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		conn.Close()
		return
	}

	playerID := conn.Query("player_id", "anonymous")
	log.Printf("[WS] New connection from player: %s", playerID)

	client := s.hub.RegisterClient(conn, playerID)
	s.sendSnapshot(client, tableID)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for player %s: %v", playerID, err)
			s.hub.UnregisterClient(conn)
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		switch strings.TrimSpace(string(message)) {
		case "refresh":
			s.sendSnapshot(client, tableID)
		case "ping":
			client.send(map[string]string{"type": "pong"})
		}
	}
}

func (s *FiberServer) sendSnapshot(client *Client, tableID uuid.UUID) {
	ts, err := s.store.GetTable(context.Background(), tableID)
	if err != nil {
		client.send(map[string]string{"type": "error", "error": "table-not-found"})
		return
	}
	client.send(map[string]interface{}{"type": "table_state", "data": ts})
}
