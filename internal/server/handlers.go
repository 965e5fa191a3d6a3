package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"boxcars/internal/auth"
	"boxcars/internal/jobs"
	"boxcars/internal/state"
	"boxcars/internal/store"
)

// listTablesHandler returns the lobby index.
func (s *FiberServer) listTablesHandler(c *fiber.Ctx) error {
	entries, err := s.store.ListIndex(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if entries == nil {
		entries = []state.TableIndexState{}
	}
	return c.JSON(entries)
}

// getTableHandler returns a table snapshot, nonce included, so clients can
// submit versioned bet and roll intent against it.
func (s *FiberServer) getTableHandler(c *fiber.Ctx) error {
	id, ok := tableParam(c)
	if !ok {
		return nil
	}

	ts, err := s.store.GetTable(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "table not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	return c.JSON(ts)
}

// enqueue pushes a job and replies with its id; the caller polls the jobs
// route for the outcome.
func (s *FiberServer) enqueue(c *fiber.Ctx, job jobs.Job) error {
	id, err := s.broker.Push(c.Context(), job)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "enqueue failed"})
	}
	s.hub.Broadcast(fiber.Map{"type": "job_enqueued", "kind": job.Kind, "job": id})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job": id})
}

func (s *FiberServer) createTableHandler(c *fiber.Ctx) error {
	playerID, ok := s.authenticate(c)
	if !ok {
		return nil
	}
	return s.enqueue(c, jobs.NewCreate(playerID))
}

func (s *FiberServer) sitHandler(c *fiber.Ctx) error {
	playerID, ok := s.authenticate(c)
	if !ok {
		return nil
	}
	tableID, ok := tableParam(c)
	if !ok {
		return nil
	}
	return s.enqueue(c, jobs.NewSit(tableID, playerID))
}

func (s *FiberServer) standHandler(c *fiber.Ctx) error {
	playerID, ok := s.authenticate(c)
	if !ok {
		return nil
	}
	tableID, ok := tableParam(c)
	if !ok {
		return nil
	}
	return s.enqueue(c, jobs.NewStand(tableID, playerID))
}

// betRequest is the client's wager intent plus the table nonce it observed.
type betRequest struct {
	Bet     state.BetState `json:"bet"`
	Version uuid.UUID      `json:"version"`
}

func (s *FiberServer) betHandler(c *fiber.Ctx) error {
	playerID, ok := s.authenticate(c)
	if !ok {
		return nil
	}
	tableID, ok := tableParam(c)
	if !ok {
		return nil
	}

	var req betRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Version == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "version is required"})
	}
	if _, err := req.Bet.ToBet(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bet"})
	}
	if req.Bet.Amount == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}

	return s.enqueue(c, jobs.NewBet(req.Bet, playerID, tableID, req.Version))
}

// rollRequest optionally pins the version the roller observed; when absent
// the current table nonce is claimed, serializing the roll against any
// in-flight mutation.
type rollRequest struct {
	Version uuid.UUID `json:"version"`
}

func (s *FiberServer) rollHandler(c *fiber.Ctx) error {
	playerID, ok := s.authenticate(c)
	if !ok {
		return nil
	}
	tableID, ok := tableParam(c)
	if !ok {
		return nil
	}

	var req rollRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ts, err := s.store.GetTable(c.Context(), tableID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "table not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}

	// only the nominated shooter may throw.
	if ts.Roller == nil || *ts.Roller != playerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not the roller"})
	}

	version := req.Version
	if version == uuid.Nil {
		version = ts.Nonce
	}

	return s.enqueue(c, jobs.NewRoll(tableID, version))
}

// jobLookupHandler polls a job result. An absent entry is the standard
// "not yet ready" signal: a 200 with a null output, never a 404.
func (s *FiberServer) jobLookupHandler(c *fiber.Ctx) error {
	if _, ok := s.authenticate(c); !ok {
		return nil
	}

	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id is required"})
	}

	result, found, err := s.broker.LookupResult(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if !found {
		return c.JSON(fiber.Map{"id": id, "completed": nil, "output": nil})
	}
	return c.JSON(result)
}

// adminReindexHandler lets an administrator force a lobby-index rebuild.
func (s *FiberServer) adminReindexHandler(c *fiber.Ctx) error {
	playerID, ok := s.authenticate(c)
	if !ok {
		return nil
	}

	ps, err := s.store.GetPlayer(c.Context(), playerID)
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	if s.sessions.Classify(ps.Emails) != auth.Admin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}

	return s.enqueue(c, jobs.Reindex())
}
