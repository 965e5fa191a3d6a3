// Package auth is the thin session collaborator: bearer token to player id
// through the broker's sessions hash, plus the admin-email gate. Minting
// tokens is someone else's job.
package auth

import (
	"context"

	"github.com/google/uuid"

	"boxcars/internal/broker"
)

// Authority is what a resolved session grants.
type Authority int

const (
	// Player is an ordinary authenticated session.
	Player Authority = iota
	// Admin additionally unlocks administrative routes.
	Admin
)

// Sessions resolves bearer tokens against the broker and classifies the
// resulting player.
type Sessions struct {
	broker      broker.Service
	adminEmails map[string]bool
}

// New builds a session resolver over the broker, granting Admin to the
// listed emails.
func New(b broker.Service, adminEmails []string) *Sessions {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[email] = true
	}
	return &Sessions{broker: b, adminEmails: admins}
}

// Lookup resolves a bearer token to a player id. ok is false for unknown or
// malformed sessions; absence is the unauthenticated signal, never an error.
func (s *Sessions) Lookup(ctx context.Context, token string) (uuid.UUID, bool) {
	if token == "" {
		return uuid.Nil, false
	}
	value, found, err := s.broker.Session(ctx, token)
	if err != nil || !found {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Classify returns the authority a player's emails grant.
func (s *Sessions) Classify(emails []string) Authority {
	for _, email := range emails {
		if s.adminEmails[email] {
			return Admin
		}
	}
	return Player
}
