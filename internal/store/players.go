package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"boxcars/internal/state"
)

// GetPlayer loads a player document by internal id.
func (s *Service) GetPlayer(ctx context.Context, id uuid.UUID) (state.PlayerState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, oid, nickname, emails, balance, tables FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

// GetPlayerByOID loads a player document by external identity.
func (s *Service) GetPlayerByOID(ctx context.Context, oid string) (state.PlayerState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, oid, nickname, emails, balance, tables FROM players WHERE oid = $1`, oid)
	return scanPlayer(row)
}

func scanPlayer(row pgx.Row) (state.PlayerState, error) {
	var ps state.PlayerState
	var emails, tables []byte
	if err := row.Scan(&ps.ID, &ps.OID, &ps.Nickname, &emails, &ps.Balance, &tables); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return state.PlayerState{}, ErrNotFound
		}
		return state.PlayerState{}, fmt.Errorf("querying player: %w", err)
	}
	if err := json.Unmarshal(emails, &ps.Emails); err != nil {
		return state.PlayerState{}, fmt.Errorf("decoding player emails: %w", err)
	}
	if err := json.Unmarshal(tables, &ps.Tables); err != nil {
		return state.PlayerState{}, fmt.Errorf("decoding player tables: %w", err)
	}
	return ps, nil
}

// InsertPlayer persists a new player document.
func (s *Service) InsertPlayer(ctx context.Context, ps state.PlayerState) error {
	emails, err := json.Marshal(ps.Emails)
	if err != nil {
		return fmt.Errorf("encoding player emails: %w", err)
	}
	tables, err := json.Marshal(ps.Tables)
	if err != nil {
		return fmt.Errorf("encoding player tables: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO players (id, oid, nickname, emails, balance, tables) VALUES ($1, $2, $3, $4, $5, $6)`,
		ps.ID, ps.OID, ps.Nickname, emails, ps.Balance, tables)
	if err != nil {
		return fmt.Errorf("inserting player %s: %w", ps.ID, err)
	}
	return nil
}

// UpdatePlayer writes the mutable, field-scoped parts of a player document:
// balance and the list of tables the player is seated at. Identity fields
// never change through this path.
func (s *Service) UpdatePlayer(ctx context.Context, id uuid.UUID, balance uint32, tableIDs []uuid.UUID) error {
	tables, err := json.Marshal(tableIDs)
	if err != nil {
		return fmt.Errorf("encoding player tables: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE players SET balance = $2, tables = $3 WHERE id = $1`,
		id, balance, tables)
	if err != nil {
		return fmt.Errorf("updating player %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
