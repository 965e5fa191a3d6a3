package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/google/uuid"

	"boxcars/internal/state"
)

// GetTable loads a table document by id.
func (s *Service) GetTable(ctx context.Context, id uuid.UUID) (state.TableState, error) {
	var raw []byte
	row := s.pool.QueryRow(ctx, `SELECT document FROM tables WHERE id = $1`, id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return state.TableState{}, ErrNotFound
		}
		return state.TableState{}, fmt.Errorf("querying table %s: %w", id, err)
	}

	var ts state.TableState
	if err := json.Unmarshal(raw, &ts); err != nil {
		return state.TableState{}, fmt.Errorf("decoding table %s: %w", id, err)
	}
	return ts, nil
}

// InsertTable persists a brand new table document.
func (s *Service) InsertTable(ctx context.Context, ts state.TableState) error {
	raw, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("encoding table %s: %w", ts.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tables (id, nonce, document) VALUES ($1, $2, $3)`,
		ts.ID, ts.Nonce, raw)
	if err != nil {
		return fmt.Errorf("inserting table %s: %w", ts.ID, err)
	}
	return nil
}

// ReplaceTable swaps the stored document for ts, but only while the stored
// nonce still equals expected. ErrConflict means another writer committed
// first and the caller should treat the attempt as transient.
func (s *Service) ReplaceTable(ctx context.Context, ts state.TableState, expected uuid.UUID) error {
	raw, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("encoding table %s: %w", ts.ID, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tables SET nonce = $2, document = $3 WHERE id = $1 AND nonce = $4`,
		ts.ID, ts.Nonce, raw, expected)
	if err != nil {
		return fmt.Errorf("replacing table %s: %w", ts.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// DeleteTable removes a table document and its lobby index entry. A stand
// that empties the last seat goes through here.
func (s *Service) DeleteTable(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting table %s: %w", id, err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM table_index WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting index entry %s: %w", id, err)
	}
	return nil
}

// ListTables scans every table document, invoking visit per row. The reindex
// and cleanup processors walk the whole collection through this.
func (s *Service) ListTables(ctx context.Context, visit func(state.TableState) error) error {
	rows, err := s.pool.Query(ctx, `SELECT document FROM tables`)
	if err != nil {
		return fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scanning table row: %w", err)
		}
		var ts state.TableState
		if err := json.Unmarshal(raw, &ts); err != nil {
			return fmt.Errorf("decoding table row: %w", err)
		}
		if err := visit(ts); err != nil {
			return err
		}
	}
	return rows.Err()
}

// UpsertIndexEntry writes one lobby index row derived from a table document.
func (s *Service) UpsertIndexEntry(ctx context.Context, entry state.TableIndexState) error {
	population, err := json.Marshal(entry.Population)
	if err != nil {
		return fmt.Errorf("encoding population for %s: %w", entry.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO table_index (id, name, population) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, population = EXCLUDED.population`,
		entry.ID, entry.Name, population)
	if err != nil {
		return fmt.Errorf("upserting index entry %s: %w", entry.ID, err)
	}
	return nil
}

// ListIndex returns every lobby index row.
func (s *Service) ListIndex(ctx context.Context) ([]state.TableIndexState, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, population FROM table_index ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing table index: %w", err)
	}
	defer rows.Close()

	var entries []state.TableIndexState
	for rows.Next() {
		var entry state.TableIndexState
		var population []byte
		if err := rows.Scan(&entry.ID, &entry.Name, &population); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		if err := json.Unmarshal(population, &entry.Population); err != nil {
			return nil, fmt.Errorf("decoding population: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Reindex rebuilds the lobby index from the live tables collection and
// prunes rows whose table no longer exists.
func (s *Service) Reindex(ctx context.Context) error {
	seen := make(map[uuid.UUID]bool)

	err := s.ListTables(ctx, func(ts state.TableState) error {
		seen[ts.ID] = true
		return s.UpsertIndexEntry(ctx, ts.IndexEntry())
	})
	if err != nil {
		return err
	}

	entries, err := s.ListIndex(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if seen[entry.ID] {
			continue
		}
		if _, err := s.pool.Exec(ctx, `DELETE FROM table_index WHERE id = $1`, entry.ID); err != nil {
			return fmt.Errorf("pruning stale index entry %s: %w", entry.ID, err)
		}
	}
	return nil
}
