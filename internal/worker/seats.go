package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"boxcars/internal/jobs"
	"boxcars/internal/state"
	"boxcars/internal/table"
)

// processCreate builds a fresh table and immediately seats the requesting
// player, who becomes the initial roller.
func (w *Worker) processCreate(ctx context.Context, job jobs.Job) (*jobs.Output, error) {
	payload, err := job.CreatePayload()
	if err != nil {
		return nil, jobs.TerminalError("malformed create payload: %v", err)
	}

	ps, err := w.loadPlayer(ctx, payload.Player)
	if err != nil {
		return nil, err
	}

	if w.MaxActiveTables > 0 && len(ps.Tables) >= w.MaxActiveTables {
		return jobs.Failed("too-many-tables"), nil
	}

	tbl := table.New(tableName(ps.Nickname))
	tbl.Sit(ps.ID, ps.Nickname, ps.Balance)

	ts := state.FromTable(tbl)
	if err := w.tables.InsertTable(ctx, ts); err != nil {
		log.Printf("[WORKER] unable to insert new table - %v", err)
		return nil, jobs.RetryableError()
	}
	if err := w.tables.UpsertIndexEntry(ctx, ts.IndexEntry()); err != nil {
		// index is rebuilt by reindex jobs; a miss here self-heals.
		log.Printf("[WORKER] unable to index new table - %v", err)
	}

	if err := w.players.UpdatePlayer(ctx, ps.ID, 0, append(ps.Tables, tbl.ID)); err != nil {
		log.Printf("[WORKER] unable to persist player state - %v", err)
		return nil, jobs.RetryableError()
	}

	w.enqueueReindex(ctx)
	return jobs.Created(tbl.ID), nil
}

// processSit moves a player's bank onto a seat at an existing table. The
// guarded replace keeps two concurrent sits from clobbering each other; the
// loser is dropped by the retry machinery (only bets re-enqueue) and the
// client re-submits.
func (w *Worker) processSit(ctx context.Context, job jobs.Job) (*jobs.Output, error) {
	payload, err := job.SeatPayload()
	if err != nil {
		return nil, jobs.TerminalError("malformed sit payload: %v", err)
	}

	ps, err := w.loadPlayer(ctx, payload.Player)
	if err != nil {
		return nil, err
	}

	if w.MaxActiveTables > 0 && len(ps.Tables) >= w.MaxActiveTables {
		return jobs.Failed("too-many-tables"), nil
	}

	ts, err := w.loadTable(ctx, job, payload.Table)
	if err != nil {
		return nil, err
	}

	if _, seated := ts.Seats[ps.ID]; seated {
		return jobs.Ok(jobs.SitStale), nil
	}

	tbl, err := ts.ToTable()
	if err != nil {
		return nil, jobs.TerminalError("corrupt table document %s: %v", ts.ID, err)
	}

	tbl.Sit(ps.ID, ps.Nickname, ps.Balance)

	if err := w.tables.ReplaceTable(ctx, state.FromTable(tbl), ts.Nonce); err != nil {
		log.Printf("[WORKER] unable to replace table state - %v", err)
		return nil, jobs.RetryableError()
	}

	if err := w.players.UpdatePlayer(ctx, ps.ID, 0, append(ps.Tables, tbl.ID)); err != nil {
		log.Printf("[WORKER] unable to persist player state - %v", err)
		return nil, jobs.RetryableError()
	}

	w.enqueueReindex(ctx)
	return jobs.Ok(jobs.SitOk), nil
}

// processStand refunds what the engine allows, hands it back to the
// player's bank, and deletes the table once the last seat empties.
func (w *Worker) processStand(ctx context.Context, job jobs.Job) (*jobs.Output, error) {
	payload, err := job.SeatPayload()
	if err != nil {
		return nil, jobs.TerminalError("malformed stand payload: %v", err)
	}

	ps, err := w.loadPlayer(ctx, payload.Player)
	if err != nil {
		return nil, err
	}

	ts, err := w.loadTable(ctx, job, payload.Table)
	if err != nil {
		return nil, err
	}

	tbl, err := ts.ToTable()
	if err != nil {
		return nil, jobs.TerminalError("corrupt table document %s: %v", ts.ID, err)
	}

	result := tbl.Stand(ps.ID)

	if len(tbl.Seats) == 0 {
		if err := w.tables.DeleteTable(ctx, tbl.ID); err != nil {
			log.Printf("[WORKER] unable to delete empty table - %v", err)
			return nil, jobs.RetryableError()
		}
	} else if err := w.tables.ReplaceTable(ctx, state.FromTable(tbl), ts.Nonce); err != nil {
		log.Printf("[WORKER] unable to replace table state - %v", err)
		return nil, jobs.RetryableError()
	}

	playerTables := ps.Tables
	if result.SeatRemoved {
		playerTables = withoutTable(ps.Tables, tbl.ID)
	}
	if err := w.players.UpdatePlayer(ctx, ps.ID, ps.Balance+result.Refund, playerTables); err != nil {
		log.Printf("[WORKER] unable to persist new player balance - %v", err)
		return nil, jobs.RetryableError()
	}

	w.enqueueReindex(ctx)
	return jobs.Ok(jobs.StandOk), nil
}

func withoutTable(ids []uuid.UUID, drop uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func tableName(nickname string) string {
	if nickname == "" {
		return "no-name table"
	}
	return fmt.Sprintf("%s's table", nickname)
}
