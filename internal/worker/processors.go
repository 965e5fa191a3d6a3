package worker

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"boxcars/internal/engine"
	"boxcars/internal/jobs"
	"boxcars/internal/state"
	"boxcars/internal/store"
)

// processBet applies a wager under the optimistic-concurrency guard: stale
// versions and rule violations are successful outcomes, only store trouble
// is a system error.
func (w *Worker) processBet(ctx context.Context, job jobs.Job) (*jobs.Output, error) {
	payload, err := job.BetPayload()
	if err != nil {
		return nil, jobs.TerminalError("malformed bet payload: %v", err)
	}

	ts, err := w.loadTable(ctx, job, payload.Table)
	if err != nil {
		return nil, err
	}

	if ts.Nonce != payload.Version {
		log.Printf("[WORKER] skipping stale bet - %s vs %s", payload.Version, ts.Nonce)
		return jobs.Ok(jobs.BetStale), nil
	}

	if _, err := w.loadPlayer(ctx, payload.Player); err != nil {
		return nil, err
	}

	tbl, err := ts.ToTable()
	if err != nil {
		return nil, jobs.TerminalError("corrupt table document %s: %v", ts.ID, err)
	}

	bet, err := payload.Bet.ToBet()
	if err != nil {
		return nil, jobs.TerminalError("malformed bet: %v", err)
	}

	if err := tbl.Bet(payload.Player, bet); err != nil {
		var violation engine.Violation
		if errors.As(err, &violation) {
			return jobs.Failed(violation.Reason.String()), nil
		}
		return nil, jobs.TerminalError("unexpected bet failure: %v", err)
	}

	if err := w.tables.ReplaceTable(ctx, state.FromTable(tbl), payload.Version); err != nil {
		log.Printf("[WORKER] unable to replace table state - %v", err)
		return nil, jobs.RetryableError()
	}

	return jobs.Ok(jobs.BetProcessed), nil
}

// processRoll advances the table by one throw under the same guard as
// processBet. Per-seat outcomes land in each seat's history inside
// table.Roll, in bet order.
func (w *Worker) processRoll(ctx context.Context, job jobs.Job) (*jobs.Output, error) {
	payload, err := job.RollPayload()
	if err != nil {
		return nil, jobs.TerminalError("malformed roll payload: %v", err)
	}

	ts, err := w.loadTable(ctx, job, payload.Table)
	if err != nil {
		return nil, err
	}

	if ts.Nonce != payload.Version {
		log.Printf("[WORKER] skipping stale roll - %s vs %s", payload.Version, ts.Nonce)
		return jobs.Ok(jobs.RollStale), nil
	}

	tbl, err := ts.ToTable()
	if err != nil {
		return nil, jobs.TerminalError("corrupt table document %s: %v", ts.ID, err)
	}

	result := tbl.Roll(w.dice)
	log.Printf("[WORKER] table '%s' rolled %d-%d", tbl.ID, result.Roll.Left, result.Roll.Right)

	if err := w.tables.ReplaceTable(ctx, state.FromTable(tbl), payload.Version); err != nil {
		log.Printf("[WORKER] unable to replace table state - %v", err)
		return nil, jobs.RetryableError()
	}

	return jobs.Ok(jobs.RollProcessed), nil
}

// loadTable fetches a table, mapping store unavailability to Retryable and
// a missing document to Terminal.
func (w *Worker) loadTable(ctx context.Context, job jobs.Job, id uuid.UUID) (state.TableState, error) {
	ts, err := w.tables.GetTable(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return state.TableState{}, jobs.TerminalError("table-not-found")
	}
	if err != nil {
		log.Printf("[WORKER] unable to query for table - %v", err)
		return state.TableState{}, jobs.RetryableError()
	}
	return ts, nil
}

// loadPlayer fetches a player under the same Retryable/Terminal split.
func (w *Worker) loadPlayer(ctx context.Context, id uuid.UUID) (state.PlayerState, error) {
	ps, err := w.players.GetPlayer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return state.PlayerState{}, jobs.TerminalError("player-not-found")
	}
	if err != nil {
		log.Printf("[WORKER] unable to query for player - %v", err)
		return state.PlayerState{}, jobs.RetryableError()
	}
	return ps, nil
}
