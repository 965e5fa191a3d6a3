package worker

import (
	"context"
	"log"

	"github.com/google/uuid"

	"boxcars/internal/jobs"
	"boxcars/internal/state"
)

// processAdmin routes the administrative sub-variants.
func (w *Worker) processAdmin(ctx context.Context, job jobs.Job) (*jobs.Output, error) {
	payload, err := job.AdminPayload()
	if err != nil {
		return nil, jobs.TerminalError("malformed admin payload: %v", err)
	}

	switch payload.Kind {
	case jobs.AdminReindex:
		return w.reindex(ctx)
	case jobs.AdminCleanup:
		return w.cleanup(ctx, payload.Player)
	default:
		return nil, jobs.TerminalError("unknown admin job kind %q", payload.Kind)
	}
}

// reindex rebuilds the lobby index from the live tables collection. Index
// rows mirror each table's id, name and seat population; the table nonce is
// untouched since nothing about the table itself changes.
func (w *Worker) reindex(ctx context.Context) (*jobs.Output, error) {
	log.Println("[ADMIN] attempting to reindex table populations")
	if err := w.tables.Reindex(ctx); err != nil {
		log.Printf("[ADMIN] unable to perform reindex - %v", err)
		return nil, jobs.RetryableError()
	}
	return jobs.Ok(jobs.AdminOk), nil
}

// cleanup purges a player's seats from every table they appear at. This is
// an administrative removal, not a stand: no chips are credited anywhere.
func (w *Worker) cleanup(ctx context.Context, player string) (*jobs.Output, error) {
	playerID, err := uuid.Parse(player)
	if err != nil {
		return nil, jobs.TerminalError("malformed player id %q: %v", player, err)
	}

	log.Printf("[ADMIN] cleaning up player data for '%s'", playerID)

	var affected []state.TableState
	err = w.tables.ListTables(ctx, func(ts state.TableState) error {
		if _, ok := ts.Seats[playerID]; ok {
			affected = append(affected, ts)
		}
		return nil
	})
	if err != nil {
		log.Printf("[ADMIN] unable to scan tables - %v", err)
		return nil, jobs.RetryableError()
	}

	for _, ts := range affected {
		tbl, err := ts.ToTable()
		if err != nil {
			return nil, jobs.TerminalError("corrupt table document %s: %v", ts.ID, err)
		}

		delete(tbl.Seats, playerID)
		if tbl.Roller != nil && *tbl.Roller == playerID {
			tbl.Roller = nil
		}
		tbl.Stamp()

		if len(tbl.Seats) == 0 {
			if err := w.tables.DeleteTable(ctx, tbl.ID); err != nil {
				log.Printf("[ADMIN] unable to delete emptied table - %v", err)
				return nil, jobs.RetryableError()
			}
			continue
		}

		if tbl.Roller == nil {
			tbl.NominateRoller()
		}
		if err := w.tables.ReplaceTable(ctx, state.FromTable(tbl), ts.Nonce); err != nil {
			log.Printf("[ADMIN] unable to replace table state - %v", err)
			return nil, jobs.RetryableError()
		}
	}

	w.enqueueReindex(ctx)
	return jobs.Ok(jobs.AdminOk), nil
}
