// Package worker drains the job queue: it pops one job at a time, routes it
// to the matching processor, classifies failures as retryable or terminal,
// and publishes results for clients to poll.
package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"boxcars/internal/jobs"
	"boxcars/internal/state"
	"boxcars/internal/table"
)

// Queue is the broker surface the worker depends on.
type Queue interface {
	Pop(ctx context.Context) (*jobs.Job, error)
	Push(ctx context.Context, job jobs.Job) (string, error)
	PublishResult(ctx context.Context, result jobs.Result) error
}

// TableStore is the table-document surface the processors depend on.
type TableStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (state.TableState, error)
	InsertTable(ctx context.Context, ts state.TableState) error
	ReplaceTable(ctx context.Context, ts state.TableState, expected uuid.UUID) error
	DeleteTable(ctx context.Context, id uuid.UUID) error
	ListTables(ctx context.Context, visit func(state.TableState) error) error
	UpsertIndexEntry(ctx context.Context, entry state.TableIndexState) error
	Reindex(ctx context.Context) error
}

// PlayerStore is the player-document surface the processors depend on.
type PlayerStore interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (state.PlayerState, error)
	UpdatePlayer(ctx context.Context, id uuid.UUID, balance uint32, tableIDs []uuid.UUID) error
}

// Worker is one single-threaded dispatch loop. Parallelism comes from
// running several workers against the same queue; correctness across them
// comes from the nonce-guarded replace, not from anything in here.
type Worker struct {
	queue   Queue
	tables  TableStore
	players PlayerStore
	dice    table.DiceSource

	// Delay optionally throttles the loop between iterations.
	Delay time.Duration
	// MaxActiveTables gates create and sit processing per player.
	MaxActiveTables int
}

// New assembles a worker over its collaborators.
func New(queue Queue, tables TableStore, players PlayerStore, dice table.DiceSource, maxActiveTables int) *Worker {
	return &Worker{
		queue:           queue,
		tables:          tables,
		players:         players,
		dice:            dice,
		MaxActiveTables: maxActiveTables,
	}
}

// Run loops until ctx is cancelled. Individual job failures are logged and
// never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[WORKER] entering processing loop (delay %s)", w.Delay)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.Work(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[WORKER] unable to process - %v", err)
		}

		if w.Delay > 0 {
			select {
			case <-time.After(w.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Work performs one iteration: pop, dispatch, handle. An empty pop is a
// normal no-op.
func (w *Worker) Work(ctx context.Context) error {
	job, err := w.queue.Pop(ctx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	output, err := w.dispatch(ctx, *job)
	return w.handle(ctx, *job, output, err)
}

func (w *Worker) dispatch(ctx context.Context, job jobs.Job) (*jobs.Output, error) {
	switch job.Kind {
	case jobs.KindBet:
		return w.processBet(ctx, job)
	case jobs.KindRoll:
		return w.processRoll(ctx, job)
	case jobs.KindSit:
		return w.processSit(ctx, job)
	case jobs.KindStand:
		return w.processStand(ctx, job)
	case jobs.KindCreate:
		return w.processCreate(ctx, job)
	case jobs.KindAdmin:
		return w.processAdmin(ctx, job)
	default:
		return nil, jobs.TerminalError("unknown job kind %q", job.Kind)
	}
}

// handle publishes a successful output, re-enqueues a retryable failure
// when the variant allows it, and logs-and-drops everything else.
func (w *Worker) handle(ctx context.Context, job jobs.Job, output *jobs.Output, err error) error {
	if err == nil {
		result := jobs.Wrap(job.ID, output)
		if err := w.queue.PublishResult(ctx, result); err != nil {
			return err
		}
		log.Printf("[WORKER] job '%s' processed - %s", job.ID, output.Kind)
		return nil
	}

	var jobErr jobs.JobError
	if !errors.As(err, &jobErr) {
		log.Printf("[WORKER] job '%s' failed with unclassified error - %v", job.ID, err)
		return nil
	}

	if jobErr.Kind == jobs.Retryable {
		retried, ok := job.Retry()
		if !ok {
			log.Printf("[WORKER] job '%s' (%s) is not retryable, dropping", job.ID, job.Kind)
			return nil
		}
		if _, err := w.queue.Push(ctx, retried); err != nil {
			return err
		}
		log.Printf("[WORKER] job '%s' scheduled for retry (attempt %d)", retried.ID, retried.Attempts)
		return nil
	}

	log.Printf("[WORKER] job '%s' terminal - %s", job.ID, jobErr.Message)
	return nil
}

// enqueueReindex schedules a lobby-index rebuild after a mutation that
// changed seat composition. The index is eventually consistent: a failed
// enqueue is logged and never fails the originating job.
func (w *Worker) enqueueReindex(ctx context.Context) {
	if _, err := w.queue.Push(ctx, jobs.Reindex()); err != nil {
		log.Printf("[WORKER] unable to queue reindex job - %v", err)
	}
}
