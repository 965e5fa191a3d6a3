// Package jobs defines the queue protocol: the tagged job envelope pushed
// through the broker, the result payloads written back for clients to poll,
// and the retryable/terminal error split the worker dispatches on.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"boxcars/internal/state"
)

// Kind discriminates the job envelope's payload.
type Kind string

const (
	KindCreate Kind = "create"
	KindSit    Kind = "sit"
	KindStand  Kind = "stand"
	KindBet    Kind = "bet"
	KindRoll   Kind = "roll"
	KindAdmin  Kind = "admin"
)

// Job is the envelope every queue entry shares: an id, an attempt counter
// and a kind-tagged payload. The payload stays raw until a processor asks
// for its typed form, so unknown kinds fail at dispatch rather than decode.
type Job struct {
	ID       uuid.UUID       `json:"id"`
	Attempts uint8           `json:"attempts"`
	Kind     Kind            `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
}

// CreatePayload asks the worker to build a new table seated by Player.
type CreatePayload struct {
	Player uuid.UUID `json:"player"`
}

// SeatPayload is shared by the sit and stand variants.
type SeatPayload struct {
	Table  uuid.UUID `json:"table"`
	Player uuid.UUID `json:"player"`
}

// BetPayload carries a wager plus the table nonce the client observed.
type BetPayload struct {
	Bet     state.BetState `json:"bet"`
	Player  uuid.UUID      `json:"player"`
	Table   uuid.UUID      `json:"table"`
	Version uuid.UUID      `json:"version"`
}

// RollPayload advances a table, guarded by the observed nonce.
type RollPayload struct {
	Table   uuid.UUID `json:"table"`
	Version uuid.UUID `json:"version"`
}

// AdminKind discriminates the administrative sub-variants.
type AdminKind string

const (
	AdminReindex AdminKind = "reindex_populations"
	AdminCleanup AdminKind = "cleanup_player_data"
)

// AdminPayload is a maintenance instruction; Player is set for cleanup only.
type AdminPayload struct {
	Kind   AdminKind `json:"kind"`
	Player string    `json:"player,omitempty"`
}

func wrap(kind Kind, payload any) Job {
	raw, err := json.Marshal(payload)
	if err != nil {
		// every payload type above is a plain struct of marshalable fields;
		// a failure here is a programming error, not runtime input.
		panic(err)
	}
	return Job{ID: uuid.New(), Kind: kind, Payload: raw}
}

// NewCreate builds a create-table job for player.
func NewCreate(player uuid.UUID) Job {
	return wrap(KindCreate, CreatePayload{Player: player})
}

// NewSit builds a sit job.
func NewSit(tableID, player uuid.UUID) Job {
	return wrap(KindSit, SeatPayload{Table: tableID, Player: player})
}

// NewStand builds a stand job.
func NewStand(tableID, player uuid.UUID) Job {
	return wrap(KindStand, SeatPayload{Table: tableID, Player: player})
}

// NewBet builds a bet job carrying the nonce the client observed.
func NewBet(bet state.BetState, player, tableID, version uuid.UUID) Job {
	return wrap(KindBet, BetPayload{Bet: bet, Player: player, Table: tableID, Version: version})
}

// NewRoll builds a roll job carrying the nonce the client observed.
func NewRoll(tableID, version uuid.UUID) Job {
	return wrap(KindRoll, RollPayload{Table: tableID, Version: version})
}

// Reindex builds the lobby-index rebuild job.
func Reindex() Job {
	return wrap(KindAdmin, AdminPayload{Kind: AdminReindex})
}

// Cleanup builds the administrative player-purge job.
func Cleanup(player string) Job {
	return wrap(KindAdmin, AdminPayload{Kind: AdminCleanup, Player: player})
}

// CreatePayload decodes the payload of a create job.
func (j Job) CreatePayload() (CreatePayload, error) {
	var p CreatePayload
	return p, j.decode(KindCreate, &p)
}

// SeatPayload decodes the payload of a sit or stand job.
func (j Job) SeatPayload() (SeatPayload, error) {
	var p SeatPayload
	if j.Kind != KindSit && j.Kind != KindStand {
		return p, fmt.Errorf("job kind %q carries no seat payload", j.Kind)
	}
	return p, json.Unmarshal(j.Payload, &p)
}

// BetPayload decodes the payload of a bet job.
func (j Job) BetPayload() (BetPayload, error) {
	var p BetPayload
	return p, j.decode(KindBet, &p)
}

// RollPayload decodes the payload of a roll job.
func (j Job) RollPayload() (RollPayload, error) {
	var p RollPayload
	return p, j.decode(KindRoll, &p)
}

// AdminPayload decodes the payload of an admin job.
func (j Job) AdminPayload() (AdminPayload, error) {
	var p AdminPayload
	return p, j.decode(KindAdmin, &p)
}

func (j Job) decode(kind Kind, into any) error {
	if j.Kind != kind {
		return fmt.Errorf("job kind %q is not %q", j.Kind, kind)
	}
	return json.Unmarshal(j.Payload, into)
}

// Retry returns a copy with an incremented attempt counter, or false when
// the variant is terminal on failure. Only bets are safe to replay: the
// carried version turns a replay after the table moved into a stale outcome
// rather than a double apply.
func (j Job) Retry() (Job, bool) {
	if j.Kind != KindBet {
		return Job{}, false
	}
	next := j
	next.Attempts++
	return next, true
}

// Encode serializes the envelope for the queue. The representation
// round-trips through Decode byte-for-byte in field content.
func (j Job) Encode() (string, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("encoding job %s: %w", j.ID, err)
	}
	return string(raw), nil
}

// Decode parses a queue entry back into an envelope.
func Decode(raw string) (Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return Job{}, fmt.Errorf("decoding job: %w", err)
	}
	return j, nil
}

// OutputKind tags a job's client-visible outcome.
type OutputKind string

const (
	BetProcessed  OutputKind = "bet_processed"
	BetStale      OutputKind = "bet_stale"
	BetFailed     OutputKind = "bet_failed"
	RollProcessed OutputKind = "roll_processed"
	RollStale     OutputKind = "roll_stale"
	SitOk         OutputKind = "sit_ok"
	SitStale      OutputKind = "sit_stale"
	StandOk       OutputKind = "stand_ok"
	TableCreated  OutputKind = "table_created"
	AdminOk       OutputKind = "admin_ok"
)

// Output is the client-visible outcome of a processed job. Reason is set for
// bet_failed; Table for table_created.
type Output struct {
	Kind   OutputKind `json:"kind"`
	Reason string     `json:"reason,omitempty"`
	Table  *uuid.UUID `json:"table,omitempty"`
}

// Ok wraps a bare outcome kind.
func Ok(kind OutputKind) *Output { return &Output{Kind: kind} }

// Failed wraps a rejected bet's rule-violation reason.
func Failed(reason string) *Output { return &Output{Kind: BetFailed, Reason: reason} }

// Created wraps a successful table creation.
func Created(tableID uuid.UUID) *Output { return &Output{Kind: TableCreated, Table: &tableID} }

// Result is the record written to the results hash once a job completes. A
// zero Completed and nil Output is the "not yet processed" shape the lookup
// route hands back for absent keys.
type Result struct {
	ID        uuid.UUID  `json:"id"`
	Completed *time.Time `json:"completed"`
	Output    *Output    `json:"output"`
}

// Wrap stamps an output with the completing job's id and the current time.
func Wrap(id uuid.UUID, output *Output) Result {
	now := time.Now().UTC()
	return Result{ID: id, Completed: &now, Output: output}
}

// ErrorKind splits processor failures into the two classes the worker
// dispatches on.
type ErrorKind int

const (
	// Retryable marks an expected transient failure; the worker re-enqueues
	// when the variant allows.
	Retryable ErrorKind = iota
	// Terminal marks an unexpected or non-retryable failure; the worker
	// logs and drops.
	Terminal
)

// JobError is a system-level processing failure. Domain failures never use
// this type; they travel as successful outputs instead.
type JobError struct {
	Kind    ErrorKind
	Message string
}

func (e JobError) Error() string {
	if e.Kind == Retryable {
		return "retryable"
	}
	return e.Message
}

// RetryableError marks a transient failure for re-enqueue.
func RetryableError() JobError { return JobError{Kind: Retryable} }

// TerminalError marks a failure the worker should log and drop.
func TerminalError(format string, args ...any) JobError {
	return JobError{Kind: Terminal, Message: fmt.Sprintf(format, args...)}
}
