// Package table implements the table state machine: seat lifecycle, the
// come-out/point cycle, roller nomination and roll history, composed on top
// of the pure internal/engine bet engine.
package table

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"boxcars/internal/engine"
)

// MaxRollHistory bounds the table's remembered rolls, newest first.
const MaxRollHistory = 10

// Seat is one occupant of a table: the pure engine SeatState plus the
// bookkeeping fields the engine doesn't need to know about.
type Seat struct {
	engine.SeatState
	Nickname  string
	SeatedAt  time.Time
	History   []HistoryEntry
}

// HistoryEntry records one resolved bet for client-facing display.
type HistoryEntry struct {
	Bet    engine.Bet
	Won    bool
	Amount uint32
}

// Table is the aggregate root: seats, roller, button, roll history and the
// optimistic-concurrency nonce.
type Table struct {
	ID        uuid.UUID
	Name      string
	Button    *uint8
	Roller    *uuid.UUID
	Seats     map[uuid.UUID]*Seat
	Rolls     [][2]uint8
	CreatedAt time.Time
	Nonce     uuid.UUID
}

// New constructs an empty table with a fresh id and nonce.
func New(name string) *Table {
	return &Table{
		ID:        uuid.New(),
		Name:      name,
		Seats:     make(map[uuid.UUID]*Seat),
		CreatedAt: time.Now().UTC(),
		Nonce:     uuid.New(),
	}
}

// On reports whether the table button is currently set.
func (t *Table) On() bool { return t.Button != nil }

// sortedSeatIDs returns seat ids in stable lexicographic order, used
// wherever picking "any remaining seat" needs to be deterministic.
func (t *Table) sortedSeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Seats))
	for id := range t.Seats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (t *Table) restamp() { t.Nonce = uuid.New() }

// Stamp assigns a fresh nonce, for callers outside this package that mutate
// seats directly (the administrative cleanup path).
func (t *Table) Stamp() { t.restamp() }

// NominateRoller repairs the roller invariant after direct seat mutation:
// the lexicographically-first seat id shoots, or nobody when the table is
// empty.
func (t *Table) NominateRoller() {
	ids := t.sortedSeatIDs()
	if len(ids) == 0 {
		t.Roller = nil
		return
	}
	next := ids[0]
	t.Roller = &next
}
