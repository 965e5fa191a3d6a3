package table

import (
	"time"

	"github.com/google/uuid"

	"boxcars/internal/engine"
)

// Sit inserts a new seat for player, moving their entire bank balance onto
// the felt. If no roller is currently nominated, the new occupant becomes
// the roller (the first player to sit always shoots).
func (t *Table) Sit(playerID uuid.UUID, nickname string, bank uint32) {
	seat := &Seat{
		SeatState: engine.SeatState{Balance: bank},
		Nickname:  nickname,
		SeatedAt:  time.Now().UTC(),
	}
	t.Seats[playerID] = seat
	if t.Roller == nil {
		id := playerID
		t.Roller = &id
	}
	t.restamp()
}

// StandResult is what a departing player is owed and whether their seat
// still has unresolved action on the table after standing.
type StandResult struct {
	Refund        uint32
	SeatRemoved   bool
	RollerChanged bool
	NewRoller     *uuid.UUID
}

// Stand removes playerID's seat, refunding its uncommitted balance plus
// whatever the engine's Pull rule allows. A seat with residual unrefundable bets (a traveled race bet, a
// live hardway) stays on the table with a zeroed balance until a future
// roll resolves the action. If the departing player was the roller, the
// next roller is the lexicographically-first remaining seat id; if no seats
// remain, the roller clears.
func (t *Table) Stand(playerID uuid.UUID) StandResult {
	seat, ok := t.Seats[playerID]
	if !ok {
		return StandResult{}
	}

	refund, residual := engine.Stand(seat.SeatState)

	removed := len(residual) == 0
	if removed {
		delete(t.Seats, playerID)
	} else {
		seat.SeatState.Bets = residual
		seat.SeatState.Balance = 0
	}
	t.restamp()

	result := StandResult{Refund: refund, SeatRemoved: removed}

	wasRoller := t.Roller != nil && *t.Roller == playerID
	if !wasRoller {
		return result
	}

	result.RollerChanged = true
	ids := t.sortedSeatIDs()
	if len(ids) == 0 {
		t.Roller = nil
		return result
	}
	next := ids[0]
	t.Roller = &next
	result.NewRoller = &next
	return result
}
