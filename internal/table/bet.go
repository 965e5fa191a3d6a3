package table

import (
	"github.com/google/uuid"

	"boxcars/internal/engine"
)

// Bet validates and applies bet to playerID's seat. On acceptance the table
// nonce is re-stamped. On rejection the table is left unmodified and the
// returned error unwraps to the engine.Violation.
func (t *Table) Bet(playerID uuid.UUID, bet engine.Bet) error {
	seat, ok := t.Seats[playerID]
	if !ok {
		return engine.CarryError[*Table]{Kind: t, Cause: invalidSeat()}
	}

	next, err := engine.ApplyBet(seat.SeatState, bet, t.On())
	if err != nil {
		return err
	}

	seat.SeatState = next
	t.restamp()
	return nil
}

func invalidSeat() engine.Violation {
	return engine.Violation{Reason: engine.InvalidSeat}
}
