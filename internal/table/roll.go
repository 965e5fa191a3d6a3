package table

import (
	"github.com/google/uuid"

	"boxcars/internal/engine"
)

// DiceSource yields the next roll. Production uses a crypto/rand-backed
// source; tests script a fixed sequence for determinism.
type DiceSource interface {
	Next() engine.Roll
}

// RunResult is the outcome of advancing a table by one roll: the roll drawn
// plus every seat's resolved bets, in stable seat-bet order.
type RunResult struct {
	Roll     engine.Roll
	PerSeat  map[uuid.UUID]engine.SeatRuns
}

// Roll draws the next dice pair from source, advances the button, resolves
// every seat's bets against it, prepends the roll to history (bounded to
// MaxRollHistory) and re-stamps the nonce.
func (t *Table) Roll(source DiceSource) RunResult {
	r := source.Next()

	button, _ := engine.NextButton(t.Button, r)
	t.Button = button

	perSeat := make(map[uuid.UUID]engine.SeatRuns, len(t.Seats))
	for id, seat := range t.Seats {
		next, runs := engine.ResolveRoll(seat.SeatState, r)
		seat.SeatState = next
		for _, o := range runs.Outcomes {
			if o.Settled {
				seat.History = append(seat.History, HistoryEntry{Bet: o.Bet, Won: o.Won, Amount: o.Amount})
			}
		}
		perSeat[id] = runs
	}

	t.Rolls = append([][2]uint8{{r.Left, r.Right}}, t.Rolls...)
	if len(t.Rolls) > MaxRollHistory {
		t.Rolls = t.Rolls[:MaxRollHistory]
	}

	t.restamp()

	return RunResult{Roll: r, PerSeat: perSeat}
}
