package table

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"boxcars/internal/engine"
)

func TestSit_FirstOccupantBecomesRoller(t *testing.T) {
	tbl := New("first seat")
	playerID := uuid.New()

	tbl.Sit(playerID, "nick", 100)

	if tbl.Roller == nil || *tbl.Roller != playerID {
		t.Fatalf("expected first occupant to become roller, got %v", tbl.Roller)
	}
	seat := tbl.Seats[playerID]
	if seat == nil || seat.Balance != 100 {
		t.Fatalf("expected seat funded with 100, got %+v", seat)
	}
}

func TestSit_SecondOccupantDoesNotShoot(t *testing.T) {
	tbl := New("two seats")
	first, second := uuid.New(), uuid.New()

	tbl.Sit(first, "one", 100)
	tbl.Sit(second, "two", 100)

	if *tbl.Roller != first {
		t.Fatal("roller must stay with the first occupant")
	}
}

func TestStand_EmptyBetsRestoresBank(t *testing.T) {
	tbl := New("in and out")
	playerID := uuid.New()

	tbl.Sit(playerID, "nick", 250)
	result := tbl.Stand(playerID)

	if result.Refund != 250 {
		t.Fatalf("expected full refund of 250, got %d", result.Refund)
	}
	if !result.SeatRemoved {
		t.Fatal("expected the seat to be removed")
	}
	if len(tbl.Seats) != 0 {
		t.Fatal("expected no seats remaining")
	}
	if tbl.Roller != nil {
		t.Fatal("roller must clear when the last seat stands")
	}
}

// Scenario 8: stand with a traveled pass bet.
func TestStand_TraveledPassStaysOnTable(t *testing.T) {
	tbl := New("traveled pass")
	playerID := uuid.New()

	tbl.Sit(playerID, "nick", 200)
	if err := tbl.Bet(playerID, engine.StartPass(100)); err != nil {
		t.Fatalf("bet rejected: %v", err)
	}
	tbl.Roll(NewScriptedDice(2, 2))

	result := tbl.Stand(playerID)

	if result.Refund != 100 {
		t.Fatalf("expected refund of the uncommitted 100, got %d", result.Refund)
	}
	if result.SeatRemoved {
		t.Fatal("seat must remain while a traveled pass is live")
	}

	seat := tbl.Seats[playerID]
	if seat == nil || seat.Balance != 0 {
		t.Fatalf("expected zeroed residual seat, got %+v", seat)
	}
	if len(seat.Bets) != 1 || seat.Bets[0].Point == nil || *seat.Bets[0].Point != 4 {
		t.Fatalf("expected the traveled pass retained, got %+v", seat.Bets)
	}
}

func TestStand_RollerReassignedDeterministically(t *testing.T) {
	tbl := New("reassignment")
	first, second, third := uuid.New(), uuid.New(), uuid.New()

	tbl.Sit(first, "one", 100)
	tbl.Sit(second, "two", 100)
	tbl.Sit(third, "three", 100)

	result := tbl.Stand(first)

	if !result.RollerChanged || result.NewRoller == nil {
		t.Fatal("expected the roller to be reassigned")
	}

	expected := second
	if third.String() < second.String() {
		expected = third
	}
	if *tbl.Roller != expected {
		t.Fatalf("expected lexicographically-first seat %s to shoot, got %s", expected, *tbl.Roller)
	}
}

func TestBet_RestampsNonce(t *testing.T) {
	tbl := New("nonce on bet")
	playerID := uuid.New()
	tbl.Sit(playerID, "nick", 100)

	before := tbl.Nonce
	if err := tbl.Bet(playerID, engine.StartPass(10)); err != nil {
		t.Fatalf("bet rejected: %v", err)
	}
	if tbl.Nonce == before {
		t.Fatal("a committed bet must assign a fresh nonce")
	}
}

func TestBet_RejectionLeavesTableUntouched(t *testing.T) {
	tbl := New("rejection")
	playerID := uuid.New()
	tbl.Sit(playerID, "nick", 100)

	before := tbl.Nonce
	err := tbl.Bet(playerID, engine.NewPlace(10, 4))
	if err == nil {
		t.Fatal("place bet must be rejected while the button is off")
	}
	if tbl.Nonce != before {
		t.Fatal("a rejected bet must not restamp the nonce")
	}
	if tbl.Seats[playerID].Balance != 100 {
		t.Fatal("a rejected bet must not touch the balance")
	}
}

func TestBet_UnknownSeat(t *testing.T) {
	tbl := New("ghost")
	err := tbl.Bet(uuid.New(), engine.NewField(10))
	var violation engine.Violation
	if !errors.As(err, &violation) || violation.Reason != engine.InvalidSeat {
		t.Fatalf("expected InvalidSeat, got %v", err)
	}
}

// Scenario 1 at the table level: pass come-out win.
func TestRoll_PassComeOutWin(t *testing.T) {
	tbl := New("come out")
	playerID := uuid.New()
	tbl.Sit(playerID, "nick", 100)
	if err := tbl.Bet(playerID, engine.StartPass(10)); err != nil {
		t.Fatalf("bet rejected: %v", err)
	}

	result := tbl.Roll(NewScriptedDice(3, 4))

	seat := tbl.Seats[playerID]
	if seat.Balance != 110 {
		t.Fatalf("expected balance 110, got %d", seat.Balance)
	}
	if len(seat.Bets) != 0 {
		t.Fatal("expected the bet cleared")
	}
	runs := result.PerSeat[playerID]
	if len(runs.Outcomes) != 1 || !runs.Outcomes[0].Won {
		t.Fatalf("expected one winning outcome, got %+v", runs.Outcomes)
	}
	if len(seat.History) != 1 || !seat.History[0].Won || seat.History[0].Amount != 20 {
		t.Fatalf("expected the win folded into history, got %+v", seat.History)
	}
}

// Scenario 2 at the table level: point travels and hits.
func TestRoll_PointCycle(t *testing.T) {
	tbl := New("point cycle")
	playerID := uuid.New()
	tbl.Sit(playerID, "nick", 200)
	if err := tbl.Bet(playerID, engine.StartPass(100)); err != nil {
		t.Fatalf("bet rejected: %v", err)
	}

	dice := NewScriptedDice(2, 4, 2, 4)

	tbl.Roll(dice)
	if tbl.Button == nil || *tbl.Button != 6 {
		t.Fatalf("expected point 6 established, got %v", tbl.Button)
	}
	if tbl.Seats[playerID].Balance != 100 {
		t.Fatalf("expected balance 100 with bet traveled, got %d", tbl.Seats[playerID].Balance)
	}

	tbl.Roll(dice)
	if tbl.Button != nil {
		t.Fatal("expected button cleared after the hit")
	}
	seat := tbl.Seats[playerID]
	if seat.Balance != 300 {
		t.Fatalf("expected balance 300 after the hit, got %d", seat.Balance)
	}
	if len(seat.Bets) != 0 {
		t.Fatal("expected no bets remaining")
	}
}

func TestRoll_HistoryBounded(t *testing.T) {
	tbl := New("history")
	playerID := uuid.New()
	tbl.Sit(playerID, "nick", 100)

	dice := NewScriptedDice(3, 4)
	for i := 0; i < MaxRollHistory+5; i++ {
		tbl.Roll(dice)
	}

	if len(tbl.Rolls) != MaxRollHistory {
		t.Fatalf("expected history capped at %d, got %d", MaxRollHistory, len(tbl.Rolls))
	}
	if tbl.Rolls[0] != [2]uint8{3, 4} {
		t.Fatalf("expected the newest roll first, got %v", tbl.Rolls[0])
	}
}

func TestRoll_RestampsNonce(t *testing.T) {
	tbl := New("nonce on roll")
	playerID := uuid.New()
	tbl.Sit(playerID, "nick", 100)

	before := tbl.Nonce
	tbl.Roll(NewScriptedDice(3, 4))
	if tbl.Nonce == before {
		t.Fatal("a committed roll must assign a fresh nonce")
	}
}

// Invariant 3: chips are conserved across accepted and rejected bets.
func TestConservation_AcrossBets(t *testing.T) {
	tbl := New("conservation")
	playerID := uuid.New()
	tbl.Sit(playerID, "nick", 500)

	total := func() uint32 {
		seat := tbl.Seats[playerID]
		sum := seat.Balance
		for _, b := range seat.Bets {
			sum += b.Amount
		}
		return sum
	}

	if err := tbl.Bet(playerID, engine.StartPass(100)); err != nil {
		t.Fatalf("bet rejected: %v", err)
	}
	if total() != 500 {
		t.Fatalf("conservation broken after accepted bet: %d", total())
	}

	if err := tbl.Bet(playerID, engine.NewPlace(100, 4)); err == nil {
		t.Fatal("place must be rejected while off")
	}
	if total() != 500 {
		t.Fatalf("conservation broken after rejected bet: %d", total())
	}
}

func TestScriptedDice_RepeatsFinalPair(t *testing.T) {
	dice := NewScriptedDice(1, 2)
	first := dice.Next()
	second := dice.Next()
	if first != second {
		t.Fatalf("expected the final pair to repeat, got %v then %v", first, second)
	}
}
