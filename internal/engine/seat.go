package engine

// SeatState is the pure bet-engine view of a single occupant: a chip
// balance and the bets currently riding. It carries none of the table's
// identity or bookkeeping fields (nickname, seated-at, history) — those
// belong to internal/table, which embeds a SeatState.
type SeatState struct {
	Balance uint32
	Bets    []Bet
}

// Outcome records what happened to one bet during a roll resolution.
type Outcome struct {
	Bet Bet
	Won bool
	// Amount is the total credited back to the seat on a win (0 on a
	// loss or noop). A noop bet (still live, unresolved) is reported with
	// Won=false and Amount=0, and the same bet instance reappears in the
	// seat's surviving Bets list — resolve_roll distinguishes "lost"
	// from "still live" by whether the bet remains attached afterward.
	Amount  uint32
	Settled bool // true if the bet is removed from the seat (win or loss), false if it travels/remains
}

// SeatRuns is the outcome of resolving one roll against one seat's bets.
type SeatRuns struct {
	Outcomes []Outcome
}

func findRace(bets []Bet, side RaceSide, traveled bool, target uint8) (Bet, bool) {
	for _, b := range bets {
		if b.Kind != KindRace || b.Side != side {
			continue
		}
		if traveled {
			if b.Point != nil && *b.Point == target {
				return b, true
			}
			continue
		}
		if b.Point == nil {
			return b, true
		}
	}
	return Bet{}, false
}

// ApplyBet validates and attaches bet to seat given whether the table button
// is currently set (on). On acceptance it debits the wager and returns the
// updated seat; on rejection it returns the CarryError carrying the
// unmodified seat.
func ApplyBet(seat SeatState, bet Bet, on bool) (SeatState, error) {
	switch bet.Kind {
	case KindRace:
		if bet.Point != nil {
			return seat, carry(seat, Other)
		}
		if bet.Side == Pass && on {
			return seat, carry(seat, PassLineAlreadyOn)
		}
		if bet.Side == Come && !on {
			return seat, carry(seat, ComeOffError)
		}
	case KindOdds:
		if bet.OddsKind == PassOdds {
			if !on {
				return seat, carry(seat, PassOddsOffError)
			}
			race, ok := findRace(seat.Bets, Pass, true, bet.Target)
			if !ok || race.Point == nil || *race.Point != bet.Target {
				return seat, carry(seat, MissingPassForOdds)
			}
		} else {
			_, ok := findRace(seat.Bets, Come, true, bet.Target)
			if !ok {
				return seat, carry(seat, MissingComeForOdds)
			}
		}
	case KindPlace:
		if !on || !isPlaceOrPoint(bet.Target) {
			return seat, carry(seat, PlaceOffError)
		}
	case KindHardway:
		if !on {
			return seat, carry(seat, HardwayOffError)
		}
	case KindField:
		// always accepted, subject only to the funds check below.
	}

	if bet.Amount == 0 || uint64(bet.Amount) > uint64(seat.Balance) {
		return seat, carry(seat, InsufficientFunds)
	}

	next := seat
	next.Balance -= bet.Amount
	next.Bets = append(append([]Bet{}, seat.Bets...), bet)
	return next, nil
}

// ResolveRoll resolves every bet in the seat against r and returns the
// updated seat (credited balance, surviving/traveled bets only) plus the
// ordered outcome list, stable in the input bets' order.
func ResolveRoll(seat SeatState, r Roll) (SeatState, SeatRuns) {
	total := r.Total()
	var surviving []Bet
	var outcomes []Outcome
	var credit uint32

	for _, b := range seat.Bets {
		switch b.Kind {
		case KindRace:
			switch {
			case b.Point == nil && (total == 7 || total == 11):
				amt := b.Amount * 2
				credit += amt
				outcomes = append(outcomes, Outcome{Bet: b, Won: true, Amount: amt, Settled: true})
			case b.Point == nil && (total == 2 || total == 3 || total == 12):
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: true})
			case b.Point == nil:
				traveled := b.withPoint(total)
				surviving = append(surviving, traveled)
				outcomes = append(outcomes, Outcome{Bet: traveled, Won: false, Settled: false})
			case total == uint8(*b.Point):
				amt := b.Amount * 2
				credit += amt
				outcomes = append(outcomes, Outcome{Bet: b, Won: true, Amount: amt, Settled: true})
			case total == 7:
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: true})
			default:
				surviving = append(surviving, b)
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: false})
			}

		case KindOdds:
			switch {
			case total == uint8(b.Target):
				amt := payoutForTarget(b.Target, b.Amount, styleRace)
				credit += amt
				outcomes = append(outcomes, Outcome{Bet: b, Won: true, Amount: amt, Settled: true})
			case total == 7:
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: true})
			default:
				surviving = append(surviving, b)
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: false})
			}

		case KindPlace:
			switch {
			case total == uint8(b.Target):
				amt := payoutForTarget(b.Target, b.Amount, stylePlace)
				credit += amt
				outcomes = append(outcomes, Outcome{Bet: b, Won: true, Amount: amt, Settled: true})
			case total == 7:
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: true})
			default:
				surviving = append(surviving, b)
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: false})
			}

		case KindField:
			switch total {
			case 2, 12:
				amt := b.Amount * 3
				credit += amt
				outcomes = append(outcomes, Outcome{Bet: b, Won: true, Amount: amt, Settled: true})
			case 3, 4, 9, 10, 11:
				amt := b.Amount * 2
				credit += amt
				outcomes = append(outcomes, Outcome{Bet: b, Won: true, Amount: amt, Settled: true})
			default:
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: true})
			}

		case KindHardway:
			switch {
			case total == 7 || r.Easyway(b.Way):
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: true})
			case r.Hardway(b.Way):
				var amt uint32
				switch b.Way {
				case HardwaySix, HardwayEight:
					amt = b.Amount*9 + b.Amount
				default:
					amt = b.Amount*7 + b.Amount
				}
				credit += amt
				outcomes = append(outcomes, Outcome{Bet: b, Won: true, Amount: amt, Settled: true})
			default:
				surviving = append(surviving, b)
				outcomes = append(outcomes, Outcome{Bet: b, Won: false, Settled: false})
			}
		}
	}

	seat.Bets = surviving
	seat.Balance += credit
	return seat, SeatRuns{Outcomes: outcomes}
}

// Pull returns the refundable stake and the bet that remains attached (nil
// if fully resolved) when a seat stands. Race bets still in come-out,
// Field, Place and unresolved Odds bets are refundable; Race bets that
// have traveled to a point and Hardway bets are forfeited and remain on
// the table (a departing player's stand does not cancel action already in
// flight on the felt).
func Pull(b Bet) (refund uint32, remaining *Bet) {
	switch b.Kind {
	case KindRace:
		if b.Point == nil {
			return b.Amount, nil
		}
		return 0, &b
	case KindOdds:
		return b.Amount, nil
	case KindField:
		return b.Amount, nil
	case KindHardway:
		return 0, &b
	case KindPlace:
		return b.Amount, nil
	}
	return 0, nil
}

// Stand resolves every bet in the seat for a departing player: the seat's
// uncommitted balance and the refundable bet amounts are summed and removed,
// forfeited bets remain attached to a zero-balance seat fragment. It returns
// the refunded total and the residual bets (possibly empty) that stay on the
// table.
func Stand(seat SeatState) (refund uint32, residual []Bet) {
	refund = seat.Balance
	for _, b := range seat.Bets {
		amt, remaining := Pull(b)
		refund += amt
		if remaining != nil {
			residual = append(residual, *remaining)
		}
	}
	return refund, residual
}
