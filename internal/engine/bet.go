// Package engine implements the pure craps bet engine: acceptance rules,
// roll resolution, payout math and the button state transition. It performs
// no I/O and no randomness of its own.
package engine

// RaceSide distinguishes a Pass line bet from a Come bet. Both race toward a
// point once the table is "on" and share identical payout shape.
type RaceSide int

const (
	Pass RaceSide = iota
	Come
)

func (s RaceSide) String() string {
	if s == Pass {
		return "pass"
	}
	return "come"
}

// OddsKind ties an Odds bet back to the race bet it rides behind.
type OddsKind int

const (
	PassOdds OddsKind = iota
	ComeOdds
)

func (k OddsKind) String() string {
	if k == PassOdds {
		return "pass_odds"
	}
	return "come_odds"
}

// HardwayNumber is one of the four doubles a hardway bet can target.
type HardwayNumber int

const (
	HardwayFour  HardwayNumber = 4
	HardwaySix   HardwayNumber = 6
	HardwayEight HardwayNumber = 8
	HardwayTen   HardwayNumber = 10
)

// Kind discriminates the Bet tagged union.
type Kind int

const (
	KindRace Kind = iota
	KindOdds
	KindPlace
	KindHardway
	KindField
)

// Bet is the closed tagged union of every wager a seat can hold. Only the
// fields relevant to Kind are meaningful; Point is nil until a Race bet
// travels.
type Bet struct {
	Kind     Kind
	Amount   uint32
	Side     RaceSide      // KindRace
	Point    *uint8        // KindRace: nil means come-out phase
	OddsKind OddsKind      // KindOdds
	Target   uint8         // KindOdds, KindPlace
	Way      HardwayNumber // KindHardway
}

// StartPass builds a fresh, untravelled Pass line bet.
func StartPass(amount uint32) Bet { return Bet{Kind: KindRace, Side: Pass, Amount: amount} }

// StartCome builds a fresh, untravelled Come bet.
func StartCome(amount uint32) Bet { return Bet{Kind: KindRace, Side: Come, Amount: amount} }

// NewOdds builds an Odds bet backing a race bet already on the given target.
func NewOdds(kind OddsKind, amount uint32, target uint8) Bet {
	return Bet{Kind: KindOdds, OddsKind: kind, Amount: amount, Target: target}
}

// NewPlace builds a Place bet on the given target.
func NewPlace(amount uint32, target uint8) Bet {
	return Bet{Kind: KindPlace, Amount: amount, Target: target}
}

// NewHardway builds a Hardway bet on the given doubles number.
func NewHardway(amount uint32, way HardwayNumber) Bet {
	return Bet{Kind: KindHardway, Amount: amount, Way: way}
}

// NewField builds a Field bet.
func NewField(amount uint32) Bet { return Bet{Kind: KindField, Amount: amount} }

func isPlaceOrPoint(n uint8) bool {
	switch n {
	case 4, 5, 6, 8, 9, 10:
		return true
	default:
		return false
	}
}

// traveled reports whether a Race bet has moved off the come-out phase.
func (b Bet) traveled() bool {
	return b.Kind == KindRace && b.Point != nil
}

// withPoint returns a copy of a Race bet with its point set, used when a
// come-out roll neither resolves nor craps out.
func (b Bet) withPoint(total uint8) Bet {
	next := b
	p := total
	next.Point = &p
	return next
}
