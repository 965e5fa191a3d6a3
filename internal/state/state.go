// Package state holds the JSON wire representations of the domain: the
// shapes that travel through the job queue and rest in the document store.
// Conversions to and from the internal/engine and internal/table types live
// here so neither of those packages needs to know about serialization.
package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"boxcars/internal/engine"
	"boxcars/internal/table"
)

// BetState is the tagged wire form of an engine.Bet.
type BetState struct {
	Kind   string `json:"kind"` // race, odds, place, hardway, field
	Amount uint32 `json:"amount"`
	Side   string `json:"side,omitempty"`   // race: pass, come
	Point  *uint8 `json:"point,omitempty"`  // race: nil until traveled
	Odds   string `json:"odds,omitempty"`   // odds: pass_odds, come_odds
	Target uint8  `json:"target,omitempty"` // odds, place
	Way    uint8  `json:"way,omitempty"`    // hardway
}

// FromBet converts an engine bet to its wire form.
func FromBet(b engine.Bet) BetState {
	switch b.Kind {
	case engine.KindRace:
		return BetState{Kind: "race", Amount: b.Amount, Side: b.Side.String(), Point: b.Point}
	case engine.KindOdds:
		return BetState{Kind: "odds", Amount: b.Amount, Odds: b.OddsKind.String(), Target: b.Target}
	case engine.KindPlace:
		return BetState{Kind: "place", Amount: b.Amount, Target: b.Target}
	case engine.KindHardway:
		return BetState{Kind: "hardway", Amount: b.Amount, Way: uint8(b.Way)}
	default:
		return BetState{Kind: "field", Amount: b.Amount}
	}
}

// ToBet converts a wire bet back into the engine's tagged union.
func (b BetState) ToBet() (engine.Bet, error) {
	switch b.Kind {
	case "race":
		side := engine.Pass
		if b.Side == "come" {
			side = engine.Come
		}
		bet := engine.Bet{Kind: engine.KindRace, Side: side, Amount: b.Amount}
		if b.Point != nil {
			p := *b.Point
			bet.Point = &p
		}
		return bet, nil
	case "odds":
		kind := engine.PassOdds
		if b.Odds == "come_odds" {
			kind = engine.ComeOdds
		}
		return engine.NewOdds(kind, b.Amount, b.Target), nil
	case "place":
		return engine.NewPlace(b.Amount, b.Target), nil
	case "hardway":
		return engine.NewHardway(b.Amount, engine.HardwayNumber(b.Way)), nil
	case "field":
		return engine.NewField(b.Amount), nil
	}
	return engine.Bet{}, fmt.Errorf("unknown bet kind %q", b.Kind)
}

// HistoryState is one resolved bet in a seat's history.
type HistoryState struct {
	Bet    BetState `json:"bet"`
	Won    bool     `json:"won"`
	Amount uint32   `json:"amount"`
}

// SeatState is the wire form of a table.Seat.
type SeatState struct {
	Balance  uint32         `json:"balance"`
	Nickname string         `json:"nickname"`
	SeatedAt time.Time      `json:"seated_at"`
	Bets     []BetState     `json:"bets"`
	History  []HistoryState `json:"history"`
}

// TableState is the wire form of a table.Table, persisted to the document
// store and replaced whole under the nonce guard.
type TableState struct {
	ID        uuid.UUID                `json:"id"`
	Name      string                   `json:"name"`
	Button    *uint8                   `json:"button"`
	Roller    *uuid.UUID               `json:"roller"`
	Seats     map[uuid.UUID]SeatState  `json:"seats"`
	Rolls     [][2]uint8               `json:"rolls"`
	CreatedAt time.Time                `json:"created_at"`
	Nonce     uuid.UUID                `json:"nonce"`
}

// PopulationEntry is one (seat id, nickname) pair in a table's index row.
type PopulationEntry struct {
	SeatID   uuid.UUID `json:"seat_id"`
	Nickname string    `json:"nickname"`
}

// TableIndexState is the lobby-facing row derived from TableState by the
// reindex aggregation.
type TableIndexState struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Population []PopulationEntry `json:"population"`
}

// PlayerState is the wire form of a player document: identity, bank balance
// and the tables the player is currently seated at.
type PlayerState struct {
	ID       uuid.UUID   `json:"id"`
	OID      string      `json:"oid"`
	Nickname string      `json:"nickname"`
	Emails   []string    `json:"emails"`
	Balance  uint32      `json:"balance"`
	Tables   []uuid.UUID `json:"tables"`
}

// FromTable flattens a domain table into its wire form.
func FromTable(t *table.Table) TableState {
	seats := make(map[uuid.UUID]SeatState, len(t.Seats))
	for id, seat := range t.Seats {
		seats[id] = fromSeat(seat)
	}
	return TableState{
		ID:        t.ID,
		Name:      t.Name,
		Button:    copyPoint(t.Button),
		Roller:    copyID(t.Roller),
		Seats:     seats,
		Rolls:     append([][2]uint8{}, t.Rolls...),
		CreatedAt: t.CreatedAt,
		Nonce:     t.Nonce,
	}
}

// ToTable rehydrates a domain table from its wire form.
func (ts TableState) ToTable() (*table.Table, error) {
	seats := make(map[uuid.UUID]*table.Seat, len(ts.Seats))
	for id, ss := range ts.Seats {
		seat, err := ss.toSeat()
		if err != nil {
			return nil, err
		}
		seats[id] = seat
	}
	return &table.Table{
		ID:        ts.ID,
		Name:      ts.Name,
		Button:    copyPoint(ts.Button),
		Roller:    copyID(ts.Roller),
		Seats:     seats,
		Rolls:     append([][2]uint8{}, ts.Rolls...),
		CreatedAt: ts.CreatedAt,
		Nonce:     ts.Nonce,
	}, nil
}

func fromSeat(s *table.Seat) SeatState {
	bets := make([]BetState, 0, len(s.Bets))
	for _, b := range s.Bets {
		bets = append(bets, FromBet(b))
	}
	history := make([]HistoryState, 0, len(s.History))
	for _, h := range s.History {
		history = append(history, HistoryState{Bet: FromBet(h.Bet), Won: h.Won, Amount: h.Amount})
	}
	return SeatState{
		Balance:  s.Balance,
		Nickname: s.Nickname,
		SeatedAt: s.SeatedAt,
		Bets:     bets,
		History:  history,
	}
}

func (ss SeatState) toSeat() (*table.Seat, error) {
	bets := make([]engine.Bet, 0, len(ss.Bets))
	for _, bs := range ss.Bets {
		b, err := bs.ToBet()
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	history := make([]table.HistoryEntry, 0, len(ss.History))
	for _, hs := range ss.History {
		b, err := hs.Bet.ToBet()
		if err != nil {
			return nil, err
		}
		history = append(history, table.HistoryEntry{Bet: b, Won: hs.Won, Amount: hs.Amount})
	}
	return &table.Seat{
		SeatState: engine.SeatState{Balance: ss.Balance, Bets: bets},
		Nickname:  ss.Nickname,
		SeatedAt:  ss.SeatedAt,
		History:   history,
	}, nil
}

// IndexEntry reduces a table's wire form to its lobby index row.
func (ts TableState) IndexEntry() TableIndexState {
	population := make([]PopulationEntry, 0, len(ts.Seats))
	for id, seat := range ts.Seats {
		population = append(population, PopulationEntry{SeatID: id, Nickname: seat.Nickname})
	}
	return TableIndexState{ID: ts.ID, Name: ts.Name, Population: population}
}

func copyPoint(p *uint8) *uint8 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
