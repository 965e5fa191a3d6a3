package table

import (
	"crypto/rand"
	"math/big"

	"boxcars/internal/engine"
)

// ScriptedDice replays a fixed sequence of rolls, for deterministic tests.
type ScriptedDice struct {
	sequence [][2]uint8
	pos      int
}

// NewScriptedDice builds a dice source from a flat sequence of values
// consumed two at a time (d1, d2, d1, d2, ...).
func NewScriptedDice(values ...uint8) *ScriptedDice {
	d := &ScriptedDice{}
	for i := 0; i+1 < len(values); i += 2 {
		d.sequence = append(d.sequence, [2]uint8{values[i], values[i+1]})
	}
	return d
}

// Next returns the next scripted roll, repeating the final pair forever once
// the sequence is exhausted so tests never panic on an extra roll.
func (d *ScriptedDice) Next() engine.Roll {
	if len(d.sequence) == 0 {
		return engine.Roll{Left: 1, Right: 1}
	}
	idx := d.pos
	if idx >= len(d.sequence) {
		idx = len(d.sequence) - 1
	} else {
		d.pos++
	}
	pair := d.sequence[idx]
	return engine.Roll{Left: pair[0], Right: pair[1]}
}

// CryptoDice draws each die uniformly from crypto/rand, the production
// dice source.
type CryptoDice struct{}

func (CryptoDice) Next() engine.Roll {
	return engine.Roll{Left: dieFace(), Right: dieFace()}
}

func dieFace() uint8 {
	n, err := rand.Int(rand.Reader, big.NewInt(6))
	if err != nil {
		// entropy starvation here is unrecoverable; there is no weaker
		// source worth falling back to.
		panic(err)
	}
	return uint8(n.Int64()) + 1
}
