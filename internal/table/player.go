package table

import "github.com/google/uuid"

// Player is the engine-facing view of a player's identity and bank: the
// chips they hold outside of any table. Persistence-facing fields (OID,
// emails, tables list) live on the PlayerState wire type in internal/state.
type Player struct {
	ID      uuid.UUID
	Balance uint32
}

// DefaultBankBalance is the starting bank for a freshly-created player
// with no prior session.
const DefaultBankBalance uint32 = 10000

// NewPlayer constructs a player with the default starting bank.
func NewPlayer() Player {
	return Player{ID: uuid.New(), Balance: DefaultBankBalance}
}

// WithBalance overrides the starting bank, used pervasively in tests that
// need an exact, non-default balance.
func (p Player) WithBalance(balance uint32) Player {
	p.Balance = balance
	return p
}
