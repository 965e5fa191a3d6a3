package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"boxcars/internal/engine"
	"boxcars/internal/jobs"
	"boxcars/internal/state"
	"boxcars/internal/store"
	"boxcars/internal/table"
)

type fakeQueue struct {
	pending []jobs.Job
	results []jobs.Result
}

func (q *fakeQueue) Pop(ctx context.Context) (*jobs.Job, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return &job, nil
}

func (q *fakeQueue) Push(ctx context.Context, job jobs.Job) (string, error) {
	q.pending = append(q.pending, job)
	return job.ID.String(), nil
}

func (q *fakeQueue) PublishResult(ctx context.Context, result jobs.Result) error {
	q.results = append(q.results, result)
	return nil
}

type fakeTables struct {
	tables      map[uuid.UUID]state.TableState
	replaceFail int // fail this many replaces before succeeding
	deleted     []uuid.UUID
	indexed     []state.TableIndexState
	reindexed   int
}

func newFakeTables() *fakeTables {
	return &fakeTables{tables: make(map[uuid.UUID]state.TableState)}
}

func (f *fakeTables) GetTable(ctx context.Context, id uuid.UUID) (state.TableState, error) {
	ts, ok := f.tables[id]
	if !ok {
		return state.TableState{}, store.ErrNotFound
	}
	return ts, nil
}

func (f *fakeTables) InsertTable(ctx context.Context, ts state.TableState) error {
	f.tables[ts.ID] = ts
	return nil
}

func (f *fakeTables) ReplaceTable(ctx context.Context, ts state.TableState, expected uuid.UUID) error {
	if f.replaceFail > 0 {
		f.replaceFail--
		return fmt.Errorf("transient store failure")
	}
	current, ok := f.tables[ts.ID]
	if !ok || current.Nonce != expected {
		return store.ErrConflict
	}
	f.tables[ts.ID] = ts
	return nil
}

func (f *fakeTables) DeleteTable(ctx context.Context, id uuid.UUID) error {
	delete(f.tables, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTables) ListTables(ctx context.Context, visit func(state.TableState) error) error {
	for _, ts := range f.tables {
		if err := visit(ts); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTables) UpsertIndexEntry(ctx context.Context, entry state.TableIndexState) error {
	f.indexed = append(f.indexed, entry)
	return nil
}

func (f *fakeTables) Reindex(ctx context.Context) error {
	f.reindexed++
	return nil
}

type fakePlayers struct {
	players map[uuid.UUID]state.PlayerState
}

func newFakePlayers() *fakePlayers {
	return &fakePlayers{players: make(map[uuid.UUID]state.PlayerState)}
}

func (f *fakePlayers) GetPlayer(ctx context.Context, id uuid.UUID) (state.PlayerState, error) {
	ps, ok := f.players[id]
	if !ok {
		return state.PlayerState{}, store.ErrNotFound
	}
	return ps, nil
}

func (f *fakePlayers) UpdatePlayer(ctx context.Context, id uuid.UUID, balance uint32, tableIDs []uuid.UUID) error {
	ps, ok := f.players[id]
	if !ok {
		return store.ErrNotFound
	}
	ps.Balance = balance
	ps.Tables = tableIDs
	f.players[id] = ps
	return nil
}

type fixture struct {
	queue   *fakeQueue
	tables  *fakeTables
	players *fakePlayers
	worker  *Worker
}

func newFixture(dice table.DiceSource) *fixture {
	queue := &fakeQueue{}
	tables := newFakeTables()
	players := newFakePlayers()
	return &fixture{
		queue:   queue,
		tables:  tables,
		players: players,
		worker:  New(queue, tables, players, dice, 5),
	}
}

func (f *fixture) seedPlayer(balance uint32) state.PlayerState {
	ps := state.PlayerState{ID: uuid.New(), OID: "ext|1", Nickname: "tester", Balance: balance}
	f.players.players[ps.ID] = ps
	return ps
}

func (f *fixture) seedTable(playerID uuid.UUID, bank uint32) state.TableState {
	tbl := table.New("seeded")
	tbl.Sit(playerID, "tester", bank)
	ts := state.FromTable(tbl)
	f.tables.tables[ts.ID] = ts
	return ts
}

// lastResult returns the most recently published result, failing when there
// are none.
func (f *fixture) lastResult(t *testing.T) jobs.Result {
	t.Helper()
	if len(f.queue.results) == 0 {
		t.Fatal("expected a published result")
	}
	return f.queue.results[len(f.queue.results)-1]
}

func TestProcessBet_Processed(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(0)
	ts := f.seedTable(ps.ID, 100)

	bet := state.FromBet(engine.StartPass(10))
	f.queue.pending = append(f.queue.pending, jobs.NewBet(bet, ps.ID, ts.ID, ts.Nonce))

	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}

	result := f.lastResult(t)
	if result.Output.Kind != jobs.BetProcessed {
		t.Fatalf("expected bet_processed, got %s", result.Output.Kind)
	}

	next := f.tables.tables[ts.ID]
	if next.Nonce == ts.Nonce {
		t.Fatal("a committed bet must restamp the nonce")
	}
	if next.Seats[ps.ID].Balance != 90 {
		t.Fatalf("expected seat balance 90, got %d", next.Seats[ps.ID].Balance)
	}
}

// Scenario 6: a bet claiming an outdated nonce resolves BetStale, untouched.
func TestProcessBet_Stale(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(0)
	ts := f.seedTable(ps.ID, 100)

	bet := state.FromBet(engine.StartPass(10))
	f.queue.pending = append(f.queue.pending, jobs.NewBet(bet, ps.ID, ts.ID, uuid.New()))

	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}

	result := f.lastResult(t)
	if result.Output.Kind != jobs.BetStale {
		t.Fatalf("expected bet_stale, got %s", result.Output.Kind)
	}
	if f.tables.tables[ts.ID].Nonce != ts.Nonce {
		t.Fatal("a stale bet must not mutate the table")
	}
}

func TestProcessBet_RuleViolationIsSuccess(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(0)
	ts := f.seedTable(ps.ID, 100)

	// place is rejected while the button is off.
	bet := state.FromBet(engine.NewPlace(10, 4))
	f.queue.pending = append(f.queue.pending, jobs.NewBet(bet, ps.ID, ts.ID, ts.Nonce))

	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}

	result := f.lastResult(t)
	if result.Output.Kind != jobs.BetFailed {
		t.Fatalf("expected bet_failed, got %s", result.Output.Kind)
	}
	if result.Output.Reason != "place-off-error" {
		t.Fatalf("expected place-off-error, got %s", result.Output.Reason)
	}
	if f.tables.tables[ts.ID].Nonce != ts.Nonce {
		t.Fatal("a rejected bet must not mutate the table")
	}
}

func TestProcessBet_MissingTableIsTerminal(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(0)

	bet := state.FromBet(engine.NewField(10))
	f.queue.pending = append(f.queue.pending, jobs.NewBet(bet, ps.ID, uuid.New(), uuid.New()))

	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("terminal errors are logged, not returned: %v", err)
	}
	if len(f.queue.results) != 0 {
		t.Fatal("a terminal job must not publish a result")
	}
	if len(f.queue.pending) != 0 {
		t.Fatal("a terminal job must not be re-enqueued")
	}
}

// Scenario 7: one transient replace failure, retried, then processed with
// the attempts counter carried through.
func TestProcessBet_RetryOnTransientReplaceFailure(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(0)
	ts := f.seedTable(ps.ID, 100)
	f.tables.replaceFail = 1

	bet := state.FromBet(engine.StartPass(10))
	f.queue.pending = append(f.queue.pending, jobs.NewBet(bet, ps.ID, ts.ID, ts.Nonce))

	// first attempt hits the transient failure and re-enqueues.
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}
	if len(f.queue.results) != 0 {
		t.Fatal("no result should publish on a retryable failure")
	}
	if len(f.queue.pending) != 1 {
		t.Fatalf("expected the job re-enqueued, queue has %d", len(f.queue.pending))
	}
	if f.queue.pending[0].Attempts != 1 {
		t.Fatalf("expected attempts 1 in the requeued envelope, got %d", f.queue.pending[0].Attempts)
	}

	// second attempt succeeds.
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}
	result := f.lastResult(t)
	if result.Output.Kind != jobs.BetProcessed {
		t.Fatalf("expected bet_processed after retry, got %s", result.Output.Kind)
	}
}

func TestProcessRoll_ProcessedAndStale(t *testing.T) {
	f := newFixture(table.NewScriptedDice(3, 4))
	ps := f.seedPlayer(0)
	ts := f.seedTable(ps.ID, 100)

	f.queue.pending = append(f.queue.pending, jobs.NewRoll(ts.ID, ts.Nonce))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}
	if f.lastResult(t).Output.Kind != jobs.RollProcessed {
		t.Fatal("expected roll_processed")
	}

	next := f.tables.tables[ts.ID]
	if len(next.Rolls) != 1 || next.Rolls[0] != [2]uint8{3, 4} {
		t.Fatalf("expected the roll recorded, got %v", next.Rolls)
	}
	if next.Nonce == ts.Nonce {
		t.Fatal("a committed roll must restamp the nonce")
	}

	// replaying the old version is stale now.
	f.queue.pending = append(f.queue.pending, jobs.NewRoll(ts.ID, ts.Nonce))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}
	if f.lastResult(t).Output.Kind != jobs.RollStale {
		t.Fatal("expected roll_stale on the replay")
	}
}

func TestProcessCreate_SeatsCreator(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(10000)

	f.queue.pending = append(f.queue.pending, jobs.NewCreate(ps.ID))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}

	result := f.lastResult(t)
	if result.Output.Kind != jobs.TableCreated || result.Output.Table == nil {
		t.Fatalf("expected table_created with an id, got %+v", result.Output)
	}

	ts := f.tables.tables[*result.Output.Table]
	seat, ok := ts.Seats[ps.ID]
	if !ok {
		t.Fatal("creator must be seated")
	}
	if seat.Balance != 10000 {
		t.Fatalf("expected the creator's bank on the felt, got %d", seat.Balance)
	}
	if ts.Roller == nil || *ts.Roller != ps.ID {
		t.Fatal("creator must be the initial roller")
	}

	updated := f.players.players[ps.ID]
	if updated.Balance != 0 {
		t.Fatalf("expected the bank zeroed, got %d", updated.Balance)
	}
	if len(updated.Tables) != 1 || updated.Tables[0] != ts.ID {
		t.Fatalf("expected the table tracked on the player, got %v", updated.Tables)
	}

	// a reindex job follows the mutation.
	if len(f.queue.pending) != 1 || f.queue.pending[0].Kind != jobs.KindAdmin {
		t.Fatal("expected a reindex job enqueued")
	}
}

func TestProcessCreate_GatedByActiveTables(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(100)
	ps.Tables = []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	f.players.players[ps.ID] = ps

	f.queue.pending = append(f.queue.pending, jobs.NewCreate(ps.ID))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("work failed: %v", err)
	}

	result := f.lastResult(t)
	if result.Output.Kind != jobs.BetFailed || result.Output.Reason != "too-many-tables" {
		t.Fatalf("expected the gate to trip, got %+v", result.Output)
	}
}

func TestProcessSitAndStand_RoundTrip(t *testing.T) {
	f := newFixture(nil)
	host := f.seedPlayer(500)
	guest := f.seedPlayer(300)
	ts := f.seedTable(host.ID, 500)
	f.players.players[host.ID] = state.PlayerState{ID: host.ID, Balance: 0, Tables: []uuid.UUID{ts.ID}}

	f.queue.pending = append(f.queue.pending, jobs.NewSit(ts.ID, guest.ID))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("sit failed: %v", err)
	}
	if f.lastResult(t).Output.Kind != jobs.SitOk {
		t.Fatal("expected sit_ok")
	}

	seated := f.tables.tables[ts.ID]
	if seated.Seats[guest.ID].Balance != 300 {
		t.Fatal("guest bank must move onto the seat")
	}
	if f.players.players[guest.ID].Balance != 0 {
		t.Fatal("guest bank must be zeroed")
	}

	f.queue.pending = nil
	f.queue.pending = append(f.queue.pending, jobs.NewStand(ts.ID, guest.ID))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("stand failed: %v", err)
	}
	if f.lastResult(t).Output.Kind != jobs.StandOk {
		t.Fatal("expected stand_ok")
	}

	if f.players.players[guest.ID].Balance != 300 {
		t.Fatalf("expected the guest bank restored, got %d", f.players.players[guest.ID].Balance)
	}
	if len(f.players.players[guest.ID].Tables) != 0 {
		t.Fatal("expected the table dropped from the guest's list")
	}
	if _, ok := f.tables.tables[ts.ID].Seats[guest.ID]; ok {
		t.Fatal("expected the guest's seat removed")
	}
}

func TestProcessStand_LastSeatDeletesTable(t *testing.T) {
	f := newFixture(nil)
	ps := f.seedPlayer(0)
	ts := f.seedTable(ps.ID, 250)
	f.players.players[ps.ID] = state.PlayerState{ID: ps.ID, Balance: 0, Tables: []uuid.UUID{ts.ID}}

	f.queue.pending = append(f.queue.pending, jobs.NewStand(ts.ID, ps.ID))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("stand failed: %v", err)
	}

	if _, ok := f.tables.tables[ts.ID]; ok {
		t.Fatal("expected the emptied table deleted")
	}
	if len(f.tables.deleted) != 1 || f.tables.deleted[0] != ts.ID {
		t.Fatal("expected the delete recorded for the index too")
	}
	if f.players.players[ps.ID].Balance != 250 {
		t.Fatalf("expected the bank restored, got %d", f.players.players[ps.ID].Balance)
	}
}

func TestProcessAdmin_Reindex(t *testing.T) {
	f := newFixture(nil)

	f.queue.pending = append(f.queue.pending, jobs.Reindex())
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if f.lastResult(t).Output.Kind != jobs.AdminOk {
		t.Fatal("expected admin_ok")
	}
	if f.tables.reindexed != 1 {
		t.Fatal("expected one reindex pass")
	}
}

func TestProcessAdmin_CleanupPurgesSeats(t *testing.T) {
	f := newFixture(nil)
	target := f.seedPlayer(0)
	other := f.seedPlayer(0)

	tbl := table.New("shared")
	tbl.Sit(target.ID, "target", 100)
	tbl.Sit(other.ID, "other", 100)
	ts := state.FromTable(tbl)
	f.tables.tables[ts.ID] = ts

	solo := f.seedTable(target.ID, 50)

	f.queue.pending = append(f.queue.pending, jobs.Cleanup(target.ID.String()))
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if f.lastResult(t).Output.Kind != jobs.AdminOk {
		t.Fatal("expected admin_ok")
	}

	shared := f.tables.tables[ts.ID]
	if _, ok := shared.Seats[target.ID]; ok {
		t.Fatal("expected the target purged from the shared table")
	}
	if shared.Roller == nil || *shared.Roller != other.ID {
		t.Fatal("expected the remaining seat nominated as roller")
	}
	if _, ok := f.tables.tables[solo.ID]; ok {
		t.Fatal("expected the emptied solo table deleted")
	}
}

func TestWork_EmptyPopIsNoop(t *testing.T) {
	f := newFixture(nil)
	if err := f.worker.Work(context.Background()); err != nil {
		t.Fatalf("empty pop must be a no-op, got %v", err)
	}
}
