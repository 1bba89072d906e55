package match

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/cardarena/arena-server-go/internal/catalog"
)

// testEnv bundles the managers most tests need.
type testEnv struct {
	store    *Store
	queue    *Queue
	phases   *PhaseMachine
	validate *Validator
	resolver *Resolver
	registry *catalog.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := NewStore(logger)
	return &testEnv{
		store:    store,
		queue:    NewQueue(store, 5, logger),
		phases:   NewPhaseMachine(logger),
		validate: NewValidator(logger),
		resolver: NewResolver(logger),
		registry: catalog.NewDefaultRegistry(logger),
	}
}

// pairMatch runs both players through matchmaking and returns their match.
func pairMatch(t *testing.T, env *testEnv, hostID, guestID string) *Match {
	t.Helper()
	if res := env.queue.FindMatch(hostID); res.Status != StatusSearching {
		t.Fatalf("first caller should be searching, got %s", res.Status)
	}
	res := env.queue.FindMatch(guestID)
	if res.Status != StatusMatched {
		t.Fatalf("second caller should be matched, got %s", res.Status)
	}
	m, ok := env.store.Get(res.MatchID)
	if !ok {
		t.Fatalf("match %s not found in store", res.MatchID)
	}
	return m
}

// placeCreature puts a live creature of the given definition onto a player's
// board slot, bypassing deck assignment.
func placeCreature(t *testing.T, env *testEnv, m *Match, playerID, defID string, slot int) *Card {
	t.Helper()
	def, ok := env.registry.Get(defID)
	if !ok {
		t.Fatalf("unknown card definition %s", defID)
	}
	card := &Card{
		ID:           uuid.New().String(),
		DefID:        def.ID,
		Color:        uuid.New().String(),
		Zone:         ZoneBoard,
		SlotIndex:    slot,
		Health:       def.Health,
		SummonedTurn: m.TurnNumber,
		def:          def,
	}
	ps, ok := m.Player(playerID)
	if !ok {
		t.Fatalf("player %s not in match", playerID)
	}
	ps.Board = append(ps.Board, card)
	return card
}

// placeInHand puts a live card of the given definition into a player's hand.
func placeInHand(t *testing.T, env *testEnv, m *Match, playerID, defID string) *Card {
	t.Helper()
	def, ok := env.registry.Get(defID)
	if !ok {
		t.Fatalf("unknown card definition %s", defID)
	}
	card := &Card{
		ID:        uuid.New().String(),
		DefID:     def.ID,
		Color:     uuid.New().String(),
		Zone:      ZoneHand,
		SlotIndex: -1,
		Health:    def.Health,
		def:       def,
	}
	ps, ok := m.Player(playerID)
	if !ok {
		t.Fatalf("player %s not in match", playerID)
	}
	ps.Hand = append(ps.Hand, card)
	return card
}

// queueAttack registers a pending attack and its speed roll directly.
func queueAttack(t *testing.T, m *Match, playerID string, attackerSlot int, targetSide Side, targetSlot, abilityIndex, speedRoll int) *PendingAttack {
	t.Helper()
	atk := &PendingAttack{
		ID:           AttackID(playerID, attackerSlot, targetSide, targetSlot),
		PlayerID:     playerID,
		AttackerSlot: attackerSlot,
		TargetSide:   targetSide,
		TargetSlot:   targetSlot,
		AbilityIndex: abilityIndex,
	}
	ps, ok := m.Player(playerID)
	if !ok {
		t.Fatalf("player %s not in match", playerID)
	}
	ps.PendingAttacks = append(ps.PendingAttacks, atk)
	if err := m.RecordRoll(atk.ID, RollKindSpeed, speedRoll); err != nil {
		t.Fatalf("failed to record speed roll: %v", err)
	}
	return atk
}

// submittedCards converts live cards to submission entries echoing their
// integrity tokens.
func submittedCards(cards ...*Card) []SubmittedCard {
	out := make([]SubmittedCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, SubmittedCard{ID: c.ID, Color: c.Color, SlotIndex: c.SlotIndex})
	}
	return out
}
