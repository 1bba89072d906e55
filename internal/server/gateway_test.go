package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardarena/arena-server-go/internal/catalog"
	"github.com/cardarena/arena-server-go/internal/config"
	"github.com/cardarena/arena-server-go/internal/match"
	"github.com/cardarena/arena-server-go/internal/user"
)

// newTestGateway builds a gateway with every manager wired, no live sockets.
// Outbound messages are dropped by the hub since no client is registered,
// which is fine here: assertions read match state through the store.
func newTestGateway(t *testing.T) (*Gateway, *match.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := match.NewStore(logger)
	users, err := user.NewDefaultManager(logger)
	require.NoError(t, err)

	cfg := config.GameConfig{BoardSlots: 5, OpeningHand: 4, DiceSides: 6}
	g := NewGateway(
		cfg,
		NewHub(logger),
		store,
		match.NewQueue(store, cfg.BoardSlots, logger),
		match.NewPhaseMachine(logger),
		match.NewValidator(logger),
		match.NewResolver(logger),
		catalog.NewDefaultRegistry(logger),
		users,
		1, // fixed seed keeps rolls reproducible
		logger,
	)
	return g, store
}

func dispatch(t *testing.T, g *Gateway, playerID, msgType string, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	env, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	require.NoError(t, err)
	g.handleMessage(&Client{playerID: playerID}, env)
}

// TestGatewayFullTurnCycle drives two players through matchmaking, deck
// assignment, a summon turn and an attack turn, entirely through the message
// dispatcher.
func TestGatewayFullTurnCycle(t *testing.T) {
	g, store := newTestGateway(t)

	dispatch(t, g, "alice", msgFindMatch, nil)
	dispatch(t, g, "bob", msgFindMatch, nil)

	m, ok := store.FindByPlayer("alice")
	require.True(t, ok)
	require.Equal(t, 1, m.TurnNow())

	dispatch(t, g, "alice", msgAssignDeck, assignDeckRequest{Deck: []string{"ember-wolf"}, Draw: 1})
	dispatch(t, g, "bob", msgAssignDeck, assignDeckRequest{Deck: []string{"stone-sentinel"}, Draw: 1})

	aliceCard := m.Players["alice"].Hand[0]
	bobCard := m.Players["bob"].Hand[0]

	// Turn 1: both players summon their creature into slot 0.
	dispatch(t, g, "alice", msgSubmitTurn, match.TurnSubmission{
		Board: []match.SubmittedCard{{ID: aliceCard.ID, Color: aliceCard.Color, SlotIndex: 0}},
	})
	dispatch(t, g, "bob", msgSubmitTurn, match.TurnSubmission{
		Board: []match.SubmittedCard{{ID: bobCard.ID, Color: bobCard.Color, SlotIndex: 0}},
	})

	// With no attacks pending, the cycle runs straight through to the next
	// Decision phase.
	assert.Equal(t, 2, m.TurnNow())
	assert.Equal(t, match.PhaseDecision, m.PhaseNow())
	assert.Equal(t, match.ZoneBoard, aliceCard.Zone)
	assert.Equal(t, 1, aliceCard.SummonedTurn)

	// Turn 2: alice attacks bob's creature with her fixed-damage ability.
	dispatch(t, g, "alice", msgSubmitTurn, match.TurnSubmission{
		Board: []match.SubmittedCard{{ID: aliceCard.ID, Color: aliceCard.Color, SlotIndex: 0}},
		Attacks: []match.SubmittedAttack{
			{AttackerSlot: 0, TargetSide: "opponent", TargetSlot: 0, AbilityIndex: 0},
		},
	})
	dispatch(t, g, "bob", msgSubmitTurn, match.TurnSubmission{
		Board: []match.SubmittedCard{{ID: bobCard.ID, Color: bobCard.Color, SlotIndex: 0}},
	})

	assert.Equal(t, 3, m.TurnNow())
	assert.Equal(t, match.PhaseDecision, m.PhaseNow())
	assert.Equal(t, 8, bobCard.Health, "ember wolf deals 2 fixed damage")
	assert.Equal(t, 10, aliceCard.Health)
}

// TestGatewayRejectsForgedSubmission confirms a tampered integrity token is
// answered with a rejection and leaves the match untouched.
func TestGatewayRejectsForgedSubmission(t *testing.T) {
	g, store := newTestGateway(t)

	dispatch(t, g, "alice", msgFindMatch, nil)
	dispatch(t, g, "bob", msgFindMatch, nil)
	dispatch(t, g, "alice", msgAssignDeck, assignDeckRequest{Deck: []string{"ember-wolf"}, Draw: 1})

	m, ok := store.FindByPlayer("alice")
	require.True(t, ok)
	card := m.Players["alice"].Hand[0]

	dispatch(t, g, "alice", msgSubmitTurn, match.TurnSubmission{
		Board: []match.SubmittedCard{{ID: card.ID, Color: "forged", SlotIndex: 0}},
	})

	assert.Equal(t, 1, m.TurnNow())
	assert.Equal(t, match.ZoneHand, card.Zone)
	assert.False(t, m.ReadyPlayers["alice"])
}

// TestGatewayUnknownMessageType confirms unrecognized frames do not panic.
func TestGatewayUnknownMessageType(t *testing.T) {
	g, _ := newTestGateway(t)
	dispatch(t, g, "alice", "no_such_type", nil)
}
