package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAdvanceToDecisionTurnAndUpkeep verifies turn and upkeep accounting over
// twenty cycles: the turn counter increments by exactly one per transition
// while upkeep caps at ten.
func TestAdvanceToDecisionTurnAndUpkeep(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	require.Equal(t, 1, m.TurnNumber)
	require.Equal(t, 1, m.Upkeep)

	for i := 0; i < 20; i++ {
		prevTurn := m.TurnNumber
		prevUpkeep := m.Upkeep

		env.phases.AdvanceToDecision(m)

		assert.Equal(t, prevTurn+1, m.TurnNumber)
		assert.LessOrEqual(t, m.Upkeep-prevUpkeep, 1)
		assert.LessOrEqual(t, m.Upkeep, MaxUpkeep)
		assert.GreaterOrEqual(t, m.Upkeep, 1)
	}

	assert.Equal(t, 21, m.TurnNumber)
	assert.Equal(t, 10, m.Upkeep)
}

// TestReadyTurnBothPlayersOpensCommit verifies the Decision -> Commit trigger:
// the phase holds until every player has readied.
func TestReadyTurnBothPlayersOpensCommit(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	require.NoError(t, env.phases.ReadyTurn(m, "a", &TurnPayload{}))
	assert.Equal(t, PhaseDecision, m.CurrentPhase)

	require.NoError(t, env.phases.ReadyTurn(m, "b", &TurnPayload{}))
	assert.Equal(t, PhaseCommit, m.CurrentPhase)
}

// TestReadyTurnOutsideDecisionRejected verifies readying is a Decision-phase
// input only.
func TestReadyTurnOutsideDecisionRejected(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	require.NoError(t, env.phases.ReadyTurn(m, "a", &TurnPayload{}))
	require.NoError(t, env.phases.ReadyTurn(m, "b", &TurnPayload{}))
	require.Equal(t, PhaseCommit, m.CurrentPhase)

	assert.Error(t, env.phases.ReadyTurn(m, "a", &TurnPayload{}))
}

// TestResolutionWaitsForRolls verifies Commit -> Resolution requires a speed
// roll for every pending attack.
func TestResolutionWaitsForRolls(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	placeCreature(t, env, m, "a", "ember-wolf", 0)

	require.NoError(t, env.phases.ReadyTurn(m, "a", &TurnPayload{
		Attacks: []*PendingAttack{{
			ID:           AttackID("a", 0, SideGuest, 0),
			PlayerID:     "a",
			AttackerSlot: 0,
			TargetSide:   SideGuest,
			TargetSlot:   0,
			AbilityIndex: 0,
		}},
	}))
	require.NoError(t, env.phases.ReadyTurn(m, "b", &TurnPayload{}))
	require.Equal(t, PhaseCommit, m.CurrentPhase)

	assert.False(t, env.phases.TryBeginResolution(m), "resolution must wait for the speed roll")

	require.NoError(t, m.RecordRoll(AttackID("a", 0, SideGuest, 0), RollKindSpeed, 4))
	assert.True(t, env.phases.TryBeginResolution(m))
	assert.Equal(t, PhaseResolution, m.CurrentPhase)

	require.NoError(t, env.phases.FinishResolution(m))
	assert.Equal(t, PhaseCleanup, m.CurrentPhase)
}

// TestResolutionWaitsForSpellRoll verifies an in-flight spell blocks the
// Commit -> Resolution transition until its roll arrives.
func TestResolutionWaitsForSpellRoll(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	placeCreature(t, env, m, "b", "ember-wolf", 0)
	spell := placeInHand(t, env, m, "a", "arc-bolt")
	require.NoError(t, env.resolver.BeginSpellResolution(m, "a", spell.ID, 0, -1))

	require.NoError(t, env.phases.ReadyTurn(m, "a", &TurnPayload{}))
	require.NoError(t, env.phases.ReadyTurn(m, "b", &TurnPayload{}))

	assert.False(t, env.phases.TryBeginResolution(m))

	require.NoError(t, env.resolver.CompleteSpellResolution(m, 3))
	assert.True(t, env.phases.TryBeginResolution(m))
}

// TestTauntDecaysAtTurnBoundary verifies taunt timers tick down only on the
// Decision transition and never go negative.
func TestTauntDecaysAtTurnBoundary(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	sentinel := placeCreature(t, env, m, "a", "stone-sentinel", 0)
	sentinel.TauntTurnsRemaining = 2

	env.phases.AdvanceToDecision(m)
	assert.Equal(t, 1, sentinel.TauntTurnsRemaining)

	env.phases.AdvanceToDecision(m)
	assert.Equal(t, 0, sentinel.TauntTurnsRemaining)

	env.phases.AdvanceToDecision(m)
	assert.Equal(t, 0, sentinel.TauntTurnsRemaining)
}

// TestAdvanceToDecisionResetsCycleState verifies readiness, pending attacks
// and the per-cycle ledgers reset when a new Decision phase opens.
func TestAdvanceToDecisionResetsCycleState(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	placeCreature(t, env, m, "a", "ember-wolf", 0)
	atk := queueAttack(t, m, "a", 0, SideGuest, 0, 0, 5)

	require.NoError(t, env.phases.ReadyTurn(m, "a", &TurnPayload{}))
	require.NoError(t, env.phases.ReadyTurn(m, "b", &TurnPayload{}))
	env.resolver.ApplyCommitEffects(m)
	require.True(t, m.Executed(atk.ID))

	env.phases.AdvanceToDecision(m)

	assert.Empty(t, m.ReadyPlayers)
	assert.Empty(t, m.Players["a"].PendingAttacks)
	assert.False(t, m.Executed(atk.ID))
	_, ok := m.Roll(atk.ID, RollKindSpeed)
	assert.False(t, ok)
}
