package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestFindMatchPairsTwoPlayers verifies the pairing flow: the first caller
// waits, the second is matched immediately, and the first discovers the
// pairing through a status query.
func TestFindMatchPairsTwoPlayers(t *testing.T) {
	env := newTestEnv(t)

	first := env.queue.FindMatch("a")
	assert.Equal(t, StatusSearching, first.Status)
	assert.Empty(t, first.MatchID)

	second := env.queue.FindMatch("b")
	require.Equal(t, StatusMatched, second.Status)
	require.NotEmpty(t, second.MatchID)

	m, ok := env.store.Get(second.MatchID)
	require.True(t, ok)
	assert.Equal(t, 1, m.TurnNumber)
	assert.Equal(t, 1, m.Upkeep)
	assert.Equal(t, PhaseDecision, m.CurrentPhase)
	assert.Empty(t, m.Players["a"].Hand)
	assert.Empty(t, m.Players["b"].Hand)

	// The first caller was paired asynchronously relative to its own call;
	// a status query must reveal the match.
	status := env.queue.Status("a")
	assert.Equal(t, StatusMatched, status.Status)
	assert.Equal(t, second.MatchID, status.MatchID)
}

// TestFindMatchDoesNotQueueTwice verifies a player cannot occupy two queue
// slots concurrently.
func TestFindMatchDoesNotQueueTwice(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, StatusSearching, env.queue.FindMatch("a").Status)
	assert.Equal(t, StatusSearching, env.queue.FindMatch("a").Status)

	// "a" holds a single slot: pairing with "b" consumes it.
	res := env.queue.FindMatch("b")
	require.Equal(t, StatusMatched, res.Status)

	// A third caller starts a fresh search rather than pairing against a
	// stale duplicate entry.
	assert.Equal(t, StatusSearching, env.queue.FindMatch("c").Status)
}

// TestFindMatchReportsExistingMatch verifies a player already in a live match
// is never queued again.
func TestFindMatchReportsExistingMatch(t *testing.T) {
	env := newTestEnv(t)
	m := pairMatch(t, env, "a", "b")

	res := env.queue.FindMatch("b")
	assert.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, m.ID, res.MatchID)
}

// TestMatchCreationOnlyThroughQueue verifies the store has no matches until
// the queue pairs players.
func TestMatchCreationOnlyThroughQueue(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := NewStore(logger)
	queue := NewQueue(store, 5, logger)

	assert.Equal(t, 0, store.Count())
	queue.FindMatch("a")
	assert.Equal(t, 0, store.Count())
	queue.FindMatch("b")
	assert.Equal(t, 1, store.Count())
}

// TestCancelRemovesWaitingPlayer verifies queue cancellation.
func TestCancelRemovesWaitingPlayer(t *testing.T) {
	env := newTestEnv(t)

	env.queue.FindMatch("a")
	assert.True(t, env.queue.Cancel("a"))
	assert.False(t, env.queue.Cancel("a"))

	// "b" now starts a fresh search instead of pairing with "a".
	assert.Equal(t, StatusSearching, env.queue.FindMatch("b").Status)
}
