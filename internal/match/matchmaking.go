package match

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// MatchmakeStatus reports the outcome of a matchmaking request.
type MatchmakeStatus string

const (
	StatusSearching MatchmakeStatus = "searching"
	StatusMatched   MatchmakeStatus = "matched"
)

// MatchmakeResult is returned from FindMatch and Status queries.
type MatchmakeResult struct {
	Status  MatchmakeStatus `json:"status"`
	MatchID string          `json:"match_id,omitempty"`
}

// Queue pairs waiting players into new matches. Pairing is globally
// serialized; everything after pairing happens under the match's own lock.
type Queue struct {
	store      *Store
	boardSlots int

	waitingID string
	waitedAt  time.Time
	// paired lets the first caller discover its pairing on a later status
	// query, since match creation happens during the second caller's request.
	paired map[string]string // playerID -> matchID

	mu     sync.Mutex
	logger *zap.Logger
}

// NewQueue creates a matchmaking queue feeding the given store.
func NewQueue(store *Store, boardSlots int, logger *zap.Logger) *Queue {
	return &Queue{
		store:      store,
		boardSlots: boardSlots,
		paired:     make(map[string]string),
		logger:     logger,
	}
}

// FindMatch enqueues the caller when nobody is waiting and reports searching.
// When another player is already waiting it pairs the two, creates the match
// and reports matched with its ID. A player already queued or already paired
// is not queued twice; it gets its current status instead.
func (q *Queue) FindMatch(playerID string) MatchmakeResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if matchID, ok := q.paired[playerID]; ok {
		delete(q.paired, playerID)
		return MatchmakeResult{Status: StatusMatched, MatchID: matchID}
	}
	if m, ok := q.store.FindByPlayer(playerID); ok {
		return MatchmakeResult{Status: StatusMatched, MatchID: m.ID}
	}

	if q.waitingID == "" || q.waitingID == playerID {
		q.waitingID = playerID
		if q.waitedAt.IsZero() {
			q.waitedAt = time.Now()
		}
		return MatchmakeResult{Status: StatusSearching}
	}

	host := q.waitingID
	hostWaited := time.Since(q.waitedAt)
	q.waitingID = ""
	q.waitedAt = time.Time{}

	m := q.store.newMatch(host, playerID, q.boardSlots)
	q.paired[host] = m.ID

	q.logger.Info("players paired",
		zap.String("match_id", m.ID),
		zap.String("host", host),
		zap.String("guest", playerID),
		zap.Duration("host_waited", hostWaited),
	)

	return MatchmakeResult{Status: StatusMatched, MatchID: m.ID}
}

// Status reports the caller's current matchmaking state without enqueueing it.
// This is how the first of a pair discovers that it has been matched.
func (q *Queue) Status(playerID string) MatchmakeResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if matchID, ok := q.paired[playerID]; ok {
		delete(q.paired, playerID)
		return MatchmakeResult{Status: StatusMatched, MatchID: matchID}
	}
	if m, ok := q.store.FindByPlayer(playerID); ok {
		return MatchmakeResult{Status: StatusMatched, MatchID: m.ID}
	}
	return MatchmakeResult{Status: StatusSearching}
}

// Cancel removes a waiting player from the queue. Returns false when the
// player was not waiting.
func (q *Queue) Cancel(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waitingID != playerID {
		return false
	}
	q.waitingID = ""
	q.waitedAt = time.Time{}

	q.logger.Debug("matchmaking cancelled", zap.String("player", playerID))
	return true
}
