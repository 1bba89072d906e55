package match

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardarena/arena-server-go/internal/catalog"
	"github.com/cardarena/arena-server-go/internal/zones"
)

// Store owns every live match. Matches are created only through the
// matchmaking queue; the store itself never fabricates one. Card locations
// are mirrored into the zone tracker as they move between piles.
type Store struct {
	matches map[string]*Match
	tracker *zones.Tracker
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewStore creates an empty match store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		matches: make(map[string]*Match),
		tracker: zones.NewTracker(logger),
		logger:  logger,
	}
}

// Tracker exposes the store's zone tracker.
func (s *Store) Tracker() *zones.Tracker {
	return s.tracker
}

// newMatch instantiates a match for a freshly paired host/guest. Called by the
// matchmaking queue under its own lock.
func (s *Store) newMatch(hostID, guestID string, boardSlots int) *Match {
	now := time.Now()
	m := &Match{
		ID:             uuid.New().String(),
		HostID:         hostID,
		GuestID:        guestID,
		TurnNumber:     1,
		CurrentPhase:   PhaseDecision,
		PhaseStartedAt: now,
		Upkeep:         1,
		BoardSlots:     boardSlots,
		ReadyPlayers:   make(map[string]bool),
		Players: map[string]*PlayerState{
			hostID:  {PlayerID: hostID, Side: SideHost},
			guestID: {PlayerID: guestID, Side: SideGuest},
		},
		rollLedger: make(map[string]map[string]int),
		executed:   make(map[string]bool),
		CreatedAt:  now,
	}

	s.mu.Lock()
	s.matches[m.ID] = m
	s.mu.Unlock()

	s.logger.Info("match created",
		zap.String("match_id", m.ID),
		zap.String("host", hostID),
		zap.String("guest", guestID),
	)
	return m
}

// Get retrieves a match by ID.
func (s *Store) Get(matchID string) (*Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	return m, ok
}

// FindByPlayer returns the live match the given player participates in, if any.
func (s *Store) FindByPlayer(playerID string) (*Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.matches {
		if m.IsPlayer(playerID) {
			return m, true
		}
	}
	return nil, false
}

// PhaseStatusForPlayer resolves the live match of a player and returns its
// perspective-normalized snapshot, including the current phase, turn and
// upkeep counters.
func (s *Store) PhaseStatusForPlayer(playerID string) (*MatchView, error) {
	m, ok := s.FindByPlayer(playerID)
	if !ok {
		return nil, fmt.Errorf("no live match for player %s", playerID)
	}
	return SerializeForPlayer(m, playerID)
}

// Remove deletes a finished match and drops its cards from zone tracking.
func (s *Store) Remove(matchID string) {
	s.mu.Lock()
	m, ok := s.matches[matchID]
	delete(s.matches, matchID)
	s.mu.Unlock()

	if ok {
		m.Lock()
		for _, ps := range m.Players {
			for _, c := range ps.allCards() {
				s.tracker.Forget(c.ID)
			}
		}
		m.Unlock()
	}

	s.logger.Info("match removed", zap.String("match_id", matchID))
}

// Count returns the number of live matches.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

// AssignDeck builds a player's deck pile from a validated card-id list,
// issuing a fresh integrity token per card. This is the only way cards enter
// a match.
func (s *Store) AssignDeck(m *Match, playerID string, deckCardIDs []string, registry *catalog.Registry) error {
	m.Lock()
	defer m.Unlock()

	ps, ok := m.Player(playerID)
	if !ok {
		return fmt.Errorf("player %s not part of match %s", playerID, m.ID)
	}
	if len(ps.Deck) > 0 || len(ps.Hand) > 0 || len(ps.Board) > 0 {
		return fmt.Errorf("deck already assigned for player %s", playerID)
	}

	deck := make([]*Card, 0, len(deckCardIDs))
	for _, defID := range deckCardIDs {
		def, ok := registry.Get(defID)
		if !ok {
			return fmt.Errorf("unknown card definition %q in deck", defID)
		}
		deck = append(deck, &Card{
			ID:        uuid.New().String(),
			DefID:     def.ID,
			Color:     uuid.New().String(),
			Zone:      ZoneDeck,
			SlotIndex: -1,
			Health:    def.Health,
			def:       def,
		})
	}
	ps.Deck = deck

	for _, c := range deck {
		if err := s.tracker.Place(c.ID, zones.ZoneDeck, -1); err != nil {
			s.logger.Warn("failed to track card placement",
				zap.String("card_id", c.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("deck assigned",
		zap.String("match_id", m.ID),
		zap.String("player", playerID),
		zap.Int("cards", len(deck)),
	)
	return nil
}

// DrawCards moves up to n cards from the top of the player's deck into hand
// and records them in the last-drawn list.
func (s *Store) DrawCards(m *Match, playerID string, n int) ([]*Card, error) {
	m.Lock()
	defer m.Unlock()

	ps, ok := m.Player(playerID)
	if !ok {
		return nil, fmt.Errorf("player %s not part of match %s", playerID, m.ID)
	}

	drawn := make([]*Card, 0, n)
	ps.LastDrawn = ps.LastDrawn[:0]
	for i := 0; i < n && len(ps.Deck) > 0; i++ {
		card := ps.Deck[0]
		ps.Deck = ps.Deck[1:]
		card.Zone = ZoneHand
		ps.Hand = append(ps.Hand, card)
		ps.LastDrawn = append(ps.LastDrawn, card.ID)
		drawn = append(drawn, card)

		if err := s.tracker.Pickup(card.ID); err != nil {
			s.logger.Warn("failed to track card pickup",
				zap.String("card_id", card.ID),
				zap.Error(err),
			)
		} else if _, err := s.tracker.Putdown(card.ID, zones.ZoneHand, -1); err != nil {
			s.logger.Warn("failed to track card putdown",
				zap.String("card_id", card.ID),
				zap.Error(err),
			)
		}
	}
	return drawn, nil
}

// RecordRoll stores a roll outcome for an attack or spell identifier. A
// second roll for the same (identifier, kind) pair is rejected so the first
// value stands; resolution ordering depends on it being stable.
func (m *Match) RecordRoll(attackID, kind string, value int) error {
	m.Lock()
	defer m.Unlock()
	return m.recordRollLocked(attackID, kind, value)
}

func (m *Match) recordRollLocked(attackID, kind string, value int) error {
	kinds, ok := m.rollLedger[attackID]
	if !ok {
		kinds = make(map[string]int)
		m.rollLedger[attackID] = kinds
	}
	if _, exists := kinds[kind]; exists {
		return fmt.Errorf("roll already recorded for %s/%s", attackID, kind)
	}
	kinds[kind] = value
	return nil
}

// Roll returns the recorded roll for an identifier and kind.
func (m *Match) Roll(attackID, kind string) (int, bool) {
	m.Lock()
	defer m.Unlock()
	return m.rollLocked(attackID, kind)
}

func (m *Match) rollLocked(attackID, kind string) (int, bool) {
	kinds, ok := m.rollLedger[attackID]
	if !ok {
		return 0, false
	}
	v, ok := kinds[kind]
	return v, ok
}

// Executed reports whether an attack identifier has already been applied this
// commit cycle.
func (m *Match) Executed(attackID string) bool {
	m.Lock()
	defer m.Unlock()
	return m.executed[attackID]
}
