package match

import (
	"fmt"
	"sync"
	"time"

	"github.com/cardarena/arena-server-go/internal/catalog"
)

// Phase represents a stage within a turn cycle.
type Phase int

const (
	PhaseDecision Phase = iota
	PhaseCommit
	PhaseResolution
	PhaseCleanup
)

var phaseNames = map[Phase]string{
	PhaseDecision:   "DECISION",
	PhaseCommit:     "COMMIT",
	PhaseResolution: "RESOLUTION",
	PhaseCleanup:    "CLEANUP",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Zone names shared with the zone-movement collaborator.
const (
	ZoneHand    = "hand"
	ZoneBoard   = "board"
	ZoneDeck    = "deck"
	ZoneDiscard = "discard"
	ZoneStaging = "staging"
)

// Roll kinds recorded in the roll ledger.
const (
	RollKindSpeed  = "speed"
	RollKindEffect = "effect"
)

// MaxUpkeep is the cap on the per-match upkeep counter.
const MaxUpkeep = 10

// Card is a live card instance inside a match. Every card carries an opaque
// integrity token ("color") issued at deck assignment; clients must echo it
// on every submission.
type Card struct {
	ID        string `json:"id"`
	DefID     string `json:"def_id"`
	Color     string `json:"color"`
	Zone      string `json:"zone"`
	SlotIndex int    `json:"slot_index"`
	Health    int    `json:"health"`

	// Board creature state.
	AttackCommitted      bool `json:"attack_committed"`
	TargetSlotIndex      int  `json:"target_slot_index"`
	TargetSide           Side `json:"target_side"`
	SelectedAbilityIndex int  `json:"selected_ability_index"`
	TauntTurnsRemaining  int  `json:"taunt_turns_remaining"`
	SummonedTurn         int  `json:"summoned_turn"`

	def *catalog.CardDefinition
}

// Definition returns the card's catalog definition.
func (c *Card) Definition() *catalog.CardDefinition {
	return c.def
}

// Side identifies one of the two absolute seats in a match.
type Side int

const (
	SideNone Side = iota
	SideHost
	SideGuest
)

func (s Side) String() string {
	switch s {
	case SideHost:
		return "HOST"
	case SideGuest:
		return "GUEST"
	default:
		return "NONE"
	}
}

// PendingAttack is a committed attack awaiting roll-driven resolution. Its ID
// is derived from (player, attacker slot, target side, target slot) so that a
// resubmission maps onto the same pending entry.
type PendingAttack struct {
	ID           string    `json:"id"`
	PlayerID     string    `json:"player_id"`
	AttackerSlot int       `json:"attacker_slot"`
	TargetSide   Side      `json:"target_side"`
	TargetSlot   int       `json:"target_slot"`
	AbilityIndex int       `json:"ability_index"`
	CommittedAt  time.Time `json:"committed_at"`
}

// AttackID derives the deterministic identifier for a committed attack.
func AttackID(playerID string, attackerSlot int, targetSide Side, targetSlot int) string {
	return fmt.Sprintf("%s:%d:%s:%d", playerID, attackerSlot, targetSide, targetSlot)
}

// SpellResolution tracks the single in-flight spell cast of a match, if any.
type SpellResolution struct {
	SpellCardID          string
	CasterID             string
	CasterSide           Side
	TargetSide           Side
	TargetSlot           int
	LifeStealHealingSide Side
	LifeStealHealingSlot int
	EffectID             string
	AwaitingRoll         bool
	RollValue            int
}

// PlayerState holds one player's piles and per-turn bookkeeping.
type PlayerState struct {
	PlayerID string
	Side     Side
	Hand     []*Card
	Board    []*Card
	Deck     []*Card
	Discard  []*Card

	LastDrawn []string // card IDs drawn most recently, newest last

	PendingAttacks []*PendingAttack
}

// FindBoardSlot returns the creature occupying the given board slot, or nil.
func (ps *PlayerState) FindBoardSlot(slot int) *Card {
	for _, c := range ps.Board {
		if c.SlotIndex == slot {
			return c
		}
	}
	return nil
}

// TauntingSlot returns the lowest-numbered board slot holding a creature with
// active taunt, or -1 when no creature on the board is taunting.
func (ps *PlayerState) TauntingSlot() int {
	best := -1
	for _, c := range ps.Board {
		if c.TauntTurnsRemaining > 0 {
			if best == -1 || c.SlotIndex < best {
				best = c.SlotIndex
			}
		}
	}
	return best
}

// allCards returns every card currently tracked for the player, across piles.
func (ps *PlayerState) allCards() []*Card {
	out := make([]*Card, 0, len(ps.Hand)+len(ps.Board)+len(ps.Deck)+len(ps.Discard))
	out = append(out, ps.Hand...)
	out = append(out, ps.Board...)
	out = append(out, ps.Deck...)
	out = append(out, ps.Discard...)
	return out
}

// Match is one live two-player game instance. All mutation goes through the
// match mutex; operations on different matches proceed independently.
type Match struct {
	ID             string
	HostID         string
	GuestID        string
	TurnNumber     int
	CurrentPhase   Phase
	PhaseStartedAt time.Time
	Upkeep         int
	BoardSlots     int

	ReadyPlayers map[string]bool
	Players      map[string]*PlayerState

	// rollLedger is keyed by attack (or spell) identifier, then roll kind.
	rollLedger map[string]map[string]int
	// executed guards at-most-once application per attack identifier.
	executed map[string]bool

	ActiveSpell *SpellResolution

	CreatedAt time.Time

	mu sync.Mutex
}

// Lock acquires the match's exclusive critical section.
func (m *Match) Lock() { m.mu.Lock() }

// Unlock releases the match's exclusive critical section.
func (m *Match) Unlock() { m.mu.Unlock() }

// RollRequirement names the dice a pending attack needs before resolution:
// always a speed roll, plus an effect roll when the selected ability derives
// its magnitude from one.
type RollRequirement struct {
	AttackID    string
	NeedsEffect bool
}

// PendingRollRequirements returns a snapshot of the roll requirements of
// every pending attack across both players, taken under the match lock.
func (m *Match) PendingRollRequirements() []RollRequirement {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := make([]RollRequirement, 0)
	for _, ps := range m.Players {
		for _, atk := range ps.PendingAttacks {
			req := RollRequirement{AttackID: atk.ID}
			if attacker := ps.FindBoardSlot(atk.AttackerSlot); attacker != nil {
				if def := attacker.Definition(); def != nil && atk.AbilityIndex >= 0 && atk.AbilityIndex < len(def.Abilities) {
					req.NeedsEffect = def.Abilities[atk.AbilityIndex].ValueSource == catalog.ValueSourceRoll
				}
			}
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// PhaseNow returns the current phase under the match lock.
func (m *Match) PhaseNow() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CurrentPhase
}

// TurnNow returns the current turn number under the match lock.
func (m *Match) TurnNow() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TurnNumber
}

// Player returns the player state for the given identity.
func (m *Match) Player(playerID string) (*PlayerState, bool) {
	ps, ok := m.Players[playerID]
	return ps, ok
}

// Opponent returns the player state of the given identity's opponent.
func (m *Match) Opponent(playerID string) (*PlayerState, bool) {
	switch playerID {
	case m.HostID:
		return m.Players[m.GuestID], true
	case m.GuestID:
		return m.Players[m.HostID], true
	default:
		return nil, false
	}
}

// SideOf returns the absolute side of a player identity.
func (m *Match) SideOf(playerID string) Side {
	switch playerID {
	case m.HostID:
		return SideHost
	case m.GuestID:
		return SideGuest
	default:
		return SideNone
	}
}

// PlayerBySide returns the player state seated on an absolute side.
func (m *Match) PlayerBySide(side Side) *PlayerState {
	switch side {
	case SideHost:
		return m.Players[m.HostID]
	case SideGuest:
		return m.Players[m.GuestID]
	default:
		return nil
	}
}

// IsPlayer reports whether the identity participates in this match.
func (m *Match) IsPlayer(playerID string) bool {
	return playerID == m.HostID || playerID == m.GuestID
}
