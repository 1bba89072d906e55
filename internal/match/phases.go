package match

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PhaseMachine drives a match through its Decision -> Commit -> Resolution ->
// Cleanup cycle. A phase only advances once every player has supplied the
// phase's required input: a readied turn payload for Decision, a speed roll
// for every pending attack (and the active spell) for Commit.
type PhaseMachine struct {
	logger *zap.Logger
}

// NewPhaseMachine creates a phase machine.
func NewPhaseMachine(logger *zap.Logger) *PhaseMachine {
	return &PhaseMachine{logger: logger}
}

// ReadyTurn applies a validated, normalized payload for the player and marks
// its turn as readied. When both players have readied, the match moves from
// Decision to Commit.
func (pm *PhaseMachine) ReadyTurn(m *Match, playerID string, normalized *TurnPayload) error {
	m.Lock()
	defer m.Unlock()

	if m.CurrentPhase != PhaseDecision {
		return fmt.Errorf("match %s is in %s, not %s", m.ID, m.CurrentPhase, PhaseDecision)
	}
	ps, ok := m.Player(playerID)
	if !ok {
		return fmt.Errorf("player %s not part of match %s", playerID, m.ID)
	}

	applyNormalizedPayload(ps, normalized)
	m.ReadyPlayers[playerID] = true

	pm.logger.Debug("turn readied",
		zap.String("match_id", m.ID),
		zap.String("player", playerID),
		zap.Int("pending_attacks", len(ps.PendingAttacks)),
	)

	if len(m.ReadyPlayers) >= len(m.Players) {
		pm.setPhaseLocked(m, PhaseCommit)
	}
	return nil
}

// applyNormalizedPayload installs the validator's reconciled piles and queues
// the validated attacks. Resubmitted attacks land on their existing entry.
func applyNormalizedPayload(ps *PlayerState, normalized *TurnPayload) {
	ps.Hand = normalized.Hand
	ps.Board = normalized.Board
	ps.Discard = normalized.Discard
	for _, c := range ps.Hand {
		c.Zone = ZoneHand
	}
	for _, c := range ps.Board {
		c.Zone = ZoneBoard
	}
	for _, c := range ps.Discard {
		c.Zone = ZoneDiscard
		c.SlotIndex = -1
	}

	for _, atk := range normalized.Attacks {
		replaced := false
		for i, existing := range ps.PendingAttacks {
			if existing.ID == atk.ID {
				ps.PendingAttacks[i] = atk
				replaced = true
				break
			}
		}
		if !replaced {
			ps.PendingAttacks = append(ps.PendingAttacks, atk)
		}
		if attacker := ps.FindBoardSlot(atk.AttackerSlot); attacker != nil {
			attacker.AttackCommitted = true
			attacker.TargetSide = atk.TargetSide
			attacker.TargetSlotIndex = atk.TargetSlot
			attacker.SelectedAbilityIndex = atk.AbilityIndex
		}
	}
}

// AllRollsIn reports whether every pending attack has a speed roll and the
// active spell, if any, has its effect roll.
func (pm *PhaseMachine) AllRollsIn(m *Match) bool {
	m.Lock()
	defer m.Unlock()
	return pm.allRollsInLocked(m)
}

func (pm *PhaseMachine) allRollsInLocked(m *Match) bool {
	for _, ps := range m.Players {
		for _, atk := range ps.PendingAttacks {
			if _, ok := m.rollLocked(atk.ID, RollKindSpeed); !ok {
				return false
			}
		}
	}
	if m.ActiveSpell != nil && m.ActiveSpell.AwaitingRoll {
		return false
	}
	return true
}

// TryBeginResolution moves Commit to Resolution once all required rolls are
// collected. It reports whether the transition happened.
func (pm *PhaseMachine) TryBeginResolution(m *Match) bool {
	m.Lock()
	defer m.Unlock()

	if m.CurrentPhase != PhaseCommit {
		return false
	}
	if !pm.allRollsInLocked(m) {
		return false
	}
	pm.setPhaseLocked(m, PhaseResolution)
	return true
}

// FinishResolution moves Resolution to Cleanup after effects have applied.
func (pm *PhaseMachine) FinishResolution(m *Match) error {
	m.Lock()
	defer m.Unlock()

	if m.CurrentPhase != PhaseResolution {
		return fmt.Errorf("match %s is in %s, not %s", m.ID, m.CurrentPhase, PhaseResolution)
	}
	pm.setPhaseLocked(m, PhaseCleanup)
	return nil
}

// AdvanceToDecision closes the current cycle and opens the next Decision
// phase: the turn number increments by one, upkeep increments clamped to
// MaxUpkeep, readiness and per-cycle ledgers reset, and taunt timers tick
// down (never below zero).
func (pm *PhaseMachine) AdvanceToDecision(m *Match) {
	m.Lock()
	defer m.Unlock()

	m.TurnNumber++
	if m.Upkeep < MaxUpkeep {
		m.Upkeep++
	}
	m.ReadyPlayers = make(map[string]bool)
	m.rollLedger = make(map[string]map[string]int)
	m.executed = make(map[string]bool)

	for _, ps := range m.Players {
		ps.PendingAttacks = nil
		for _, c := range ps.Board {
			c.AttackCommitted = false
			if c.TauntTurnsRemaining > 0 {
				c.TauntTurnsRemaining--
			}
		}
	}

	pm.setPhaseLocked(m, PhaseDecision)

	pm.logger.Debug("decision phase opened",
		zap.String("match_id", m.ID),
		zap.Int("turn", m.TurnNumber),
		zap.Int("upkeep", m.Upkeep),
	)
}

func (pm *PhaseMachine) setPhaseLocked(m *Match, phase Phase) {
	from := m.CurrentPhase
	m.CurrentPhase = phase
	m.PhaseStartedAt = time.Now()

	pm.logger.Debug("phase transition",
		zap.String("match_id", m.ID),
		zap.String("from", from.String()),
		zap.String("to", phase.String()),
		zap.Int("turn", m.TurnNumber),
	)
}
