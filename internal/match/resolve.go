package match

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cardarena/arena-server-go/internal/catalog"
)

// Resolver applies every player's pending committed attacks for the current
// cycle, exactly once each, in strictly descending order of their speed roll.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a commit resolution engine.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// ApplyCommitEffects resolves the pending attacks of both players against
// live board state. Ordering is strictly descending by the attack's speed
// roll; equal rolls break on earlier submission time, then on ascending
// attack identifier, so resolution is reproducible.
//
// Target selection for damage effects is recomputed at application time: if
// the intended side holds an active taunter at that moment (possibly granted
// by a higher-initiative ability earlier in this very batch), the effect is
// redirected to the lowest-slot taunting creature.
//
// The execution ledger makes re-invocation for the same cycle a no-op per
// attack identifier. An attack that cannot be applied (bad ability selection,
// missing effect roll) fizzles without touching the board; it never stops the
// remaining attacks in the batch from resolving.
func (r *Resolver) ApplyCommitEffects(m *Match) {
	m.Lock()
	defer m.Unlock()

	ordered := r.orderedAttacksLocked(m)

	for _, atk := range ordered {
		if m.executed[atk.ID] {
			continue
		}
		if err := r.applyAttackLocked(m, atk); err != nil {
			r.logger.Warn("attack fizzled",
				zap.String("match_id", m.ID),
				zap.String("attack_id", atk.ID),
				zap.Error(err),
			)
		}
		m.executed[atk.ID] = true
	}
}

// orderedAttacksLocked flattens both players' pending attacks and sorts them
// into resolution order.
func (r *Resolver) orderedAttacksLocked(m *Match) []*PendingAttack {
	ordered := make([]*PendingAttack, 0)
	for _, ps := range m.Players {
		ordered = append(ordered, ps.PendingAttacks...)
	}

	speed := func(a *PendingAttack) int {
		v, _ := m.rollLocked(a.ID, RollKindSpeed)
		return v
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := speed(ordered[i]), speed(ordered[j])
		if si != sj {
			return si > sj
		}
		if !ordered[i].CommittedAt.Equal(ordered[j].CommittedAt) {
			return ordered[i].CommittedAt.Before(ordered[j].CommittedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func (r *Resolver) applyAttackLocked(m *Match, atk *PendingAttack) error {
	ps, ok := m.Player(atk.PlayerID)
	if !ok {
		return fmt.Errorf("attack %s references unknown player %s", atk.ID, atk.PlayerID)
	}
	attacker := ps.FindBoardSlot(atk.AttackerSlot)
	if attacker == nil {
		// Attacker left the board before its turn came up (killed by a
		// faster attack). The attack fizzles.
		r.logger.Debug("attack fizzled, attacker no longer on board",
			zap.String("match_id", m.ID),
			zap.String("attack_id", atk.ID),
		)
		return nil
	}

	def := attacker.Definition()
	if def == nil || atk.AbilityIndex < 0 || atk.AbilityIndex >= len(def.Abilities) {
		return fmt.Errorf("attack %s selects ability %d not present on card %s", atk.ID, atk.AbilityIndex, attacker.ID)
	}
	ability := def.Abilities[atk.AbilityIndex]

	switch ability.EffectID {
	case catalog.EffectTaunt:
		// Taunt has no direct target: it arms the caster's own creature.
		attacker.TauntTurnsRemaining = ability.DurationTurns
		r.logger.Debug("taunt applied",
			zap.String("match_id", m.ID),
			zap.String("attack_id", atk.ID),
			zap.Int("slot", attacker.SlotIndex),
			zap.Int("duration_turns", ability.DurationTurns),
		)
		return nil

	case catalog.EffectDamageEnemy, catalog.EffectLifeSteal:
		value, err := r.effectValueLocked(m, atk, attacker, ability)
		if err != nil {
			return err
		}
		return r.applyDamageLocked(m, atk, value, ability.EffectID == catalog.EffectLifeSteal, attacker)

	default:
		return fmt.Errorf("attack %s uses unrecognized effect %q", atk.ID, ability.EffectID)
	}
}

// effectValueLocked resolves an ability's magnitude per its value source.
func (r *Resolver) effectValueLocked(m *Match, atk *PendingAttack, attacker *Card, ability catalog.AbilityDefinition) (int, error) {
	switch ability.ValueSource {
	case catalog.ValueSourceFixed:
		return ability.ValueFixed, nil
	case catalog.ValueSourceRoll:
		v, ok := m.rollLocked(atk.ID, RollKindEffect)
		if !ok {
			return 0, fmt.Errorf("attack %s requires an effect roll that was never recorded", atk.ID)
		}
		return v, nil
	case catalog.ValueSourceStat:
		switch ability.ValueStat {
		case "health":
			return attacker.Health, nil
		default:
			return 0, fmt.Errorf("attack %s derives its value from unknown stat %q", atk.ID, ability.ValueStat)
		}
	case catalog.ValueSourceNone:
		return 0, nil
	default:
		return 0, fmt.Errorf("attack %s has unrecognized value source %q", atk.ID, ability.ValueSource)
	}
}

// applyDamageLocked applies a damage effect with taunt redirection computed
// against the board as it stands right now, not as declared.
func (r *Resolver) applyDamageLocked(m *Match, atk *PendingAttack, value int, lifeSteal bool, attacker *Card) error {
	defender := m.PlayerBySide(atk.TargetSide)
	if defender == nil {
		return fmt.Errorf("attack %s targets vacant side %s", atk.ID, atk.TargetSide)
	}

	targetSlot := atk.TargetSlot
	if tauntSlot := defender.TauntingSlot(); tauntSlot >= 0 {
		if targetSlot != tauntSlot {
			r.logger.Debug("damage redirected to taunting creature",
				zap.String("match_id", m.ID),
				zap.String("attack_id", atk.ID),
				zap.Int("declared_slot", atk.TargetSlot),
				zap.Int("redirected_slot", tauntSlot),
			)
		}
		targetSlot = tauntSlot
	}

	target := defender.FindBoardSlot(targetSlot)
	if target == nil {
		r.logger.Debug("damage fizzled, target slot empty",
			zap.String("match_id", m.ID),
			zap.String("attack_id", atk.ID),
			zap.Int("slot", targetSlot),
		)
		return nil
	}

	target.Health -= value
	if lifeSteal {
		attacker.Health += value
	}

	r.logger.Debug("damage applied",
		zap.String("match_id", m.ID),
		zap.String("attack_id", atk.ID),
		zap.String("target_card", target.ID),
		zap.Int("value", value),
		zap.Int("health_after", target.Health),
		zap.Bool("life_steal", lifeSteal),
	)

	if target.Health <= 0 {
		r.removeFromBoardLocked(m, defender, target)
	}
	return nil
}

// removeFromBoardLocked moves a dead creature off the board and onto the top
// of its owner's discard pile, consistent with the zone model.
func (r *Resolver) removeFromBoardLocked(m *Match, owner *PlayerState, card *Card) {
	for i, c := range owner.Board {
		if c.ID == card.ID {
			owner.Board = append(owner.Board[:i], owner.Board[i+1:]...)
			break
		}
	}
	card.Zone = ZoneDiscard
	card.SlotIndex = -1
	card.TauntTurnsRemaining = 0
	card.AttackCommitted = false
	owner.Discard = append(owner.Discard, card)

	r.logger.Debug("creature died",
		zap.String("match_id", m.ID),
		zap.String("card_id", card.ID),
		zap.String("owner", owner.PlayerID),
	)
}
