package match

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cardarena/arena-server-go/internal/catalog"
)

// BeginSpellResolution starts a roll-driven spell cast. A match carries at
// most one in-flight spell resolution; a second cast before the first
// completes is rejected. The spell stays in the caster's hand until the roll
// arrives and the effect applies.
func (r *Resolver) BeginSpellResolution(m *Match, casterID, spellCardID string, targetSlot, healingSlot int) error {
	m.Lock()
	defer m.Unlock()

	if m.ActiveSpell != nil {
		return fmt.Errorf("match %s already has a spell resolution in flight", m.ID)
	}
	caster, ok := m.Player(casterID)
	if !ok {
		return fmt.Errorf("player %s not part of match %s", casterID, m.ID)
	}

	var spell *Card
	for _, c := range caster.Hand {
		if c.ID == spellCardID {
			spell = c
			break
		}
	}
	if spell == nil {
		return fmt.Errorf("spell card %s not in hand of player %s", spellCardID, casterID)
	}
	def := spell.Definition()
	if def == nil || def.Kind != catalog.KindSpell || len(def.Abilities) == 0 {
		return fmt.Errorf("card %s is not a castable spell", spellCardID)
	}
	if targetSlot < 0 || targetSlot >= m.BoardSlots {
		return fmt.Errorf("spell target slot %d out of range [0,%d)", targetSlot, m.BoardSlots)
	}

	casterSide := m.SideOf(casterID)
	targetSide := SideHost
	if casterSide == SideHost {
		targetSide = SideGuest
	}

	m.ActiveSpell = &SpellResolution{
		SpellCardID:          spellCardID,
		CasterID:             casterID,
		CasterSide:           casterSide,
		TargetSide:           targetSide,
		TargetSlot:           targetSlot,
		LifeStealHealingSide: casterSide,
		LifeStealHealingSlot: healingSlot,
		EffectID:             def.Abilities[0].EffectID,
		AwaitingRoll:         true,
	}

	r.logger.Debug("spell resolution started",
		zap.String("match_id", m.ID),
		zap.String("spell_card", spellCardID),
		zap.String("caster", casterID),
		zap.Int("target_slot", targetSlot),
	)
	return nil
}

// CompleteSpellResolution supplies the spell's effect roll and applies the
// effect. The roll is recorded in the roll ledger under the spell card ID, so
// a duplicate completion is rejected. The spent spell moves to the caster's
// discard and the in-flight slot is freed.
func (r *Resolver) CompleteSpellResolution(m *Match, rollValue int) error {
	m.Lock()
	defer m.Unlock()

	res := m.ActiveSpell
	if res == nil {
		return fmt.Errorf("match %s has no spell resolution in flight", m.ID)
	}
	if !res.AwaitingRoll {
		return fmt.Errorf("spell %s is not awaiting a roll", res.SpellCardID)
	}
	if err := m.recordRollLocked(res.SpellCardID, RollKindEffect, rollValue); err != nil {
		return err
	}
	res.AwaitingRoll = false
	res.RollValue = rollValue

	caster, ok := m.Player(res.CasterID)
	if !ok {
		return fmt.Errorf("spell caster %s not part of match %s", res.CasterID, m.ID)
	}

	defender := m.PlayerBySide(res.TargetSide)
	targetSlot := res.TargetSlot
	if tauntSlot := defender.TauntingSlot(); tauntSlot >= 0 {
		targetSlot = tauntSlot
	}
	if target := defender.FindBoardSlot(targetSlot); target != nil {
		target.Health -= rollValue
		if res.EffectID == catalog.EffectLifeSteal {
			if healed := caster.FindBoardSlot(res.LifeStealHealingSlot); healed != nil {
				healed.Health += rollValue
			}
		}
		if target.Health <= 0 {
			r.removeFromBoardLocked(m, defender, target)
		}
	}

	// The spent spell leaves the hand for the discard pile.
	for i, c := range caster.Hand {
		if c.ID == res.SpellCardID {
			caster.Hand = append(caster.Hand[:i], caster.Hand[i+1:]...)
			c.Zone = ZoneDiscard
			c.SlotIndex = -1
			caster.Discard = append(caster.Discard, c)
			break
		}
	}

	m.ActiveSpell = nil

	r.logger.Debug("spell resolution completed",
		zap.String("match_id", m.ID),
		zap.String("spell_card", res.SpellCardID),
		zap.Int("roll", rollValue),
	)
	return nil
}
