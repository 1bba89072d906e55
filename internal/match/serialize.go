package match

import (
	"fmt"
	"time"
)

// Relative side labels used in every client-facing snapshot. A client never
// sees the other participant's raw identity.
const (
	RelSidePlayer   = "player"
	RelSideOpponent = "opponent"
)

// CardView is a card as presented to a client.
type CardView struct {
	ID                  string `json:"id"`
	DefID               string `json:"def_id"`
	Color               string `json:"color"`
	Zone                string `json:"zone"`
	SlotIndex           int    `json:"slot_index"`
	Health              int    `json:"health"`
	AttackCommitted     bool   `json:"attack_committed"`
	TargetSide          string `json:"target_side,omitempty"`
	TargetSlotIndex     int    `json:"target_slot_index"`
	TauntTurnsRemaining int    `json:"taunt_turns_remaining"`
	SummonedTurn        int    `json:"summoned_turn"`
}

// SideView is one seat's piles as presented to a client. Hidden piles are
// reduced to counts on the opponent's side.
type SideView struct {
	Hand         []CardView `json:"hand,omitempty"`
	HandCount    int        `json:"hand_count"`
	Board        []CardView `json:"board"`
	DeckCount    int        `json:"deck_count"`
	Discard      []CardView `json:"discard"`
	LastDrawn    []string   `json:"last_drawn,omitempty"`
	Ready        bool       `json:"ready"`
	PendingCount int        `json:"pending_attack_count"`
}

// SpellResolutionView is the in-flight spell as seen from one perspective.
type SpellResolutionView struct {
	SpellCardID          string `json:"spell_card_id"`
	CasterSide           string `json:"caster_side"`
	TargetSide           string `json:"target_side"`
	TargetSlot           int    `json:"target_slot"`
	LifeStealHealingSide string `json:"life_steal_healing_target_side,omitempty"`
	LifeStealHealingSlot int    `json:"life_steal_healing_target_slot"`
	EffectID             string `json:"effect_id"`
	AwaitingRoll         bool   `json:"awaiting_roll"`
}

// MatchView is the perspective-normalized snapshot of a match for one player.
type MatchView struct {
	MatchID        string               `json:"match_id"`
	TurnNumber     int                  `json:"turn_number"`
	Phase          string               `json:"phase"`
	PhaseStartedAt time.Time            `json:"phase_started_at"`
	Upkeep         int                  `json:"upkeep"`
	BoardSlots     int                  `json:"board_slots"`
	Player         SideView             `json:"player"`
	Opponent       SideView             `json:"opponent"`
	ActiveSpell    *SpellResolutionView `json:"active_spell,omitempty"`
}

// relativeLabel maps an absolute side to "player"/"opponent" from the
// requesting player's point of view. Applied uniformly to every field that
// encodes a side, so both participants' views of the same objective fact stay
// consistent from their own perspectives.
func relativeLabel(side Side, requesterSide Side) string {
	if side == SideNone {
		return ""
	}
	if side == requesterSide {
		return RelSidePlayer
	}
	return RelSideOpponent
}

// SerializeForPlayer projects the match into a snapshot for one participant.
// The requester's own seat is always labeled "player" and the other seat
// "opponent", symmetrically for both participants.
func SerializeForPlayer(m *Match, playerID string) (*MatchView, error) {
	m.Lock()
	defer m.Unlock()

	own, ok := m.Player(playerID)
	if !ok {
		return nil, fmt.Errorf("player %s not part of match %s", playerID, m.ID)
	}
	opp, _ := m.Opponent(playerID)
	requesterSide := m.SideOf(playerID)

	view := &MatchView{
		MatchID:        m.ID,
		TurnNumber:     m.TurnNumber,
		Phase:          m.CurrentPhase.String(),
		PhaseStartedAt: m.PhaseStartedAt,
		Upkeep:         m.Upkeep,
		BoardSlots:     m.BoardSlots,
		Player:         serializeOwnSide(m, own, requesterSide),
		Opponent:       serializeOpponentSide(m, opp, requesterSide),
	}

	if m.ActiveSpell != nil {
		res := m.ActiveSpell
		view.ActiveSpell = &SpellResolutionView{
			SpellCardID:          res.SpellCardID,
			CasterSide:           relativeLabel(res.CasterSide, requesterSide),
			TargetSide:           relativeLabel(res.TargetSide, requesterSide),
			TargetSlot:           res.TargetSlot,
			LifeStealHealingSide: relativeLabel(res.LifeStealHealingSide, requesterSide),
			LifeStealHealingSlot: res.LifeStealHealingSlot,
			EffectID:             res.EffectID,
			AwaitingRoll:         res.AwaitingRoll,
		}
	}

	return view, nil
}

// serializeOwnSide includes the full hand and integrity tokens: the owner is
// the one client allowed to see (and required to echo) them.
func serializeOwnSide(m *Match, ps *PlayerState, requesterSide Side) SideView {
	return SideView{
		Hand:         serializeCards(ps.Hand, requesterSide, true),
		HandCount:    len(ps.Hand),
		Board:        serializeCards(ps.Board, requesterSide, true),
		DeckCount:    len(ps.Deck),
		Discard:      serializeCards(ps.Discard, requesterSide, true),
		LastDrawn:    append([]string(nil), ps.LastDrawn...),
		Ready:        m.ReadyPlayers[ps.PlayerID],
		PendingCount: len(ps.PendingAttacks),
	}
}

// serializeOpponentSide hides the hand behind a count and strips integrity
// tokens from everything visible.
func serializeOpponentSide(m *Match, ps *PlayerState, requesterSide Side) SideView {
	if ps == nil {
		return SideView{}
	}
	return SideView{
		HandCount:    len(ps.Hand),
		Board:        serializeCards(ps.Board, requesterSide, false),
		DeckCount:    len(ps.Deck),
		Discard:      serializeCards(ps.Discard, requesterSide, false),
		Ready:        m.ReadyPlayers[ps.PlayerID],
		PendingCount: len(ps.PendingAttacks),
	}
}

func serializeCards(cards []*Card, requesterSide Side, includeColor bool) []CardView {
	out := make([]CardView, 0, len(cards))
	for _, c := range cards {
		cv := CardView{
			ID:                  c.ID,
			DefID:               c.DefID,
			Zone:                c.Zone,
			SlotIndex:           c.SlotIndex,
			Health:              c.Health,
			AttackCommitted:     c.AttackCommitted,
			TargetSide:          relativeLabel(c.TargetSide, requesterSide),
			TargetSlotIndex:     c.TargetSlotIndex,
			TauntTurnsRemaining: c.TauntTurnsRemaining,
			SummonedTurn:        c.SummonedTurn,
		}
		if includeColor {
			cv.Color = c.Color
		}
		out = append(out, cv)
	}
	return out
}
