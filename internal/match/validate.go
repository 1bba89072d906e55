package match

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Validation error codes. Returned as data so the gateway can relay the
// failure to the submitting client without unwinding match state.
const (
	ErrCodeUnknownCard   = "unknown_card"
	ErrCodeForgedCard    = "forged_card"
	ErrCodeDuplicateCard = "duplicate_card"
	ErrCodeBadSlot        = "bad_slot"
	ErrCodeIllegalTarget  = "illegal_target"
	ErrCodeIllegalAbility = "illegal_ability"
	ErrCodeTauntRequired  = "taunt_required"
)

// ValidationError is a structured rejection of a submitted turn payload.
// No match state is mutated when one is returned.
type ValidationError struct {
	Code    string `json:"code"`
	CardID  string `json:"card_id,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.CardID != "" {
		return fmt.Sprintf("%s: %s (card %s)", e.Code, e.Message, e.CardID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SubmittedCard is a client's claim about one of its cards.
type SubmittedCard struct {
	ID        string `json:"id"`
	Color     string `json:"color"`
	SlotIndex int    `json:"slot_index"`
}

// SubmittedAttack is a client's declared attack for the turn. The target side
// is relative to the submitting player.
type SubmittedAttack struct {
	AttackerSlot int    `json:"attacker_slot"`
	TargetSide   string `json:"target_side"` // "player" or "opponent"
	TargetSlot   int    `json:"target_slot"`
	AbilityIndex int    `json:"ability_index"`
}

// TurnSubmission is the raw end-of-turn payload sent by a client.
type TurnSubmission struct {
	Hand    []SubmittedCard   `json:"hand"`
	Board   []SubmittedCard   `json:"board"`
	Discard []SubmittedCard   `json:"discard"`
	Attacks []SubmittedAttack `json:"attacks"`
}

// TurnPayload is the server-normalized form of a validated submission: every
// card the server knows for the player reconciled into exactly one pile, and
// every attack checked against live board state.
type TurnPayload struct {
	Hand    []*Card
	Board   []*Card
	Discard []*Card
	Attacks []*PendingAttack
}

// Validator reconciles client-submitted turn payloads against the server's
// last-known card locations.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a payload validator.
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger}
}

// ValidateTurnPayload checks a submission against priorState, the server's
// last-known piles for the player. On success it returns a normalized payload
// ready to be queued for commit. On failure it returns a ValidationError and
// the match is untouched.
//
// A card the server knows that the client silently dropped is a recoverable
// omission: it is auto-moved into the normalized discard. A card the server
// does not know, or whose integrity token does not match, is a rejection.
func (v *Validator) ValidateTurnPayload(sub *TurnSubmission, m *Match, playerID string, priorState *PlayerState, turnNumber int) (*TurnPayload, *ValidationError) {
	m.Lock()
	defer m.Unlock()

	known := make(map[string]*Card)
	for _, c := range priorState.Hand {
		known[c.ID] = c
	}
	for _, c := range priorState.Board {
		known[c.ID] = c
	}
	for _, c := range priorState.Discard {
		known[c.ID] = c
	}

	normalized := &TurnPayload{}
	placed := make(map[string]bool)

	resolve := func(sc SubmittedCard, pile string) (*Card, *ValidationError) {
		card, ok := known[sc.ID]
		if !ok {
			return nil, &ValidationError{
				Code:    ErrCodeUnknownCard,
				CardID:  sc.ID,
				Message: fmt.Sprintf("card %s is not owned by player %s", sc.ID, playerID),
			}
		}
		if sc.Color == "" || sc.Color != card.Color {
			return nil, &ValidationError{
				Code:    ErrCodeForgedCard,
				CardID:  sc.ID,
				Message: "integrity token missing or mismatched",
			}
		}
		if placed[sc.ID] {
			return nil, &ValidationError{
				Code:    ErrCodeDuplicateCard,
				CardID:  sc.ID,
				Message: fmt.Sprintf("card appears in more than one submitted pile (%s)", pile),
			}
		}
		placed[sc.ID] = true
		return card, nil
	}

	for _, sc := range sub.Hand {
		card, verr := resolve(sc, ZoneHand)
		if verr != nil {
			return nil, v.reject(m, playerID, verr)
		}
		normalized.Hand = append(normalized.Hand, card)
	}

	// Slot assignments are applied only after the whole submission has
	// passed; a rejection must leave the server's cards untouched.
	slotFor := make(map[*Card]int)
	usedSlots := make(map[int]bool)
	for _, sc := range sub.Board {
		card, verr := resolve(sc, ZoneBoard)
		if verr != nil {
			return nil, v.reject(m, playerID, verr)
		}
		if sc.SlotIndex < 0 || sc.SlotIndex >= m.BoardSlots {
			return nil, v.reject(m, playerID, &ValidationError{
				Code:    ErrCodeBadSlot,
				CardID:  sc.ID,
				Message: fmt.Sprintf("board slot %d out of range [0,%d)", sc.SlotIndex, m.BoardSlots),
			})
		}
		if usedSlots[sc.SlotIndex] {
			return nil, v.reject(m, playerID, &ValidationError{
				Code:    ErrCodeBadSlot,
				CardID:  sc.ID,
				Message: fmt.Sprintf("board slot %d occupied twice", sc.SlotIndex),
			})
		}
		usedSlots[sc.SlotIndex] = true
		slotFor[card] = sc.SlotIndex
		normalized.Board = append(normalized.Board, card)
	}

	for _, sc := range sub.Discard {
		card, verr := resolve(sc, ZoneDiscard)
		if verr != nil {
			return nil, v.reject(m, playerID, verr)
		}
		normalized.Discard = append(normalized.Discard, card)
	}

	// A known card absent from every submitted pile was discarded client-side
	// without retransmission; normalize it into discard.
	omitted := 0
	for _, card := range priorState.allCards() {
		if card.Zone == ZoneDeck {
			continue
		}
		if !placed[card.ID] {
			normalized.Discard = append(normalized.Discard, card)
			placed[card.ID] = true
			omitted++
		}
	}
	if omitted > 0 {
		v.logger.Debug("recovered omitted cards into discard",
			zap.String("match_id", m.ID),
			zap.String("player", playerID),
			zap.Int("cards", omitted),
		)
	}

	boardBySlot := make(map[int]*Card, len(normalized.Board))
	for _, c := range normalized.Board {
		boardBySlot[slotFor[c]] = c
	}

	for _, sa := range sub.Attacks {
		attacker, ok := boardBySlot[sa.AttackerSlot]
		if !ok {
			return nil, v.reject(m, playerID, &ValidationError{
				Code:    ErrCodeIllegalTarget,
				Message: fmt.Sprintf("attack declared from empty board slot %d", sa.AttackerSlot),
			})
		}
		if sa.TargetSlot < 0 || sa.TargetSlot >= m.BoardSlots {
			return nil, v.reject(m, playerID, &ValidationError{
				Code:    ErrCodeIllegalTarget,
				CardID:  attacker.ID,
				Message: fmt.Sprintf("target slot %d out of range [0,%d)", sa.TargetSlot, m.BoardSlots),
			})
		}
		if def := attacker.Definition(); def == nil || sa.AbilityIndex < 0 || sa.AbilityIndex >= len(def.Abilities) {
			return nil, v.reject(m, playerID, &ValidationError{
				Code:    ErrCodeIllegalAbility,
				CardID:  attacker.ID,
				Message: fmt.Sprintf("attacker has no ability %d", sa.AbilityIndex),
			})
		}

		targetSide, verr := v.absoluteSide(m, playerID, sa.TargetSide)
		if verr != nil {
			return nil, v.reject(m, playerID, verr)
		}

		// Taunt rule: any attack aimed at a side holding an active taunter
		// must target a taunting slot, regardless of the attacker's ability.
		if enemy := m.PlayerBySide(targetSide); enemy != nil && enemy.PlayerID != playerID {
			if tauntSlot := enemy.TauntingSlot(); tauntSlot >= 0 {
				target := enemy.FindBoardSlot(sa.TargetSlot)
				if target == nil || target.TauntTurnsRemaining <= 0 {
					return nil, v.reject(m, playerID, &ValidationError{
						Code:    ErrCodeTauntRequired,
						CardID:  attacker.ID,
						Message: fmt.Sprintf("side has a taunting creature in slot %d; slot %d may not be targeted", tauntSlot, sa.TargetSlot),
					})
				}
			}
		}

		normalized.Attacks = append(normalized.Attacks, &PendingAttack{
			ID:           AttackID(playerID, sa.AttackerSlot, targetSide, sa.TargetSlot),
			PlayerID:     playerID,
			AttackerSlot: sa.AttackerSlot,
			TargetSide:   targetSide,
			TargetSlot:   sa.TargetSlot,
			AbilityIndex: sa.AbilityIndex,
			CommittedAt:  time.Now(),
		})
	}

	for card, slot := range slotFor {
		if card.Zone != ZoneBoard {
			card.SummonedTurn = turnNumber
		}
		card.SlotIndex = slot
	}

	return normalized, nil
}

// absoluteSide maps a submitted relative side label onto an absolute seat.
func (v *Validator) absoluteSide(m *Match, playerID, label string) (Side, *ValidationError) {
	own := m.SideOf(playerID)
	switch label {
	case RelSidePlayer:
		return own, nil
	case RelSideOpponent:
		if own == SideHost {
			return SideGuest, nil
		}
		return SideHost, nil
	default:
		return SideNone, &ValidationError{
			Code:    ErrCodeIllegalTarget,
			Message: fmt.Sprintf("unrecognized target side %q", label),
		}
	}
}

func (v *Validator) reject(m *Match, playerID string, verr *ValidationError) *ValidationError {
	v.logger.Warn("turn payload rejected",
		zap.String("match_id", m.ID),
		zap.String("player", playerID),
		zap.String("code", verr.Code),
		zap.String("card_id", verr.CardID),
	)
	return verr
}
