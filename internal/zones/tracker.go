// Package zones tracks card locations across named zones and implements the
// pickup/putdown movement contract consumed by the match core.
package zones

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Canonical zone names. Callers may register additional zones; movement to an
// unrecognized zone falls back to the card's previous zone.
const (
	ZoneHand    = "hand"
	ZoneBoard   = "board"
	ZoneDeck    = "deck"
	ZoneDiscard = "discard"
	ZoneStaging = "staging"
)

// Location is a card's current placement.
type Location struct {
	Zone      string
	SlotIndex int
}

// entry keeps the live location plus where the card was before its last
// pickup, for putdown fallback.
type entry struct {
	current  Location
	previous Location
	staged   bool
}

// Tracker records the location of every tracked card.
type Tracker struct {
	known  map[string]bool
	cards  map[string]*entry
	mu     sync.Mutex
	logger *zap.Logger
}

// NewTracker creates a tracker recognizing the canonical zones.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		known: map[string]bool{
			ZoneHand:    true,
			ZoneBoard:   true,
			ZoneDeck:    true,
			ZoneDiscard: true,
			ZoneStaging: true,
		},
		cards:  make(map[string]*entry),
		logger: logger,
	}
}

// RegisterZone makes an additional zone name recognized.
func (t *Tracker) RegisterZone(zone string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.known[zone] = true
}

// Place sets a card's location directly, e.g. when a deck is dealt.
func (t *Tracker) Place(cardID, zone string, slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.known[zone] {
		return fmt.Errorf("unrecognized zone %q", zone)
	}
	t.cards[cardID] = &entry{current: Location{Zone: zone, SlotIndex: slot}}
	return nil
}

// Pickup moves a card to the staging zone, clearing its slot and remembering
// its previous zone and slot for a later putdown.
func (t *Tracker) Pickup(cardID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.cards[cardID]
	if !ok {
		return fmt.Errorf("card %s is not tracked", cardID)
	}
	if e.staged {
		return fmt.Errorf("card %s is already staged", cardID)
	}
	e.previous = e.current
	e.current = Location{Zone: ZoneStaging, SlotIndex: -1}
	e.staged = true
	return nil
}

// Putdown moves a staged card to the requested zone and slot. When the
// requested zone is unrecognized the card returns to the zone and slot it
// occupied before the pickup.
func (t *Tracker) Putdown(cardID, zone string, slot int) (Location, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.cards[cardID]
	if !ok {
		return Location{}, fmt.Errorf("card %s is not tracked", cardID)
	}
	if !e.staged {
		return Location{}, fmt.Errorf("card %s was not picked up", cardID)
	}

	dest := Location{Zone: zone, SlotIndex: slot}
	if !t.known[zone] {
		dest = e.previous
		t.logger.Debug("putdown to unrecognized zone, falling back",
			zap.String("card_id", cardID),
			zap.String("requested_zone", zone),
			zap.String("fallback_zone", dest.Zone),
		)
	}
	e.current = dest
	e.staged = false
	return dest, nil
}

// Locate returns a card's current location.
func (t *Tracker) Locate(cardID string) (Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.cards[cardID]
	if !ok {
		return Location{}, false
	}
	return e.current, true
}

// Forget drops a card from tracking, e.g. when its match ends.
func (t *Tracker) Forget(cardID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cards, cardID)
}
