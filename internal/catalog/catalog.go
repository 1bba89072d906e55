package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CardKind distinguishes the two playable card classes.
type CardKind string

const (
	KindCreature CardKind = "CREATURE"
	KindSpell    CardKind = "SPELL"
)

// Effect IDs understood by the resolution engine.
const (
	EffectTaunt       = "taunt"
	EffectDamageEnemy = "damage_enemy"
	EffectLifeSteal   = "life_steal"
)

// ValueSource describes where an ability effect gets its magnitude from.
type ValueSource string

const (
	ValueSourceNone  ValueSource = "none"
	ValueSourceFixed ValueSource = "fixed"
	ValueSourceRoll  ValueSource = "roll"
	ValueSourceStat  ValueSource = "stat"
)

// TargetRule describes what an ability may be aimed at.
type TargetRule string

const (
	TargetNone          TargetRule = "none"
	TargetEnemyCreature TargetRule = "enemy_creature"
	TargetSelf          TargetRule = "self"
)

// AbilityDefinition is the static description of a single card ability.
type AbilityDefinition struct {
	EffectID      string
	ValueSource   ValueSource
	ValueFixed    int
	ValueStat     string
	DurationTurns int
	Target        TargetRule
}

// CardDefinition is the static description of a card. Definitions are
// read-only input to the match core; live cards reference them by ID.
type CardDefinition struct {
	ID        string
	Name      string
	Kind      CardKind
	Health    int
	Abilities []AbilityDefinition
}

// Registry holds all known card definitions.
type Registry struct {
	mu     sync.RWMutex
	cards  map[string]*CardDefinition
	logger *zap.Logger
}

// NewRegistry creates an empty card registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		cards:  make(map[string]*CardDefinition),
		logger: logger,
	}
}

// NewDefaultRegistry creates a registry preloaded with the built-in card set.
func NewDefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for _, def := range defaultCards() {
		r.Add(def)
	}
	return r
}

// Add registers a card definition, replacing any prior definition with the same ID.
func (r *Registry) Add(def *CardDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[def.ID] = def
}

// Get looks up a card definition by ID.
func (r *Registry) Get(cardDefID string) (*CardDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.cards[cardDefID]
	return def, ok
}

// Count returns the number of registered definitions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cards)
}

// LoadCSV loads card definitions from a CSV export.
// Expected columns: id,name,kind,health,effect_id,value_source,value_fixed,value_stat,duration_turns,target
// A card with two abilities appears on two rows sharing the same id.
func (r *Registry) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open card export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to parse card export: %w", err)
	}

	loaded := 0
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "id") {
			continue // header row
		}
		if len(rec) < 10 {
			return fmt.Errorf("card export row %d: expected 10 columns, got %d", i+1, len(rec))
		}

		id := strings.TrimSpace(rec[0])
		health, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return fmt.Errorf("card export row %d: invalid health %q", i+1, rec[3])
		}

		r.mu.Lock()
		def, exists := r.cards[id]
		if !exists {
			def = &CardDefinition{
				ID:     id,
				Name:   strings.TrimSpace(rec[1]),
				Kind:   CardKind(strings.ToUpper(strings.TrimSpace(rec[2]))),
				Health: health,
			}
			r.cards[id] = def
			loaded++
		}
		if effectID := strings.TrimSpace(rec[4]); effectID != "" {
			valueFixed, _ := strconv.Atoi(strings.TrimSpace(rec[6]))
			duration, _ := strconv.Atoi(strings.TrimSpace(rec[8]))
			def.Abilities = append(def.Abilities, AbilityDefinition{
				EffectID:      effectID,
				ValueSource:   ValueSource(strings.TrimSpace(rec[5])),
				ValueFixed:    valueFixed,
				ValueStat:     strings.TrimSpace(rec[7]),
				DurationTurns: duration,
				Target:        TargetRule(strings.TrimSpace(rec[9])),
			})
		}
		r.mu.Unlock()
	}

	if r.logger != nil {
		r.logger.Info("card definitions loaded",
			zap.String("path", path),
			zap.Int("cards", loaded),
		)
	}
	return nil
}

// defaultCards is the built-in starter set used when no card export is configured.
func defaultCards() []*CardDefinition {
	return []*CardDefinition{
		{
			ID:     "stone-sentinel",
			Name:   "Stone Sentinel",
			Kind:   KindCreature,
			Health: 10,
			Abilities: []AbilityDefinition{
				{EffectID: EffectTaunt, ValueSource: ValueSourceNone, DurationTurns: 2, Target: TargetSelf},
			},
		},
		{
			ID:     "ember-wolf",
			Name:   "Ember Wolf",
			Kind:   KindCreature,
			Health: 10,
			Abilities: []AbilityDefinition{
				{EffectID: EffectDamageEnemy, ValueSource: ValueSourceFixed, ValueFixed: 2, Target: TargetEnemyCreature},
			},
		},
		{
			ID:     "storm-adder",
			Name:   "Storm Adder",
			Kind:   KindCreature,
			Health: 8,
			Abilities: []AbilityDefinition{
				{EffectID: EffectDamageEnemy, ValueSource: ValueSourceRoll, Target: TargetEnemyCreature},
				{EffectID: EffectTaunt, ValueSource: ValueSourceNone, DurationTurns: 1, Target: TargetSelf},
			},
		},
		{
			ID:     "bone-golem",
			Name:   "Bone Golem",
			Kind:   KindCreature,
			Health: 12,
			Abilities: []AbilityDefinition{
				{EffectID: EffectDamageEnemy, ValueSource: ValueSourceStat, ValueStat: "health", Target: TargetEnemyCreature},
			},
		},
		{
			ID:     "soul-lance",
			Name:   "Soul Lance",
			Kind:   KindSpell,
			Health: 0,
			Abilities: []AbilityDefinition{
				{EffectID: EffectLifeSteal, ValueSource: ValueSourceRoll, Target: TargetEnemyCreature},
			},
		},
		{
			ID:     "arc-bolt",
			Name:   "Arc Bolt",
			Kind:   KindSpell,
			Health: 0,
			Abilities: []AbilityDefinition{
				{EffectID: EffectDamageEnemy, ValueSource: ValueSourceRoll, Target: TargetEnemyCreature},
			},
		},
	}
}
