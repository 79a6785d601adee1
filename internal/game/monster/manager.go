package monster

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/emberfell/emberfell/internal/game/encounter"
)

// Manager indexes loaded templates by ID and spawns combat-ready instances.
// All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	templates map[string]*Template
	counter   atomic.Uint64
}

// NewManager creates a Manager holding the given templates.
//
// Precondition: template IDs must be unique.
// Postcondition: Returns an error on a duplicate ID; the Manager is usable
// only on a nil error.
func NewManager(templates []*Template) (*Manager, error) {
	m := &Manager{templates: make(map[string]*Template, len(templates))}
	for _, tmpl := range templates {
		if _, ok := m.templates[tmpl.ID]; ok {
			return nil, fmt.Errorf("duplicate monster template %q", tmpl.ID)
		}
		m.templates[tmpl.ID] = tmpl
	}
	return m, nil
}

// Get returns the template with the given ID.
//
// Postcondition: Returns (tmpl, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Template, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tmpl, ok := m.templates[id]
	return tmpl, ok
}

// Spawn builds a fresh combatant from the template with the given ID. Each
// spawn gets a unique instance ID so the same template can appear in an
// encounter more than once.
//
// Precondition: templateID must identify a loaded template.
// Postcondition: Returns a combatant at full HP with Kind set to KindMonster.
func (m *Manager) Spawn(templateID string) (*encounter.Combatant, error) {
	m.mu.RLock()
	tmpl, ok := m.templates[templateID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("monster template %q not found", templateID)
	}

	n := m.counter.Add(1)
	stats := make(map[string]any, len(tmpl.Stats)+2)
	for k, v := range tmpl.Stats {
		stats[k] = v
	}
	stats["attack_bonus"] = tmpl.AttackBonus
	stats["damage_die"] = tmpl.DamageDie

	return &encounter.Combatant{
		ID:        fmt.Sprintf("%s-%d", tmpl.ID, n),
		Name:      tmpl.Name,
		Kind:      encounter.KindMonster,
		MaxHP:     tmpl.MaxHP,
		CurrentHP: tmpl.MaxHP,
		AC:        tmpl.AC,
		DexMod:    tmpl.DexMod,
		XPValue:   tmpl.XPValue,
		Stats:     stats,
	}, nil
}

// IDs returns the IDs of all loaded templates.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.templates))
	for id := range m.templates {
		out = append(out, id)
	}
	return out
}
