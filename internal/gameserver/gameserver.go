// Package gameserver provides the combat backend: encounter bootstrap,
// player action handlers, the automated monster-turn orchestrator, and the
// WebSocket bridge that streams room events to clients.
//
// Persistence and transport are injected as narrow interfaces so the combat
// logic can be exercised without a database or a live socket.
package gameserver

import (
	"context"
	"sync"

	"github.com/emberfell/emberfell/internal/game/character"
)

// CharacterStore is the slice of character persistence the combat layer
// needs. *postgres.CharacterRepository satisfies it.
type CharacterStore interface {
	// FindByName resolves a character in a room by display name,
	// case-insensitively. A miss returns a non-nil error.
	FindByName(ctx context.Context, roomCode, name string) (*character.Character, error)
	// GetByID retrieves a character by primary key.
	GetByID(ctx context.Context, id int64) (*character.Character, error)
	// SaveProgress persists experience, level, gold, and reputation.
	SaveProgress(ctx context.Context, id int64, experience, level, gold, reputation int) error
	// SaveHP persists current hit points.
	SaveHP(ctx context.Context, id int64, currentHP int) error
}

// processingSet tracks the room codes currently undergoing automated turn
// advancement. At most one advancement run may hold a given code; overlapping
// triggers for the same room collapse into a no-op.
//
// The code must be released on every exit path of the run that acquired it.
// A leaked code blocks all future automated turns for that room.
type processingSet struct {
	mu    sync.Mutex
	codes map[string]struct{}
}

func newProcessingSet() *processingSet {
	return &processingSet{codes: make(map[string]struct{})}
}

// tryAcquire marks code as processing. Returns false if it is already held.
func (p *processingSet) tryAcquire(code string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, held := p.codes[code]; held {
		return false
	}
	p.codes[code] = struct{}{}
	return true
}

// release clears code. Releasing an unheld code is a no-op.
func (p *processingSet) release(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.codes, code)
}

// held reports whether code is currently marked.
func (p *processingSet) held(code string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.codes[code]
	return ok
}
