package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memoryArchive implements Archive with in-process maps. It is the default
// when Redis is disabled and the backend used by most tests.
type memoryArchive struct {
	mu      sync.RWMutex
	records map[string]*Record
	rooms   map[string][]string // roomCode → record IDs in insertion order
}

// NewMemory creates an empty in-memory Archive.
func NewMemory() Archive {
	return &memoryArchive{
		records: make(map[string]*Record),
		rooms:   make(map[string][]string),
	}
}

func (a *memoryArchive) Save(_ context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("archive: record must not be nil")
	}
	if rec.ID == "" || rec.RoomCode == "" {
		return fmt.Errorf("archive: record ID and RoomCode must not be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cp := *rec
	if _, exists := a.records[rec.ID]; !exists {
		a.rooms[rec.RoomCode] = append(a.rooms[rec.RoomCode], rec.ID)
	}
	a.records[rec.ID] = &cp
	return nil
}

func (a *memoryArchive) Get(_ context.Context, id string) (*Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rec, ok := a.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (a *memoryArchive) ListByRoom(_ context.Context, roomCode string) ([]*Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := a.rooms[roomCode]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := a.records[id]; ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	return out, nil
}
