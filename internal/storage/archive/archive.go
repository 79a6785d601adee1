// Package archive stores summaries of finished encounters for later recall.
package archive

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned when an archive lookup yields no results.
var ErrRecordNotFound = errors.New("archive record not found")

// Record summarizes one finished encounter.
type Record struct {
	ID           string    `json:"id"`
	RoomCode     string    `json:"roomCode"`
	Outcome      string    `json:"outcome"`
	Rounds       int       `json:"rounds"`
	Monsters     []string  `json:"monsters"`
	Participants []string  `json:"participants"`
	XPAwarded    int       `json:"xpAwarded"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
}

// Archive persists finished encounter records.
type Archive interface {
	// Save stores a record. Saving an existing ID overwrites it.
	//
	// Precondition: rec must be non-nil with a non-empty ID and RoomCode.
	Save(ctx context.Context, rec *Record) error

	// Get retrieves a record by ID.
	//
	// Postcondition: Returns the record or ErrRecordNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// ListByRoom returns all retained records for a room, most recent first.
	//
	// Postcondition: Returns a slice (may be empty) or a non-nil error.
	ListByRoom(ctx context.Context, roomCode string) ([]*Record, error)
}
