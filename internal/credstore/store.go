package credstore

import (
	"context"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// Snapshot is the persisted credential state: the current token pair plus
// the actor it was issued to.
type Snapshot struct {
	Credentials domain.Credentials `json:"credentials"`
	Actor       domain.Actor       `json:"actor"`
}

// Store persists the session's token pair and actor across process
// restarts. Absence of data is a normal nil result, never an error.
type Store interface {
	// Save overwrites any prior entry.
	Save(ctx context.Context, creds domain.Credentials, actor domain.Actor) error
	// Load returns the persisted snapshot, or nil when nothing is stored.
	Load(ctx context.Context) (*Snapshot, error)
	// Clear wipes all persisted fields.
	Clear(ctx context.Context) error
}
