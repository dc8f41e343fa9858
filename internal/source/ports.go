// Package source defines where dividend events come from.
package source

import (
	"context"
	"time"

	"divs/internal/core"
)

// Snapshot is an immutable, fully parsed copy of the dividend record.
// Callers must not modify Events.
type Snapshot struct {
	Events []core.DividendEvent
	// Version changes whenever the underlying record changes.
	Version  string
	Origin   string
	LoadedAt time.Time
}

// EventReader is implemented by every backing store of the record.
type EventReader interface {
	// Snapshot returns the current record, reloading it if it changed.
	Snapshot(ctx context.Context) (*Snapshot, error)
}
