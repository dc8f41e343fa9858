package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"divs/internal/core"
	"divs/internal/records"
	"divs/internal/source"
)

var _ source.EventReader = (*Store)(nil)

// Store keeps the record in memory. It backs tests and demo setups.
type Store struct {
	mu      sync.Mutex
	events  []core.DividendEvent
	version int
	origin  string
	loaded  time.Time
}

func New(events ...core.DividendEvent) *Store {
	s := &Store{origin: "memory"}
	s.Replace(events)
	return s
}

// NewFromRecord parses a record held in r.
func NewFromRecord(r io.Reader, opts records.Options) (*Store, error) {
	events, err := records.Parse(r, opts)
	if err != nil {
		return nil, err
	}
	return New(events...), nil
}

// NewFromFile parses the record at path once. Later edits to the file are
// not picked up.
func NewFromFile(path string, opts records.Options) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed record: %w", err)
	}
	defer f.Close()
	s, err := NewFromRecord(f, opts)
	if err != nil {
		return nil, err
	}
	s.origin = path
	return s, nil
}

// Replace swaps the held events and bumps the version.
func (s *Store) Replace(events []core.DividendEvent) {
	cp := append([]core.DividendEvent(nil), events...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = cp
	s.version++
	s.loaded = time.Now()
}

// Snapshot returns the held events.
func (s *Store) Snapshot(_ context.Context) (*source.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &source.Snapshot{
		Events:   s.events,
		Version:  fmt.Sprintf("mem:%d", s.version),
		Origin:   s.origin,
		LoadedAt: s.loaded,
	}, nil
}
