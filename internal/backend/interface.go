// Package backend selects and constructs the source of the dividend record.
package backend

import (
	"context"
	"time"

	"divs/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the reader and optional cleanup function
type BackendResult struct {
	Reader source.EventReader
	// Origin describes where the record is read from, for logs.
	Origin  string
	Cleanup CleanupFunc
}

// Factory creates readers based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File and memory
	DivsFile       string
	DivsSearchPath string
	ValidateOrder  bool

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleSheetRefresh       time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	// FileBackend rereads the record file whenever it changes on disk.
	FileBackend BackendType = "file"
	// MemoryBackend reads the record file once at startup.
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
