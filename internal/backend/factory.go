package backend

import (
	"context"
	"fmt"

	applog "divs/internal/log"
	"divs/internal/records"
	"divs/internal/source/file"
	"divs/internal/source/google"
	"divs/internal/source/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	path, err := file.Resolve(config.DivsFile, config.DivsSearchPath)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized file backend", "path", path, "validate_order", config.ValidateOrder)
	return &BackendResult{
		Reader: file.New(path, records.Options{ValidateOrder: config.ValidateOrder}),
		Origin: path,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	path, err := file.Resolve(config.DivsFile, config.DivsSearchPath)
	if err != nil {
		return nil, err
	}
	store, err := memory.NewFromFile(path, records.Options{ValidateOrder: config.ValidateOrder})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	f.logger.Info("Initialized memory backend", "path", path)
	return &BackendResult{
		Reader: store,
		Origin: path,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Range:           config.GoogleSheetRange,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		Refresh:         config.GoogleSheetRefresh,
		Options:         records.Options{ValidateOrder: config.ValidateOrder},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID, "range", config.GoogleSheetRange)
	return &BackendResult{
		Reader: cli,
		Origin: "sheets:" + config.GoogleSpreadsheetID,
	}, nil
}
