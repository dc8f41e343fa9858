// Package google serves the dividend record from a Google Sheets range.
package google

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"divs/internal/records"
	"divs/internal/source"
)

var _ source.EventReader = (*Client)(nil)

// DefaultRange covers the record columns of the first sheet.
const DefaultRange = "Dividends!A:H"

// Config selects the spreadsheet and how to authenticate.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsJSON string
	CredentialsFile string
	// Refresh is how long a fetched snapshot is served before the sheet is
	// read again.
	Refresh time.Duration
	Options records.Options
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
	refresh       time.Duration
	opts          records.Options
	now           func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	snap    *source.Snapshot
	fetched time.Time
}

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = DefaultRange
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		rng:           rng,
		refresh:       cfg.Refresh,
		opts:          cfg.Options,
		now:           time.Now,
	}
}

// newSheetsService uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credsJSON != "":
		creds = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service", "credentials_size", len(creds))
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Snapshot returns the parsed range, fetching it again once the refresh
// interval has passed.
func (c *Client) Snapshot(ctx context.Context) (*source.Snapshot, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	c.mu.RLock()
	snap, fetched := c.snap, c.fetched
	c.mu.RUnlock()
	if snap != nil && c.now().Sub(fetched) < c.refresh {
		return snap, nil
	}

	v, err, _ := c.group.Do(c.rng, func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*source.Snapshot), nil
}

func (c *Client) fetch(ctx context.Context) (*source.Snapshot, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.rng, err)
	}
	rows := toRows(resp.Values)
	events, err := records.ParseRows(rows, c.opts)
	if err != nil {
		return nil, err
	}

	now := c.now()
	version := "sheets:" + digest(rows)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap != nil && c.snap.Version == version {
		// unchanged content keeps its snapshot so report caches stay warm
		c.fetched = now
		return c.snap, nil
	}
	c.snap = &source.Snapshot{
		Events:   events,
		Version:  version,
		Origin:   c.spreadsheetID + "/" + c.rng,
		LoadedAt: now,
	}
	c.fetched = now
	return c.snap, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// toRows converts a values matrix into record rows. Sheets omits trailing
// empty cells, so non-empty rows are padded to the header width.
func toRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	width := 0
	for i, v := range values {
		row := toStrings(v)
		rows[i] = row
		if width == 0 && len(row) > 0 && !strings.HasPrefix(row[0], "#") {
			width = len(row)
		}
	}
	for i, row := range rows {
		if len(row) > 0 && len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
	return rows
}

func digest(rows [][]string) string {
	h := fnv.New64a()
	for _, row := range rows {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0})
		}
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
