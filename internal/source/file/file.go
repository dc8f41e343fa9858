// Package file serves the dividend record from a CSV file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"divs/internal/core"
	"divs/internal/records"
	"divs/internal/source"
)

var _ source.EventReader = (*Source)(nil)

// DefaultSearchPath is tried in order when no explicit record is configured.
const DefaultSearchPath = "./divs.csv:./data/divs.csv:$HOME/info/investing/divs.csv"

// Resolve locates the record. An explicit path must exist; otherwise the
// first existing entry of the colon separated search path wins.
func Resolve(explicit, searchPath string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		p := os.ExpandEnv(explicit)
		if isFile(p) {
			return p, nil
		}
		return "", &core.ConfigurationError{Reason: "dividend record not found", Tried: []string{p}}
	}
	if strings.TrimSpace(searchPath) == "" {
		searchPath = DefaultSearchPath
	}
	var tried []string
	for _, entry := range filepath.SplitList(searchPath) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		p := os.ExpandEnv(entry)
		tried = append(tried, p)
		if isFile(p) {
			return p, nil
		}
	}
	return "", &core.ConfigurationError{Reason: "no dividend record on the search path", Tried: tried}
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// Source reads the record from disk and reparses it only when the file's
// modification time or size change.
type Source struct {
	path string
	opts records.Options
	now  func() time.Time

	group singleflight.Group

	mu   sync.RWMutex
	snap *source.Snapshot
	stat fileStamp
}

type fileStamp struct {
	mod  time.Time
	size int64
}

func New(path string, opts records.Options) *Source {
	return &Source{path: path, opts: opts, now: time.Now}
}

// Path returns the record location.
func (s *Source) Path() string {
	return s.path
}

// Snapshot returns the parsed record. Concurrent callers that observe a
// change share one reload.
func (s *Source) Snapshot(ctx context.Context) (*source.Snapshot, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.ConfigurationError{Reason: "dividend record disappeared", Tried: []string{s.path}}
		}
		return nil, fmt.Errorf("stat record: %w", err)
	}
	stamp := fileStamp{mod: fi.ModTime(), size: fi.Size()}

	s.mu.RLock()
	snap, cur := s.snap, s.stat
	s.mu.RUnlock()
	if snap != nil && cur == stamp {
		return snap, nil
	}

	v, err, _ := s.group.Do(s.path, func() (interface{}, error) {
		return s.load(ctx, stamp)
	})
	if err != nil {
		return nil, err
	}
	return v.(*source.Snapshot), nil
}

func (s *Source) load(ctx context.Context, stamp fileStamp) (*source.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer f.Close()

	events, err := records.Parse(f, s.opts)
	if err != nil {
		return nil, err
	}
	snap := &source.Snapshot{
		Events:   events,
		Version:  fmt.Sprintf("file:%d:%d", stamp.mod.UnixNano(), stamp.size),
		Origin:   s.path,
		LoadedAt: s.now(),
	}
	s.mu.Lock()
	s.snap, s.stat = snap, stamp
	s.mu.Unlock()
	return snap, nil
}
