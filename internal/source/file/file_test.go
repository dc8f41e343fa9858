package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"divs/internal/core"
	"divs/internal/records"
)

const record = "date,person,broker,accountType,company,shares,amount\n01.04.2013,A,B,Normal,X,100,50.00\n"

func writeRecord(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestResolveExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mine.csv")
	writeRecord(t, path, record, time.Now())

	got, err := Resolve(path, "")
	if err != nil || got != path {
		t.Fatalf("Resolve = %q, %v", got, err)
	}

	_, err = Resolve(filepath.Join(dir, "missing.csv"), path)
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("explicit missing path must not fall back, got %v", err)
	}
}

func TestResolveSearchPath(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "second.csv")
	writeRecord(t, second, record, time.Now())
	t.Setenv("DIVS_TEST_DIR", dir)

	search := "$DIVS_TEST_DIR/first.csv" + string(filepath.ListSeparator) + "$DIVS_TEST_DIR/second.csv"
	got, err := Resolve("", search)
	if err != nil || got != second {
		t.Fatalf("Resolve = %q, %v", got, err)
	}

	_, err = Resolve("", "$DIVS_TEST_DIR/nope.csv")
	var ce *core.ConfigurationError
	if !errors.As(err, &ce) || len(ce.Tried) != 1 || ce.Tried[0] != filepath.Join(dir, "nope.csv") {
		t.Fatalf("expected configuration error listing tried paths, got %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "adir"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve("", filepath.Join(dir, "adir")); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("directories are not records, got %v", err)
	}
}

func TestSnapshotReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "divs.csv")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRecord(t, path, record, base)

	s := New(path, records.DefaultOptions())
	first, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(first.Events) != 1 || first.Origin != path {
		t.Fatalf("unexpected snapshot %+v", first)
	}
	again, _ := s.Snapshot(context.Background())
	if again != first {
		t.Fatalf("unchanged file should return the cached snapshot")
	}

	writeRecord(t, path, record+"02.04.2013,A,B,ISA,Y,10,1.00\n", base.Add(time.Minute))
	next, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot after change: %v", err)
	}
	if len(next.Events) != 2 || next.Version == first.Version {
		t.Fatalf("expected reload, got %+v", next)
	}
}

func TestSnapshotParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "divs.csv")
	writeRecord(t, path, record+"01.04.2013,A,B\n", time.Now())
	_, err := New(path, records.DefaultOptions()).Snapshot(context.Background())
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestSnapshotMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "gone.csv"), records.DefaultOptions())
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSnapshotConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "divs.csv")
	writeRecord(t, path, record, time.Now())
	s := New(path, records.DefaultOptions())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Snapshot(context.Background())
			if err == nil && len(snap.Events) != 1 {
				err = errors.New("wrong event count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}
