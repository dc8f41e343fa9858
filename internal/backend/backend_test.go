package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"divs/internal/config"
	"divs/internal/core"
	applog "divs/internal/log"
)

const record = "date,person,broker,accountType,company,shares,amount\n01.04.2013,A,B,Normal,X,100,50.00\n"

func quietFactory() Factory {
	return NewFactory(applog.New(applog.Config{Format: "text", Output: io.Discard, Component: applog.ComponentBackend}))
}

func writeRecord(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "divs.csv")
	if err := os.WriteFile(path, []byte(record), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreateFileAndMemoryBackends(t *testing.T) {
	path := writeRecord(t)
	for _, typ := range []BackendType{FileBackend, MemoryBackend} {
		t.Run(typ.String(), func(t *testing.T) {
			res, err := quietFactory().CreateBackend(context.Background(), Config{Type: typ, DivsFile: path, ValidateOrder: true})
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			if res.Origin != path {
				t.Fatalf("origin = %q", res.Origin)
			}
			snap, err := res.Reader.Snapshot(context.Background())
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if len(snap.Events) != 1 || snap.Events[0].Payer != "X" {
				t.Fatalf("events = %+v", snap.Events)
			}
		})
	}
}

func TestCreateBackendErrors(t *testing.T) {
	f := quietFactory()
	ctx := context.Background()

	if _, err := f.CreateBackend(ctx, Config{Type: "sqlite"}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if _, err := f.CreateBackend(ctx, Config{Type: SheetsBackend}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	missing := filepath.Join(t.TempDir(), "none.csv")
	_, err := f.CreateBackend(ctx, Config{Type: FileBackend, DivsFile: missing})
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("missing record: got %v", err)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	app := &config.Config{DataBackend: "file", DivsFile: "/tmp/x.csv", DivsSearchPath: "a:b", ValidateOrder: true}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != FileBackend || cfg.DivsFile != "/tmp/x.csv" || cfg.DivsSearchPath != "a:b" || !cfg.ValidateOrder {
		t.Fatalf("cfg = %+v", cfg)
	}
	app.DataBackend = "postgres"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for invalid backend")
	}
	if got := GetBackendTypeStrings(); len(got) != 3 || got[0] != "file" {
		t.Fatalf("types = %v", got)
	}
}
