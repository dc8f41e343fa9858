package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"divs/internal/core"
	"divs/internal/records"
)

func TestToRowsPadsShortRows(t *testing.T) {
	values := [][]interface{}{
		{"# exported"},
		{"date", "person", "broker", "accountType", "company", "shares", "amount", "isProjected"},
		{"01.04.2013", "A", "B", "Normal", "X", 100, 50.5},
		{},
		{"02.04.2013", "A", "B", "ISA", "Y", "10", "1.00", "1"},
	}
	rows := toRows(values)
	if len(rows[2]) != 8 || rows[2][7] != "" || rows[2][5] != "100" || rows[2][6] != "50.5" {
		t.Fatalf("row = %q", rows[2])
	}
	if len(rows[3]) != 0 {
		t.Fatalf("blank row must stay blank, got %q", rows[3])
	}
	events, err := records.ParseRows(rows, records.DefaultOptions())
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(events) != 2 || events[0].Projected || !events[1].Projected {
		t.Fatalf("events = %+v", events)
	}
}

func TestDigestChangesWithContent(t *testing.T) {
	a := digest([][]string{{"a", "b"}})
	if a == digest([][]string{{"ab"}}) || a != digest([][]string{{"a", "b"}}) {
		t.Fatalf("digest not content sensitive")
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSnapshotNilService(t *testing.T) {
	c := NewWithService(nil, Config{SpreadsheetID: "sheet"})
	if _, err := c.Snapshot(context.Background()); err == nil {
		t.Fatalf("expected error without service")
	}
}

const valuesBody = `{
  "range": "Dividends!A1:H3",
  "majorDimension": "ROWS",
  "values": [
    ["date","person","broker","accountType","company","shares","amount"],
    ["01.01.2013","A","B","Normal","X","100","25.00"],
    ["01.04.2013","A","B","Normal","X","100","50.00"]
  ]
}`

func fakeSheets(t *testing.T, body string) (*gsheet.Service, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if !strings.Contains(r.URL.Path, "/v4/spreadsheets/sheet-id/values/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, &calls
}

func TestSnapshotFetchesAndCaches(t *testing.T) {
	svc, calls := fakeSheets(t, valuesBody)
	c := NewWithService(svc, Config{SpreadsheetID: "sheet-id", Refresh: time.Hour, Options: records.DefaultOptions()})

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Events) != 2 || snap.Events[1].Amount.StringFixed(2) != "50.00" {
		t.Fatalf("events = %+v", snap.Events)
	}
	if _, err := c.Snapshot(context.Background()); err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected one fetch within refresh interval, got %d", got)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	again, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected refetch after refresh interval")
	}
	if again != snap {
		t.Fatalf("unchanged content should keep the snapshot")
	}
}

func TestSnapshotParseError(t *testing.T) {
	body := `{"values": [["date","person"],["01.01.2013","A"]]}`
	svc, _ := fakeSheets(t, body)
	c := NewWithService(svc, Config{SpreadsheetID: "sheet-id"})
	if _, err := c.Snapshot(context.Background()); !errors.Is(err, core.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
