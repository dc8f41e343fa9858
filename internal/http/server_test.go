package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"divs/internal/core"
	applog "divs/internal/log"
	"divs/internal/source"
	"divs/internal/source/memory"
)

func sampleEvents() []core.DividendEvent {
	return []core.DividendEvent{
		{Date: core.NewDate(2013, 4, 1), Holder: "A", Custodian: "B", AccountClass: core.Normal, Payer: "X", Units: 100, Amount: decimal.RequireFromString("50.00")},
		{Date: core.NewDate(2014, 5, 10), Holder: "A", Custodian: "B", AccountClass: core.ISA, Payer: "Y", Units: 10, Amount: decimal.RequireFromString("5.00")},
	}
}

type failingReader struct{ err error }

func (f failingReader) Snapshot(context.Context) (*source.Snapshot, error) { return nil, f.err }

func newTestServer(t *testing.T, reader source.EventReader, mutate ...func(*Options)) *Server {
	t.Helper()
	opts := Options{
		Addr:     ":0",
		Reader:   reader,
		Logger:   applog.New(applog.Config{Format: "text", Output: io.Discard, Component: applog.ComponentApp}),
		Currency: "GBP",
		Now:      func() time.Time { return time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func get(srv *Server, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestNewServerRequiresReader(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatal("expected error without reader")
	}
}

func TestPivotPage(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))
	rr := get(srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"£50.00", "£5.00", ">2013<", ">2014<", "/div-events?month=April&amp;year=2013"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if csp := rr.Header().Get("Content-Security-Policy"); csp == "" {
		t.Fatal("missing security headers")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}

	active := strings.Index(body, ">Y<")
	inactive := strings.Index(body, `class="inactive"`)
	x := strings.Index(body, ">X<")
	if active < 0 || inactive < 0 || x < 0 || !(active < inactive && inactive < x) {
		t.Fatalf("sidebar order wrong: Y=%d inactive=%d X=%d", active, inactive, x)
	}
}

func TestPivotCSV(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))
	tests := []struct {
		name   string
		target string
		header string
		lines  []string
	}{
		{"calendar", "/?csv=1", "Month,2013,2014", []string{"April,50.00,0.00", "May,0.00,5.00", "Total,50.00,5.00"}},
		{"tax year", "/?bucketH=taxYear&csv=1", "Month,2012-2013,2014-2015", []string{"April (next),50.00,0.00", "May,0.00,5.00"}},
		{"per share", "/?perShare=1&csv=1", "Month,2013,2014", []string{"April,50.00,0.00", "May,0.00,50.00"}},
		{"filtered", "/?accountType=ISA&csv=1", "Month,2014", []string{"Total,5.00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(srv, tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
			}
			if cd := rr.Header().Get("Content-Disposition"); cd != "attachment;filename=data.csv" {
				t.Fatalf("Content-Disposition = %q", cd)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
				t.Fatalf("Content-Type = %q", ct)
			}
			lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
			if lines[0] != tt.header {
				t.Fatalf("header = %q, want %q", lines[0], tt.header)
			}
			for _, want := range tt.lines {
				found := false
				for _, l := range lines {
					if l == want {
						found = true
					}
				}
				if !found {
					t.Fatalf("missing line %q in\n%s", want, rr.Body.String())
				}
			}
		})
	}
}

func TestPerUnitScale(t *testing.T) {
	events := []core.DividendEvent{
		{Date: core.NewDate(2015, 1, 5), Holder: "A", Custodian: "B", AccountClass: core.Normal, Payer: "Z", Units: 3, Amount: decimal.RequireFromString("1.00")},
	}
	zero := int32(0)
	tests := []struct {
		name   string
		scale  *int32
		pivot  string
		events string
	}{
		{"default", nil, "January,33.33", "05.01.2015,A,B,Normal,Z,3,1.00,33.33,0"},
		{"zero", &zero, "January,33.00", "05.01.2015,A,B,Normal,Z,3,1.00,33.00,0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, memory.New(events...), func(o *Options) { o.Scale = tt.scale })
			for target, want := range map[string]string{"/?perShare=1&csv=1": tt.pivot, "/div-events?csv=1": tt.events} {
				rr := get(srv, target)
				if rr.Code != http.StatusOK {
					t.Fatalf("%s status = %d: %s", target, rr.Code, rr.Body.String())
				}
				if !strings.Contains(rr.Body.String(), want+"\n") {
					t.Fatalf("%s missing %q in\n%s", target, want, rr.Body.String())
				}
			}
		})
	}
}

func TestPivotDetails(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))
	rr := get(srv, "/?cellContent=details&company=X")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "X 50.00") {
		t.Fatalf("details missing from body")
	}
	if !strings.Contains(rr.Body.String(), "company: X") {
		t.Fatalf("active filter not shown")
	}
}

func TestReportCache(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))
	get(srv, "/")
	get(srv, "/")
	if stats := srv.reports.Stats(); stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestEventsPage(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))

	rr := get(srv, "/div-events?company=X")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "01.04.2013") || strings.Contains(body, "10.05.2014") {
		t.Fatalf("wrong events listed")
	}

	rr = get(srv, "/div-events?taxYear=2014-2015&taxYearMonth=May&csv=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	want := "date,person,broker,accountType,company,shares,amount,amountPerShare,isProjected\n" +
		"10.05.2014,A,B,ISA,Y,10,5.00,50.00,0\n"
	if rr.Body.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", rr.Body.String(), want)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))
	for _, target := range []string{
		"/?bucketH=weekly",
		"/?perShare=yes",
		"/?csv=2",
		"/?accountType=SIPP",
		"/div-events?month=Smarch",
		"/div-events?taxYear=last",
		"/div-events?isProjected=maybe",
	} {
		if rr := get(srv, target); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rr.Code)
		}
	}
}

func TestRecordErrors(t *testing.T) {
	parseErr := &core.ParseError{Line: 3, Reason: "expected 7 fields, got 6"}
	srv := newTestServer(t, failingReader{err: parseErr})

	rr := get(srv, "/")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "line 3") {
		t.Fatalf("body = %q", rr.Body.String())
	}
	if rr := get(srv, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d", rr.Code)
	}
	if rr := get(srv, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}

func TestHealthReadyMetricsStatic(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))
	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/style.css"} {
		if rr := get(srv, path); rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
	if rr := get(srv, "/metrics"); !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Fatalf("metrics = %s", rr.Body.String())
	}
	if rr := get(srv, "/static/style.css"); rr.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Fatalf("static Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
	if rr := get(srv, "/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", rr.Code)
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...))
	if rr := get(srv, "/.env"); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, memory.New(sampleEvents()...), func(o *Options) {
		o.RateLimitRPS = 1
		o.RateLimitBurst = 1
	})
	if rr := get(srv, "/"); rr.Code != http.StatusOK {
		t.Fatalf("first status = %d", rr.Code)
	}
	if rr := get(srv, "/"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rr.Code)
	}
	if rr := get(srv, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("health checks must not be rate limited, got %d", rr.Code)
	}
}
