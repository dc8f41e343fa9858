// Package records parses the hand-maintained dividend record.
//
// The record is comma separated text with a header row. Lines starting with
// '#' are comments. Blank lines split the record into sections; within a
// section dates must not go backwards.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"divs/internal/core"
)

// Column names of the record header.
const (
	ColDate        = "date"
	ColPerson      = "person"
	ColBroker      = "broker"
	ColAccountType = "accountType"
	ColCompany     = "company"
	ColShares      = "shares"
	ColAmount      = "amount"
	ColProjected   = "isProjected"
)

var requiredColumns = []string{ColDate, ColPerson, ColBroker, ColAccountType, ColCompany, ColShares, ColAmount}

// Header is the canonical header row.
func Header() []string {
	return append(append([]string{}, requiredColumns...), ColProjected)
}

// Options controls parsing.
type Options struct {
	// ValidateOrder rejects dates that go backwards inside a section.
	ValidateOrder bool
}

// DefaultOptions validates section ordering.
func DefaultOptions() Options {
	return Options{ValidateOrder: true}
}

// Parse reads the record from r. Events are returned in file order.
func Parse(r io.Reader, opts Options) ([]core.DividendEvent, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	return parse(rows, opts)
}

// ParseRows parses rows that were already split into fields, for sources
// such as spreadsheets. An empty row is a blank line; row i is line i+1.
func ParseRows(rows [][]string, opts Options) ([]core.DividendEvent, error) {
	numbered := make([]row, len(rows))
	for i, fields := range rows {
		numbered[i] = row{line: i + 1, fields: fields, blank: allEmpty(fields)}
	}
	return parse(numbered, opts)
}

type row struct {
	line   int
	fields []string
	blank  bool
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (r row) comment() bool {
	return len(r.fields) > 0 && strings.HasPrefix(strings.TrimSpace(r.fields[0]), "#")
}

// readRows splits the input by line so blank lines survive; encoding/csv
// would swallow them. Only a line of whitespace is blank: a line of empty
// fields is a record with missing values.
func readRows(r io.Reader) ([]row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	rows := make([]row, 0, len(lines))
	for i, line := range lines {
		n := i + 1
		if strings.TrimSpace(line) == "" {
			rows = append(rows, row{line: n, blank: true})
			continue
		}
		cr := csv.NewReader(strings.NewReader(line))
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		fields, err := cr.Read()
		if err != nil {
			return nil, &core.ParseError{Line: n, Reason: "malformed line", Err: err}
		}
		rows = append(rows, row{line: n, fields: fields})
	}
	return rows, nil
}

type columns struct {
	width     int
	index     map[string]int
	projected bool
}

func newColumns(header row) (columns, error) {
	c := columns{width: len(header.fields), index: make(map[string]int, len(header.fields))}
	for i, name := range header.fields {
		name = strings.TrimSpace(name)
		if _, dup := c.index[name]; dup {
			return c, &core.ParseError{Line: header.line, Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		c.index[name] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := c.index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return c, &core.ParseError{Line: header.line, Reason: "missing header columns " + strings.Join(missing, ",")}
	}
	_, c.projected = c.index[ColProjected]
	return c, nil
}

func (c columns) get(fields []string, name string) string {
	return strings.TrimSpace(fields[c.index[name]])
}

func parse(rows []row, opts Options) ([]core.DividendEvent, error) {
	var (
		cols    *columns
		events  []core.DividendEvent
		last    core.Date
		inBlock bool
	)
	for _, r := range rows {
		if r.blank {
			inBlock = false
			continue
		}
		if r.comment() {
			continue
		}
		if cols == nil {
			c, err := newColumns(r)
			if err != nil {
				return nil, err
			}
			cols = &c
			continue
		}
		if len(r.fields) != cols.width {
			return nil, &core.ParseError{
				Line:   r.line,
				Reason: fmt.Sprintf("expected %d fields, got %d", cols.width, len(r.fields)),
			}
		}
		ev, err := cols.event(r)
		if err != nil {
			return nil, err
		}
		if opts.ValidateOrder && inBlock && ev.Date.Before(last.Time) {
			return nil, &core.ParseError{
				Line:   r.line,
				Reason: fmt.Sprintf("date %s is before %s in the same section", ev.Date, last),
			}
		}
		last, inBlock = ev.Date, true
		events = append(events, ev)
	}
	if cols == nil {
		return nil, &core.ParseError{Reason: "missing header row"}
	}
	return events, nil
}

func (c columns) event(r row) (core.DividendEvent, error) {
	fail := func(reason string, err error) (core.DividendEvent, error) {
		return core.DividendEvent{}, &core.ParseError{Line: r.line, Reason: reason, Err: err}
	}
	date, err := core.ParseDate(c.get(r.fields, ColDate))
	if err != nil {
		return fail("invalid date", err)
	}
	account, err := core.ParseAccountClass(c.get(r.fields, ColAccountType))
	if err != nil {
		return fail("invalid account type", err)
	}
	units, err := strconv.ParseInt(c.get(r.fields, ColShares), 10, 64)
	if err != nil || units <= 0 {
		return fail(fmt.Sprintf("invalid shares %q", c.get(r.fields, ColShares)), core.ErrInvalidUnits)
	}
	amount, err := core.ParseAmount(c.get(r.fields, ColAmount))
	if err != nil {
		return fail(fmt.Sprintf("invalid amount %q", c.get(r.fields, ColAmount)), err)
	}
	projected := false
	if c.projected {
		projected, err = parseFlag(c.get(r.fields, ColProjected))
		if err != nil {
			return fail("invalid isProjected", err)
		}
	}
	ev := core.DividendEvent{
		Date:         date,
		Holder:       c.get(r.fields, ColPerson),
		Custodian:    c.get(r.fields, ColBroker),
		AccountClass: account,
		Payer:        c.get(r.fields, ColCompany),
		Units:        units,
		Amount:       amount,
		Projected:    projected,
		Line:         r.line,
	}
	if err := ev.Validate(); err != nil {
		return fail("invalid event", err)
	}
	return ev, nil
}

var errFlag = errors.New("expected 0, 1, true or false")

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	}
	return false, errFlag
}

// SortByDate returns a copy of events sorted by ascending date. Events on
// the same date keep their record order.
func SortByDate(events []core.DividendEvent) []core.DividendEvent {
	out := append([]core.DividendEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}

// LastPaymentByPayer returns the most recent payment date of every payer.
func LastPaymentByPayer(events []core.DividendEvent) map[string]core.Date {
	last := make(map[string]core.Date)
	for _, e := range events {
		if d, ok := last[e.Payer]; !ok || e.Date.After(d.Time) {
			last[e.Payer] = e.Date
		}
	}
	return last
}

// ActivePayers splits payers into those paid within window before now and
// the rest. Both lists are sorted.
func ActivePayers(events []core.DividendEvent, now time.Time, window time.Duration) (active, inactive []string) {
	for payer, d := range LastPaymentByPayer(events) {
		if now.Sub(d.Time) < window {
			active = append(active, payer)
		} else {
			inactive = append(inactive, payer)
		}
	}
	sort.Strings(active)
	sort.Strings(inactive)
	return active, inactive
}

// Distinct returns the sorted distinct values of field over events.
func Distinct(events []core.DividendEvent, field func(core.DividendEvent) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range events {
		v := field(e)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
