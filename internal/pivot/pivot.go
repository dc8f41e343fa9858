// Package pivot buckets dividend events into a two dimensional grid of
// exact decimal sums with per-column totals.
package pivot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"divs/internal/core"
	"divs/internal/metric"
)

// ErrUnknownRow is returned when an event maps to a row the layout does not
// contain.
var ErrUnknownRow = errors.New("row not in layout")

// Spec parameterizes a pivot.
type Spec struct {
	// ColumnKey maps an event to its column label.
	ColumnKey func(core.DividendEvent) string
	// Rows is the fixed row layout, in display order.
	Rows []string
	// RowKey maps an event to one of Rows.
	RowKey func(core.DividendEvent) string
	// Amount is the metric summed into cells. Nominal when nil.
	Amount metric.Func
	// ColumnRange optionally rewrites the sorted observed columns, for
	// example to fill gap years.
	ColumnRange func(observed []string) []string
	// Details also records a per-cell listing of payer and amount.
	Details bool
}

type cellKey struct {
	col, row string
}

// Grid is an immutable pivot result.
type Grid struct {
	columns []string
	rows    []string
	cells   map[cellKey]decimal.Decimal
	totals  map[string]decimal.Decimal
	details map[cellKey][]string
}

// Build aggregates events into a Grid. Building the same events with the
// same spec always yields an identical grid.
func Build(events []core.DividendEvent, spec Spec) (*Grid, error) {
	if spec.ColumnKey == nil || spec.RowKey == nil {
		return nil, errors.New("pivot: column and row key functions are required")
	}
	amount := spec.Amount
	if amount == nil {
		amount = metric.Nominal
	}

	inLayout := make(map[string]bool, len(spec.Rows))
	for _, r := range spec.Rows {
		inLayout[r] = true
	}

	type placed struct {
		col, row string
		value    decimal.Decimal
		payer    string
	}
	entries := make([]placed, 0, len(events))
	seen := make(map[string]bool)
	var observed []string
	for _, e := range events {
		col, row := spec.ColumnKey(e), spec.RowKey(e)
		if !inLayout[row] {
			return nil, fmt.Errorf("%w: %q for event on %s (%s)", ErrUnknownRow, row, e.Date, e.Payer)
		}
		if !seen[col] {
			seen[col] = true
			observed = append(observed, col)
		}
		entries = append(entries, placed{col: col, row: row, value: amount(e), payer: e.Payer})
	}
	sort.Strings(observed)

	columns := observed
	if spec.ColumnRange != nil {
		columns = spec.ColumnRange(observed)
	}

	g := &Grid{
		columns: columns,
		rows:    append([]string(nil), spec.Rows...),
		cells:   make(map[cellKey]decimal.Decimal, len(columns)*len(spec.Rows)),
		totals:  make(map[string]decimal.Decimal, len(columns)),
	}
	if spec.Details {
		g.details = make(map[cellKey][]string)
	}
	for _, c := range columns {
		g.totals[c] = decimal.Zero
		for _, r := range spec.Rows {
			g.cells[cellKey{c, r}] = decimal.Zero
		}
	}

	for _, p := range entries {
		k := cellKey{p.col, p.row}
		if _, ok := g.cells[k]; !ok {
			return nil, fmt.Errorf("pivot: column range dropped observed column %q", p.col)
		}
		g.cells[k] = g.cells[k].Add(p.value)
		g.totals[p.col] = g.totals[p.col].Add(p.value)
		if g.details != nil {
			g.details[k] = append(g.details[k], p.payer+" "+p.value.StringFixed(2))
		}
	}
	return g, nil
}

// Columns returns the column labels in display order.
func (g *Grid) Columns() []string {
	return append([]string(nil), g.columns...)
}

// Rows returns the row labels in display order.
func (g *Grid) Rows() []string {
	return append([]string(nil), g.rows...)
}

// Cell returns the sum for a cell, zero when nothing fell into it.
func (g *Grid) Cell(col, row string) decimal.Decimal {
	return g.cells[cellKey{col, row}]
}

// ColumnTotal returns the sum of every event in col.
func (g *Grid) ColumnTotal(col string) decimal.Decimal {
	return g.totals[col]
}

// GrandTotal returns the sum over all columns.
func (g *Grid) GrandTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range g.columns {
		sum = sum.Add(g.totals[c])
	}
	return sum
}

// HasDetails reports whether the grid was built with per-cell listings.
func (g *Grid) HasDetails() bool {
	return g.details != nil
}

// Details returns the "payer amount" lines of a cell in event order.
func (g *Grid) Details(col, row string) []string {
	return append([]string(nil), g.details[cellKey{col, row}]...)
}
