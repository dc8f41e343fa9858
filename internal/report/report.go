// Package report turns dividend events into pivot reports and tables.
package report

import (
	"net/url"
	"strconv"

	"divs/internal/core"
	"divs/internal/metric"
	"divs/internal/pivot"
	"divs/internal/query"
	"divs/internal/taxyear"
)

// Title labels the row header column.
const Title = "Month"

// TotalLabel labels the totals row.
const TotalLabel = "Total"

// Target is the drill-down behind one report cell.
type Target struct {
	Selector query.Selector
	Criteria query.Criteria
}

// Values encodes the target as events page parameters.
func (t Target) Values() url.Values {
	v := url.Values{}
	t.Criteria.Encode(v)
	t.Selector.Encode(v)
	return v
}

// Report is a built pivot with its navigation targets.
type Report struct {
	Request Request
	Title   string
	Grid    *pivot.Grid
	// Links has one row per table row, header and totals included, and one
	// entry per table column, the row label included.
	Links [][]Target
}

// Build filters events by the request criteria and pivots them.
func Build(events []core.DividendEvent, req Request) (*Report, error) {
	bucket, err := ParseBucket(string(req.Bucket))
	if err != nil {
		return nil, err
	}
	req.Bucket = bucket
	if req.Metric == "" {
		req.Metric = metric.KindNominal
	}
	if req.Criteria == nil {
		req.Criteria = query.Criteria{}
	}

	selected, err := query.Filter(events, req.Criteria)
	if err != nil {
		return nil, err
	}
	grid, err := pivot.Build(selected, specFor(req))
	if err != nil {
		return nil, err
	}
	return &Report{
		Request: req,
		Title:   Title,
		Grid:    grid,
		Links:   links(grid, req),
	}, nil
}

func specFor(req Request) pivot.Spec {
	spec := pivot.Spec{
		Amount:  metric.For(req.Metric, req.Scale),
		Details: req.Details,
	}
	switch req.Bucket {
	case BucketTaxYear:
		spec.ColumnKey = func(e core.DividendEvent) string { return taxyear.Label(taxyear.Of(e.Date)) }
		spec.Rows = taxyear.TaxMonths
		spec.RowKey = func(e core.DividendEvent) string { return taxyear.MonthBucketOf(e.Date) }
		if req.FillGaps {
			spec.ColumnRange = pivot.TaxYearRange
		}
	default:
		spec.ColumnKey = func(e core.DividendEvent) string { return strconv.Itoa(e.Date.Year()) }
		spec.Rows = taxyear.CalendarMonths
		spec.RowKey = func(e core.DividendEvent) string { return taxyear.MonthName(e.Date) }
		if req.FillGaps {
			spec.ColumnRange = pivot.YearRange
		}
	}
	return spec
}

func links(g *pivot.Grid, req Request) [][]Target {
	cols := g.Columns()
	target := func(col, row string) Target {
		var s query.Selector
		switch req.Bucket {
		case BucketTaxYear:
			if col != "" {
				s.TaxYear, _ = taxyear.ParseLabel(col)
			}
			s.TaxMonth = row
		default:
			if col != "" {
				s.Year, _ = strconv.Atoi(col)
			}
			s.Month = row
		}
		return Target{Selector: s, Criteria: req.Criteria}
	}
	line := func(row string) []Target {
		out := make([]Target, 0, len(cols)+1)
		out = append(out, target("", row))
		for _, c := range cols {
			out = append(out, target(c, row))
		}
		return out
	}

	header := line("")
	out := [][]Target{header}
	for _, r := range g.Rows() {
		out = append(out, line(r))
	}
	// header and totals drill into the same columns
	return append(out, header)
}
