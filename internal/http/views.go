package http

import (
	"github.com/shopspring/decimal"

	"divs/internal/core"
	"divs/internal/metric"
	"divs/internal/query"
	"divs/internal/records"
	"divs/internal/report"
)

type cellView struct {
	Text  string
	Lines []string
	Href  string
	Zero  bool
}

type linkView struct {
	Label string
	Href  string
	On    bool
}

type pivotPage struct {
	Title    string
	Header   []cellView
	Rows     [][]cellView
	Total    []cellView
	Controls []linkView
	Filters  []linkView
	CSVHref  string
	Active   []linkView
	Inactive []linkView
	Version  string
}

type eventRow struct {
	Cells []string
	Href  string
}

type eventsPage struct {
	Header   []string
	Rows     []eventRow
	Count    int
	Total    string
	Filters  []linkView
	BackHref string
	CSVHref  string
	Version  string
}

// amount renders a report value. Nominal sums carry the currency; per-share
// values are pence per share and stay bare.
func (s *Server) amount(kind metric.Kind, d decimal.Decimal) string {
	if kind == metric.KindPerUnit {
		return report.FormatCell(kind, d)
	}
	return core.FormatMoney(d, s.currency)
}

func (s *Server) pivotView(rep *report.Report, snap []core.DividendEvent, version string) pivotPage {
	g := rep.Grid
	req := rep.Request
	cols := g.Columns()

	page := pivotPage{Title: rep.Title, Version: version}
	for j, c := range append([]string{rep.Title}, cols...) {
		page.Header = append(page.Header, cellView{Text: c, Href: eventsHref(rep.Links[0][j])})
	}
	for i, row := range g.Rows() {
		links := rep.Links[i+1]
		line := []cellView{{Text: row, Href: eventsHref(links[0])}}
		for j, c := range cols {
			v := g.Cell(c, row)
			cell := cellView{Href: eventsHref(links[j+1]), Zero: v.IsZero()}
			if g.HasDetails() {
				cell.Lines = g.Details(c, row)
			} else {
				cell.Text = s.amount(req.Metric, v)
			}
			line = append(line, cell)
		}
		page.Rows = append(page.Rows, line)
	}
	totals := rep.Links[len(rep.Links)-1]
	page.Total = []cellView{{Text: report.TotalLabel, Href: eventsHref(totals[0])}}
	for j, c := range cols {
		page.Total = append(page.Total, cellView{Text: s.amount(req.Metric, g.ColumnTotal(c)), Href: eventsHref(totals[j+1])})
	}

	page.Controls = controls(req)
	page.Filters = filterLinks(req.Criteria, func(c query.Criteria) string {
		next := req
		next.Criteria = c
		return pivotHref(next)
	})
	csv := req.Values()
	csv.Set(report.ParamCSV, "1")
	page.CSVHref = href(pathPivot, csv)

	active, inactive := records.ActivePayers(snap, s.now(), s.window)
	page.Active = payerLinks(req, active)
	page.Inactive = payerLinks(req, inactive)
	return page
}

func controls(req report.Request) []linkView {
	toggle := func(label string, on bool, flip func(*report.Request)) linkView {
		next := req
		next.Criteria = req.Criteria.Clone()
		flip(&next)
		return linkView{Label: label, Href: pivotHref(next), On: on}
	}
	return []linkView{
		toggle("Tax years", req.Bucket == report.BucketTaxYear, func(r *report.Request) {
			if r.Bucket == report.BucketTaxYear {
				r.Bucket = report.BucketYear
			} else {
				r.Bucket = report.BucketTaxYear
			}
		}),
		toggle("Per share", req.Metric == metric.KindPerUnit, func(r *report.Request) {
			if r.Metric == metric.KindPerUnit {
				r.Metric = metric.KindNominal
			} else {
				r.Metric = metric.KindPerUnit
			}
		}),
		toggle("Details", req.Details, func(r *report.Request) { r.Details = !r.Details }),
		toggle("Fill gaps", req.FillGaps, func(r *report.Request) { r.FillGaps = !r.FillGaps }),
	}
}

// filterLinks lists the active criteria, each linking to the page without it.
func filterLinks(c query.Criteria, without func(query.Criteria) string) []linkView {
	var out []linkView
	for _, f := range c.Keys() {
		rest := c.Clone()
		delete(rest, f)
		out = append(out, linkView{Label: f.Param() + ": " + c[f], Href: without(rest), On: true})
	}
	return out
}

func payerLinks(req report.Request, payers []string) []linkView {
	out := make([]linkView, 0, len(payers))
	current := req.Criteria[query.Payer]
	for _, p := range payers {
		next := req
		next.Criteria = req.Criteria.Clone()
		next.Criteria[query.Payer] = p
		out = append(out, linkView{Label: p, Href: pivotHref(next), On: p == current})
	}
	return out
}

func (s *Server) eventsView(events []core.DividendEvent, crit query.Criteria, sel query.Selector, version string) eventsPage {
	t := report.EventsTable(events, s.scale)
	page := eventsPage{Header: t.Header, Count: len(events), Version: version}

	total := decimal.Zero
	for i, e := range events {
		total = total.Add(e.Amount)
		row := t.Rows[i]
		byPayer := query.Criteria{query.Payer: e.Payer}
		page.Rows = append(page.Rows, eventRow{Cells: row, Href: href(pathPivot, encodeCriteria(byPayer))})
	}
	page.Total = core.FormatMoney(total, s.currency)

	page.Filters = filterLinks(crit, func(c query.Criteria) string {
		v := encodeCriteria(c)
		sel.Encode(v)
		return href(pathEvents, v)
	})
	page.BackHref = href(pathPivot, encodeCriteria(crit))

	csv := encodeCriteria(crit)
	sel.Encode(csv)
	csv.Set(report.ParamCSV, "1")
	page.CSVHref = href(pathEvents, csv)
	return page
}
