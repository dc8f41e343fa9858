package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"divs/internal/core"
	"divs/internal/metric"
	"divs/internal/records"
)

// ColAmountPerShare is the derived column of the events table.
const ColAmountPerShare = "amountPerShare"

// Table is a header row plus data rows of display text.
type Table struct {
	Header []string
	Rows   [][]string
}

// FormatAmount renders a numeric cell with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatCell renders a pivot value of kind. Per-unit values keep every
// digit the metric rounded to.
func FormatCell(kind metric.Kind, d decimal.Decimal) string {
	if kind == metric.KindPerUnit {
		return exact(d)
	}
	return FormatAmount(d)
}

// exact renders d with at least two decimals and without losing digits.
func exact(d decimal.Decimal) string {
	places := -d.Exponent()
	if places < 2 {
		places = 2
	}
	return d.StringFixed(places)
}

// Table renders the report as text. In details mode a cell holds its
// "payer amount" lines separated by newlines.
func (r *Report) Table() Table {
	g := r.Grid
	cols := g.Columns()
	t := Table{Header: append([]string{r.Title}, cols...)}
	for _, row := range g.Rows() {
		line := make([]string, 0, len(cols)+1)
		line = append(line, row)
		for _, c := range cols {
			if g.HasDetails() {
				line = append(line, strings.Join(g.Details(c, row), "\n"))
			} else {
				line = append(line, FormatCell(r.Request.Metric, g.Cell(c, row)))
			}
		}
		t.Rows = append(t.Rows, line)
	}
	total := make([]string, 0, len(cols)+1)
	total = append(total, TotalLabel)
	for _, c := range cols {
		total = append(total, FormatCell(r.Request.Metric, g.ColumnTotal(c)))
	}
	t.Rows = append(t.Rows, total)
	return t
}

// EventsHeader is the header of the events listing.
func EventsHeader() []string {
	h := records.Header()
	last := len(h) - 1
	out := append([]string{}, h[:last]...)
	return append(out, ColAmountPerShare, h[last])
}

// EventsTable lists events one per row.
func EventsTable(events []core.DividendEvent, scale int32) Table {
	perUnit := metric.PerUnit(scale)
	t := Table{Header: EventsHeader()}
	for _, e := range events {
		projected := "0"
		if e.Projected {
			projected = "1"
		}
		t.Rows = append(t.Rows, []string{
			e.Date.String(),
			e.Holder,
			e.Custodian,
			e.AccountClass.String(),
			e.Payer,
			strconv.FormatInt(e.Units, 10),
			exact(e.Amount),
			exact(perUnit(e)),
			projected,
		})
	}
	return t
}

// WriteCSV writes the table as comma separated values.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvRow(t.Header)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(csvRow(row)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = csvCell(cell)
	}
	return out
}

// csvCell neutralizes text cells a spreadsheet would run as a formula.
// Numbers pass through unchanged.
func csvCell(s string) string {
	if _, err := decimal.NewFromString(s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// Markdown renders the table as a GitHub style pipe table.
func Markdown(t Table) string {
	var b strings.Builder
	writeMarkdownRow(&b, t.Header)
	b.WriteString("|")
	for range t.Header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		writeMarkdownRow(&b, row)
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\n", "<br>")

func writeMarkdownRow(b *strings.Builder, row []string) {
	b.WriteString("|")
	for _, cell := range row {
		b.WriteString(" ")
		b.WriteString(markdownEscaper.Replace(cell))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}
