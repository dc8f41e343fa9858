package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/google/subcommands"

	"divs/internal/query"
	"divs/internal/records"
	"divs/internal/report"
	"divs/internal/taxyear"
)

type eventsCmd struct {
	stdout io.Writer
	stderr io.Writer

	year     int
	taxYear  string
	month    string
	taxMonth string
	filters  filterFlags
	output   outputFlags
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "list dividend payments" }
func (*eventsCmd) Usage() string {
	return `divs events [-year <yyyy>] [-tax-year <yyyy-yyyy>] [-month <name>] [-tax-month <name>] [-csv] [-company <name>] ...

  Lists the payments behind a report cell, oldest first.
`
}

func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Calendar year")
	f.StringVar(&c.taxYear, "tax-year", "", "Tax year, as 2013-2014 or 2013")
	f.StringVar(&c.month, "month", "", "Calendar month name")
	f.StringVar(&c.taxMonth, "tax-month", "", fmt.Sprintf("Tax month name, or %q", taxyear.AprilNext))
	c.filters.SetFlags(f)
	c.output.SetFlags(f)
}

func (c *eventsCmd) values() url.Values {
	v := url.Values{}
	if c.year != 0 {
		v.Set(query.ParamYear, strconv.Itoa(c.year))
	}
	if c.taxYear != "" {
		v.Set(query.ParamTaxYear, c.taxYear)
	}
	if c.month != "" {
		v.Set(query.ParamMonth, c.month)
	}
	if c.taxMonth != "" {
		v.Set(query.ParamTaxMonth, c.taxMonth)
	}
	c.filters.encode(v)
	return v
}

func (c *eventsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	v := c.values()
	crit, err := query.FromValues(v)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitUsageError
	}
	sel, err := query.SelectorFromValues(v)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitUsageError
	}
	cfg, snap, err := loadSnapshot(ctx, c.stderr, c.output.file)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitFailure
	}
	filtered, err := query.Filter(snap.Events, crit)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitUsageError
	}
	events := records.SortByDate(query.Select(filtered, sel))
	if err := c.output.print(c.stdout, report.EventsTable(events, int32(cfg.PerUnitScale))); err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
