package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"

	"github.com/google/subcommands"

	"divs/internal/metric"
	"divs/internal/report"
)

type reportCmd struct {
	stdout io.Writer
	stderr io.Writer

	bucket   string
	metric   string
	details  bool
	fillGaps bool
	filters  filterFlags
	output   outputFlags
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print the monthly dividend pivot" }
func (*reportCmd) Usage() string {
	return `divs report [-bucket year|taxYear] [-metric nominal|perUnit] [-details] [-fill-gaps] [-csv] [-raw] [-company <name>] ...

  Prints months down and years across, with a Total row. Tax years run from
  6 April; payments on 1-5 April land in "April (next)".
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.bucket, "bucket", string(report.BucketYear), "Column grouping: year or taxYear")
	f.StringVar(&c.metric, "metric", string(metric.KindNominal), "Cell value: nominal or perUnit")
	f.BoolVar(&c.details, "details", false, "List each payment instead of summing")
	f.BoolVar(&c.fillGaps, "fill-gaps", false, "Show years without payments")
	c.filters.SetFlags(f)
	c.output.SetFlags(f)
}

// values maps the flags onto the web page's query parameters.
func (c *reportCmd) values() (url.Values, error) {
	v := url.Values{}
	v.Set(report.ParamBucket, c.bucket)
	kind, err := metric.Parse(c.metric)
	if err != nil {
		return nil, err
	}
	if kind == metric.KindPerUnit {
		v.Set(report.ParamPerShare, "1")
	}
	if c.details {
		v.Set(report.ParamCellContent, report.CellDetails)
	}
	if c.fillGaps {
		v.Set(report.ParamFillGaps, "1")
	}
	c.filters.encode(v)
	return v, nil
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	v, err := c.values()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitUsageError
	}
	cfg, snap, err := loadSnapshot(ctx, c.stderr, c.output.file)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitFailure
	}
	req, err := report.ParseRequest(v, int32(cfg.PerUnitScale))
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitUsageError
	}
	rep, err := report.Build(snap.Events, req)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitFailure
	}
	if err := c.output.print(c.stdout, rep.Table()); err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
