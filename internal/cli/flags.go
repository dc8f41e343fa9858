package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"

	"github.com/charmbracelet/glamour"

	"divs/internal/config"
	applog "divs/internal/log"
	"divs/internal/query"
	"divs/internal/report"
	"divs/internal/source"
)

// filterFlags are the record filters shared by report and events.
type filterFlags struct {
	company   string
	person    string
	broker    string
	account   string
	projected string
}

func (ff *filterFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&ff.company, "company", "", "Only this company")
	f.StringVar(&ff.person, "person", "", "Only this person")
	f.StringVar(&ff.broker, "broker", "", "Only this broker")
	f.StringVar(&ff.account, "account", "", "Only this account type (Normal, ISA)")
	f.StringVar(&ff.projected, "projected", "", "1 for projected payments only, 0 for paid only")
}

// encode writes the filters as the query parameters the web pages use, so
// both surfaces share one validation path.
func (ff *filterFlags) encode(v url.Values) {
	set := func(f query.Field, value string) {
		if value != "" {
			v.Set(f.Param(), value)
		}
	}
	set(query.Payer, ff.company)
	set(query.Holder, ff.person)
	set(query.Custodian, ff.broker)
	set(query.AccountClass, ff.account)
	set(query.Projected, ff.projected)
}

// outputFlags select how a table is printed.
type outputFlags struct {
	csv   bool
	raw   bool
	style string
	file  string
}

func (of *outputFlags) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&of.csv, "csv", false, "Print comma separated values")
	f.BoolVar(&of.raw, "raw", false, "Print plain markdown instead of rendering it")
	f.StringVar(&of.style, "style", "auto", "Glamour style (auto, dark, light, notty)")
	f.StringVar(&of.file, "file", "", "Read this record instead of the configured backend")
}

func (of *outputFlags) print(w io.Writer, t report.Table) error {
	if of.csv {
		return report.WriteCSV(w, t)
	}
	md := report.Markdown(t)
	if of.raw {
		_, err := io.WriteString(w, md)
		return err
	}
	out, err := renderMarkdown(md, of.style)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func renderMarkdown(md, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(0))
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render(md)
}

// loadSnapshot reads configuration and the record for a one-shot command.
func loadSnapshot(ctx context.Context, stderr io.Writer, path string) (*config.Config, *source.Snapshot, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := SetupLogger(cfg, stderr)
	reader, err := OpenReader(ctx, cfg, logger, path)
	if err != nil {
		return nil, nil, err
	}
	snap, err := reader.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Dividend record loaded", applog.FieldOrigin, snap.Origin, applog.FieldEvents, len(snap.Events))
	return cfg, snap, nil
}
