package cli

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
)

const record = `date,person,broker,accountType,company,shares,amount
01.04.2013,A,B,Normal,X,100,50.00
10.05.2014,A,B,ISA,Y,10,5.00
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd.Execute(context.Background(), fs)
}

func TestReportCSV(t *testing.T) {
	path := writeFile(t, "divs.csv", record)
	var out, errOut bytes.Buffer
	cmd := &reportCmd{stdout: &out, stderr: &errOut}

	if st := run(t, cmd, "-file", path, "-csv"); st != subcommands.ExitSuccess {
		t.Fatalf("exit = %v, stderr = %s", st, errOut.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "Month,2013,2014" {
		t.Fatalf("header = %q", lines[0])
	}
	if last := lines[len(lines)-1]; last != "Total,50.00,5.00" {
		t.Fatalf("total = %q", last)
	}
}

func TestReportRawMarkdown(t *testing.T) {
	path := writeFile(t, "divs.csv", record)
	var out, errOut bytes.Buffer
	cmd := &reportCmd{stdout: &out, stderr: &errOut}

	if st := run(t, cmd, "-file", path, "-raw", "-bucket", "taxYear", "-company", "X"); st != subcommands.ExitSuccess {
		t.Fatalf("exit = %v, stderr = %s", st, errOut.String())
	}
	if !strings.HasPrefix(out.String(), "| Month | 2012-2013 |\n") {
		t.Fatalf("markdown = %q", out.String())
	}
	if !strings.Contains(out.String(), "| April (next) | 50.00 |") {
		t.Fatalf("April (next) row missing:\n%s", out.String())
	}
}

func TestReportRendered(t *testing.T) {
	path := writeFile(t, "divs.csv", record)
	var out, errOut bytes.Buffer
	cmd := &reportCmd{stdout: &out, stderr: &errOut}

	if st := run(t, cmd, "-file", path, "-style", "notty"); st != subcommands.ExitSuccess {
		t.Fatalf("exit = %v, stderr = %s", st, errOut.String())
	}
	if !strings.Contains(out.String(), "50.00") {
		t.Fatalf("rendered output missing amount:\n%s", out.String())
	}
}

func TestReportUsageErrors(t *testing.T) {
	path := writeFile(t, "divs.csv", record)
	tests := [][]string{
		{"-file", path, "-metric", "gross"},
		{"-file", path, "-bucket", "weekly"},
		{"-file", path, "-account", "SIPP"},
	}
	for _, args := range tests {
		var out, errOut bytes.Buffer
		cmd := &reportCmd{stdout: &out, stderr: &errOut}
		if st := run(t, cmd, args...); st != subcommands.ExitUsageError {
			t.Fatalf("%v: exit = %v", args, st)
		}
	}
}

func TestEventsCSV(t *testing.T) {
	path := writeFile(t, "divs.csv", record)
	var out, errOut bytes.Buffer
	cmd := &eventsCmd{stdout: &out, stderr: &errOut}

	if st := run(t, cmd, "-file", path, "-csv", "-tax-year", "2012-2013", "-tax-month", "April (next)"); st != subcommands.ExitSuccess {
		t.Fatalf("exit = %v, stderr = %s", st, errOut.String())
	}
	want := "date,person,broker,accountType,company,shares,amount,amountPerShare,isProjected\n" +
		"01.04.2013,A,B,Normal,X,100,50.00,50.00,0\n"
	if out.String() != want {
		t.Fatalf("events =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestCheck(t *testing.T) {
	good := writeFile(t, "good.csv", record)
	unordered := writeFile(t, "unordered.csv", `date,person,broker,accountType,company,shares,amount
10.05.2014,A,B,ISA,Y,10,5.00
01.04.2013,A,B,Normal,X,100,50.00
`)
	short := writeFile(t, "short.csv", "date,person,broker,accountType,company,shares,amount\n01.04.2013,A,B,Normal,X,100\n")

	tests := []struct {
		name  string
		args  []string
		want  subcommands.ExitStatus
		lines []string
	}{
		{"good", []string{good}, subcommands.ExitSuccess, []string{"ok   " + good + ": 2 events"}},
		{"unordered", []string{good, unordered}, subcommands.ExitFailure, []string{"ok   " + good, "FAIL " + unordered}},
		{"unordered without ordering check", []string{"-no-order", unordered}, subcommands.ExitSuccess, []string{"ok   " + unordered}},
		{"field count", []string{short}, subcommands.ExitFailure, []string{"FAIL " + short + ": parse error at line 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			cmd := &checkCmd{stdout: &out, stderr: &errOut}
			if st := run(t, cmd, tt.args...); st != tt.want {
				t.Fatalf("exit = %v, want %v\n%s", st, tt.want, out.String())
			}
			for _, l := range tt.lines {
				if !strings.Contains(out.String(), l) {
					t.Fatalf("output missing %q:\n%s", l, out.String())
				}
			}
		})
	}
}
