package cli

import (
	"io"

	"github.com/google/subcommands"
)

// Register adds the divs subcommands to c. Command output goes to stdout,
// diagnostics and logs to stderr.
func Register(c *subcommands.Commander, stdout, stderr io.Writer) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&serveCmd{stderr: stderr}, "server")

	c.Register(&reportCmd{stdout: stdout, stderr: stderr}, "reports")
	c.Register(&eventsCmd{stdout: stdout, stderr: stderr}, "reports")

	c.Register(&checkCmd{stdout: stdout, stderr: stderr}, "records")
}
