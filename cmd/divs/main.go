// Command divs reports UK dividend income as a month by year pivot.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"divs/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, os.Stdout, os.Stderr)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
