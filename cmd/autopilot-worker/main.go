// Package main provides the autopilot worker: it consumes trigger events and runs the
// tenant workflows keyed to them.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "autopilot-worker",
		Usage:                 "Run CRM workflows for incoming trigger events",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
			NewValidateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
