// Package cmd implements the hwlink command line.
package cmd

import "github.com/urfave/cli/v3"

// App returns the root command with every subcommand attached.
func App() *cli.Command {
	return &cli.Command{
		Name:  "hwlink",
		Usage: "Talk to a hardware wallet over its USB packet protocols",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			EnrollCommand(),
			StatusCommand(),
			VersionCommand(),
			EchoCommand(),
			DevicesCommand(),
		},
	}
}
