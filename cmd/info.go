package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
)

// StatusCommand returns the status subcommand.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the device info reported by the device",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Dump the decoded response frame",
			},
		},
		Action: statusAction,
	}
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	s, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer e.disconnect(s)

	info, err := s.DeviceInfo(ctx)
	if err != nil {
		return err
	}

	e.printf("Model:            %s\n", info.Model)
	e.printf("Serial Number:    %s\n", info.SerialNumber)
	e.printf("Hardware Version: %s\n", info.HardwareVersion)
	e.printf("Firmware Version: %s\n", info.FirmwareVersion)
	e.printf("Boot Version:     %s\n", info.BootVersion)
	e.printf("Protocol Status:  %s\n", info.Frame.StatusMessage())
	if cmd.Bool("verbose") {
		e.printf("\n%s\n", info.Frame.Describe())
	}
	return nil
}

// VersionCommand returns the version subcommand.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the device firmware version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			s, err := e.connect(ctx)
			if err != nil {
				return err
			}
			defer e.disconnect(s)

			v, err := s.FirmwareVersion(ctx)
			if err != nil {
				return err
			}
			e.printf("Firmware version: %s (major %d, minor %d, patch %d)\n", v.Raw, v.Major, v.Minor, v.Patch)
			return nil
		},
	}
}
