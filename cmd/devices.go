package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gregLibert/hwlink/pkg/transport"
)

// DevicesCommand returns the devices subcommand.
func DevicesCommand() *cli.Command {
	return &cli.Command{
		Name:    "devices",
		Aliases: []string{"list-devices"},
		Usage:   "List attached devices on the selected transport",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			lister, ok := e.driver.(transport.Lister)
			if !ok {
				return fmt.Errorf("%s: %w", e.cfg.Transport, transport.ErrUnsupported)
			}

			attached, err := lister.List(ctx)
			if err != nil {
				if errors.Is(err, transport.ErrUnsupported) {
					return err
				}
				return fmt.Errorf("list devices: %w", err)
			}
			if len(attached) == 0 {
				e.printf("No devices found\n")
				return nil
			}

			for i, a := range attached {
				e.printf("%d. %s - %s\n", i+1, orUnknown(a.Manufacturer), orUnknown(a.Product))
				if a.ID != (transport.DeviceID{}) {
					e.printf("   Vendor ID:  0x%04x\n", a.ID.VendorID)
					e.printf("   Product ID: 0x%04x\n", a.ID.ProductID)
				}
			}
			return nil
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
