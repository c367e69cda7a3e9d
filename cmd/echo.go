package cmd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gregLibert/hwlink/pkg/tlv"
)

// EchoCommand returns the echo subcommand.
func EchoCommand() *cli.Command {
	return &cli.Command{
		Name:  "echo",
		Usage: "Send data to the device echo command and print the reply",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "Text to send",
			},
			&cli.StringFlag{
				Name:  "hex",
				Usage: "Bytes to send, as hex",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "Print every packet of the exchange",
			},
		},
		Action: echoAction,
	}
}

func echoAction(ctx context.Context, cmd *cli.Command) error {
	var data []byte
	switch {
	case cmd.String("hex") != "":
		b, err := tlv.ParseHex(cmd.String("hex"))
		if err != nil {
			return fmt.Errorf("--hex: %w", err)
		}
		data = b
	case cmd.String("data") != "":
		data = []byte(cmd.String("data"))
	default:
		return fmt.Errorf("one of --data or --hex is required")
	}

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	s, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer e.disconnect(s)

	reply, err := s.Echo(ctx, data)
	if cmd.Bool("trace") {
		for _, tx := range s.Trace() {
			e.printf("%s\n", tx.Describe())
		}
	}
	if err != nil {
		return err
	}

	e.printf("Sent:  %d bytes\n", len(data))
	e.printf("Reply: %s\n", tlv.MakeSafeASCII(reply))
	e.printf("Hex:   %s\n", hex.EncodeToString(reply))
	return nil
}
