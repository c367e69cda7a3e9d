package cmd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/session"
)

// EnrollCommand returns the enroll subcommand.
func EnrollCommand() *cli.Command {
	return &cli.Command{
		Name:  "enroll",
		Usage: "Register a host public key with the device",
		Description: `Signs the SHA-256 digest of the public key with the private key and sends
both to the device. When --key is omitted the compressed public key is
derived from --secret.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "key",
				Usage: "Public key as hex (66 or 130 characters)",
			},
			&cli.StringFlag{
				Name:     "secret",
				Usage:    "Private key as hex (64 characters)",
				Required: true,
			},
		},
		Action: enrollAction,
	}
}

func enrollAction(ctx context.Context, cmd *cli.Command) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	pubHex := cmd.String("key")
	if pubHex == "" {
		pubHex, err = derivePublicKey(cmd.String("secret"))
		if err != nil {
			return err
		}
	}

	s, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer e.disconnect(s)

	e.printf("Public key: %s\n", pubHex)
	res, err := s.Enroll(ctx, pubHex, cmd.String("secret"))
	if res != nil {
		e.printf("Status:     %s\n", res.Status.Verbose())
		if msg := res.Message(); msg != "" {
			e.printf("Message:    %s\n", msg)
		}
		e.printf("Packets:    %d\n", res.TotalPackets)
	}
	if err != nil {
		if session.IsEnrollRejected(err) {
			return fmt.Errorf("enrollment rejected: %w", err)
		}
		return err
	}
	e.printf("Enrollment succeeded\n")
	return nil
}

// derivePublicKey returns the compressed public key of privHex.
func derivePublicKey(privHex string) (string, error) {
	priv, err := session.ParsePrivateKey(privHex)
	if err != nil {
		return "", err
	}
	pub, err := keycrypto.Secp256k1{}.DerivePublicKey(priv, true)
	if err != nil {
		return "", fmt.Errorf("derive public key: %w", err)
	}
	return hex.EncodeToString(pub), nil
}
