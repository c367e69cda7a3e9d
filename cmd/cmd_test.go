package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/gregLibert/hwlink/pkg/devicesim"
	"github.com/gregLibert/hwlink/pkg/transport/pcsc"
	"github.com/gregLibert/hwlink/pkg/transport/usb"
)

const (
	testSecret = "0000000000000000000000000000000000000000000000000000000000000001"
	testPub    = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
)

// run executes the hwlink app with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{"hwlink"}, args...))
	return out.String(), err
}

// resolve runs only the global flag handling and returns the resulting env.
func resolve(t *testing.T, args ...string) *env {
	t.Helper()
	var got *env
	app := &cli.Command{
		Name:      "hwlink",
		Flags:     globalFlags(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := newEnv(cmd)
			got = e
			return err
		},
	}
	require.NoError(t, app.Run(context.Background(), append([]string{"hwlink"}, args...)))
	require.NotNil(t, got)
	return got
}

func flagNames(flags []cli.Flag) map[string]bool {
	names := make(map[string]bool)
	for _, flag := range flags {
		switch f := flag.(type) {
		case *cli.StringFlag:
			names[f.Name] = true
		case *cli.BoolFlag:
			names[f.Name] = true
		}
	}
	return names
}

func TestApp(t *testing.T) {
	app := App()

	require.Equal(t, "hwlink", app.Name)
	require.Len(t, app.Commands, 5)

	names := flagNames(app.Flags)
	for _, want := range []string{"config", "vendor-id", "product-id", "transport", "pcsc-reader", "simulate", "log-level"} {
		require.True(t, names[want], "missing global flag %q", want)
	}
}

func TestEnrollCommand(t *testing.T) {
	cmd := EnrollCommand()

	require.NotNil(t, cmd)
	require.Equal(t, "enroll", cmd.Name)
	require.Len(t, cmd.Flags, 2)

	var secret *cli.StringFlag
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == "secret" {
			secret = f
		}
	}
	require.NotNil(t, secret)
	require.True(t, secret.Required)
}

func TestEchoCommand(t *testing.T) {
	cmd := EchoCommand()

	require.NotNil(t, cmd)
	require.Equal(t, "echo", cmd.Name)
	require.Len(t, cmd.Flags, 3) // --data, --hex, --trace
}

func TestDevicesCommand(t *testing.T) {
	cmd := DevicesCommand()

	require.NotNil(t, cmd)
	require.Equal(t, "devices", cmd.Name)
	require.Contains(t, cmd.Aliases, "list-devices")
}

func TestRun_EnrollDerivesPublicKey(t *testing.T) {
	out, err := run(t, "--simulate", "enroll", "--secret", testSecret)

	require.NoError(t, err)
	require.Contains(t, out, "Public key: "+testPub)
	require.Contains(t, out, "Set pubkey set success")
	require.Contains(t, out, "Packets:    1")
	require.Contains(t, out, "Enrollment succeeded")
}

func TestRun_EnrollKeyMismatch(t *testing.T) {
	other := "02" + testPub[2:64] + "00"
	_, err := run(t, "--simulate", "enroll", "--key", other, "--secret", testSecret)

	require.Error(t, err)
	require.Contains(t, err.Error(), "public key does not match private key")
}

func TestRun_EnrollRequiresSecret(t *testing.T) {
	_, err := run(t, "--simulate", "enroll", "--key", testPub)
	require.Error(t, err)
}

func TestRun_Status(t *testing.T) {
	out, err := run(t, "--simulate", "status")

	require.NoError(t, err)
	require.Contains(t, out, "Model:            hwlink-sim")
	require.Contains(t, out, "Firmware Version: 2.1.4")
	require.Contains(t, out, "Protocol Status:  Success")
	require.NotContains(t, out, "=== INTERNAL FRAME ===")

	out, err = run(t, "--simulate", "status", "--verbose")
	require.NoError(t, err)
	require.Contains(t, out, "=== INTERNAL FRAME ===")
}

func TestRun_Version(t *testing.T) {
	out, err := run(t, "--simulate", "version")

	require.NoError(t, err)
	require.Contains(t, out, "Firmware version: 2.1.4 (major 2, minor 1, patch 4)")
}

func TestRun_Echo(t *testing.T) {
	out, err := run(t, "--simulate", "echo", "--data", "hello")
	require.NoError(t, err)
	require.Contains(t, out, "Reply: hello")
	require.Contains(t, out, "Hex:   68656c6c6f")

	out, err = run(t, "--simulate", "echo", "--hex", "00ff", "--trace")
	require.NoError(t, err)
	require.Contains(t, out, "Reply: ..")
	require.Contains(t, out, "Packets: 1")

	_, err = run(t, "--simulate", "echo")
	require.Error(t, err)
}

func TestRun_Devices(t *testing.T) {
	out, err := run(t, "--simulate", "devices")

	require.NoError(t, err)
	require.Contains(t, out, "1. hwlink - hwlink-sim")
	require.Contains(t, out, "Vendor ID:  0x1209")
	require.Contains(t, out, "Product ID: 0x3001")
}

func TestRun_ConfigFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hwlink.toml")
	data := "transport = \"simulator\"\nvendor_id = 0x4242\nfragment_delay = \"0s\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	out, err := run(t, "--config", path, "--product-id", "0x9999", "devices")
	require.NoError(t, err)
	require.Contains(t, out, "Vendor ID:  0x4242")
	require.Contains(t, out, "Product ID: 0x9999")

	_, err = run(t, "--config", path, "--vendor-id", "nope", "devices")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--vendor-id")

	_, err = run(t, "--transport", "carrier-pigeon", "devices")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")
}

func TestNewEnv_SelectsDriver(t *testing.T) {
	e := resolve(t)
	require.IsType(t, &usb.Driver{}, e.driver)

	e = resolve(t, "--transport", "PCSC", "--pcsc-reader", "ACS ACR122U 00 00")
	d, ok := e.driver.(*pcsc.Driver)
	require.True(t, ok, "driver is %T", e.driver)
	require.Equal(t, "ACS ACR122U 00 00", d.Reader)

	e = resolve(t, "--transport", "usb", "--simulate")
	require.IsType(t, &devicesim.Device{}, e.driver)
}
