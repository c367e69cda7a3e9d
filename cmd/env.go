package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/gregLibert/hwlink/pkg/config"
	"github.com/gregLibert/hwlink/pkg/devicesim"
	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/logging"
	"github.com/gregLibert/hwlink/pkg/session"
	"github.com/gregLibert/hwlink/pkg/transport"
	"github.com/gregLibert/hwlink/pkg/transport/pcsc"
	"github.com/gregLibert/hwlink/pkg/transport/usb"
)

// env is the resolved configuration of one command invocation.
type env struct {
	cfg    config.Config
	logger zerolog.Logger
	driver transport.Driver
	out    io.Writer
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to a hwlink.toml file",
		},
		&cli.StringFlag{
			Name:  "vendor-id",
			Usage: fmt.Sprintf("USB vendor id (default: 0x%04x)", config.DefaultVendorID),
		},
		&cli.StringFlag{
			Name:  "product-id",
			Usage: fmt.Sprintf("USB product id (default: 0x%04x)", config.DefaultProductID),
		},
		&cli.StringFlag{
			Name:  "transport",
			Usage: "Device transport: usb, pcsc or simulator",
		},
		&cli.StringFlag{
			Name:  "pcsc-reader",
			Usage: "PC/SC reader name (default: first reader)",
		},
		&cli.BoolFlag{
			Name:  "simulate",
			Usage: "Talk to an in-memory simulated device",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "trace, debug, info, warn, error or off",
		},
	}
}

// resolveConfig layers flags over the config file over defaults.
func resolveConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cmd.IsSet("vendor-id") {
		id, err := config.ParseUSBID(cmd.String("vendor-id"))
		if err != nil {
			return config.Config{}, fmt.Errorf("--vendor-id: %w", err)
		}
		cfg.Device.VendorID = id
	}
	if cmd.IsSet("product-id") {
		id, err := config.ParseUSBID(cmd.String("product-id"))
		if err != nil {
			return config.Config{}, fmt.Errorf("--product-id: %w", err)
		}
		cfg.Device.ProductID = id
	}
	if cmd.IsSet("transport") {
		cfg.Transport = strings.ToLower(strings.TrimSpace(cmd.String("transport")))
	}
	if cmd.IsSet("pcsc-reader") {
		cfg.PCSCReader = cmd.String("pcsc-reader")
	}
	if cmd.Bool("simulate") {
		cfg.Transport = config.TransportSimulator
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newEnv(cmd *cli.Command) (*env, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig(logging.ProfileRuntime)
	if os.Getenv(logging.EnvLogLevel) == "" {
		if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logCfg.Level = lvl
		}
	}
	errOut := cmd.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	logger := logging.New(logCfg, errOut)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	e := &env{cfg: cfg, logger: logger, out: out}
	switch cfg.Transport {
	case config.TransportPCSC:
		e.driver = pcsc.NewDriver(cfg.PCSCReader, logger)
	case config.TransportSimulator:
		e.driver = devicesim.New(
			devicesim.WithID(cfg.Device),
			devicesim.WithCodec(cfg.Codec()),
			devicesim.WithLogger(logger.With().Str("component", "devicesim").Logger()),
		)
	default:
		e.driver = usb.NewDriver(logger)
	}
	return e, nil
}

// connect opens a session to the configured device.
func (e *env) connect(ctx context.Context) (*session.Session, error) {
	s := session.New(e.driver, keycrypto.Secp256k1{},
		session.WithLogger(e.logger),
		session.WithReadTimeout(e.cfg.ReadTimeout),
		session.WithEnrollTimeout(e.cfg.EnrollTimeout),
		session.WithFragmentDelay(e.cfg.FragmentDelay),
		session.WithReceiveDelay(e.cfg.ReceiveDelay),
		session.WithRequestID(e.cfg.RequestID),
		session.WithCodec(e.cfg.Codec()),
	)
	if err := s.Connect(ctx, e.cfg.Device); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// disconnect closes s, logging rather than returning a close failure.
func (e *env) disconnect(s *session.Session) {
	if err := s.Disconnect(); err != nil {
		e.logger.Warn().Err(err).Msg("disconnect failed")
	}
}
