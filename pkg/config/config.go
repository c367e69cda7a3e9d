// Package config loads the hwlink TOML configuration.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gregLibert/hwlink/pkg/eapdu"
	"github.com/gregLibert/hwlink/pkg/transport"
)

const (
	DefaultVendorID  uint16 = 0x1209
	DefaultProductID uint16 = 0x3001

	TransportUSB       = "usb"
	TransportPCSC      = "pcsc"
	TransportSimulator = "simulator"

	ByteOrderLittle = "little"
	ByteOrderBig    = "big"
)

// Config is the resolved runtime configuration.
type Config struct {
	Device        transport.DeviceID
	Transport     string
	PCSCReader    string
	ReadTimeout   time.Duration
	EnrollTimeout time.Duration
	FragmentDelay time.Duration
	ReceiveDelay  time.Duration
	RequestID     uint16
	ByteOrder     string
	LogLevel      string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Device:        transport.DeviceID{VendorID: DefaultVendorID, ProductID: DefaultProductID},
		Transport:     TransportUSB,
		ReadTimeout:   5 * time.Second,
		EnrollTimeout: 10 * time.Second,
		FragmentDelay: 50 * time.Millisecond,
		ReceiveDelay:  10 * time.Millisecond,
		RequestID:     0,
		ByteOrder:     ByteOrderLittle,
		LogLevel:      "info",
	}
}

// Codec returns the packet codec selected by ByteOrder.
func (c Config) Codec() eapdu.Codec {
	if c.ByteOrder == ByteOrderBig {
		return eapdu.BigEndian
	}
	return eapdu.Default
}

// hwlink.toml key mapping.
type fileConfig struct {
	VendorID      usbID  `toml:"vendor_id"`
	ProductID     usbID  `toml:"product_id"`
	Transport     string `toml:"transport"`
	PCSCReader    string `toml:"pcsc_reader"`
	ReadTimeout   string `toml:"read_timeout"`
	EnrollTimeout string `toml:"enroll_timeout"`
	FragmentDelay string `toml:"fragment_delay"`
	ReceiveDelay  string `toml:"receive_delay"`
	RequestID     int64  `toml:"request_id"`
	ByteOrder     string `toml:"byte_order"`
	LogLevel      string `toml:"log_level"`
}

// Load reads path and overlays the keys it defines on Default.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	return apply(Default(), raw, meta)
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("parse config: unknown key %q", undecoded[0].String())
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if meta.IsDefined("vendor_id") {
		cfg.Device.VendorID = uint16(raw.VendorID)
	}
	if meta.IsDefined("product_id") {
		cfg.Device.ProductID = uint16(raw.ProductID)
	}
	if meta.IsDefined("transport") {
		cfg.Transport = strings.ToLower(strings.TrimSpace(raw.Transport))
	}
	if meta.IsDefined("pcsc_reader") {
		cfg.PCSCReader = strings.TrimSpace(raw.PCSCReader)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"enroll_timeout", raw.EnrollTimeout, &cfg.EnrollTimeout},
		{"fragment_delay", raw.FragmentDelay, &cfg.FragmentDelay},
		{"receive_delay", raw.ReceiveDelay, &cfg.ReceiveDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
		if v < 0 {
			return Config{}, fmt.Errorf("%s: must not be negative", d.key)
		}
		*d.dst = v
	}

	if meta.IsDefined("request_id") {
		if raw.RequestID < 0 || raw.RequestID > 0xFFFF {
			return Config{}, fmt.Errorf("request_id: %d out of range", raw.RequestID)
		}
		cfg.RequestID = uint16(raw.RequestID)
	}
	if meta.IsDefined("byte_order") {
		cfg.ByteOrder = strings.ToLower(strings.TrimSpace(raw.ByteOrder))
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportUSB, TransportPCSC, TransportSimulator:
	default:
		return fmt.Errorf("transport: unsupported %q (expected usb, pcsc or simulator)", c.Transport)
	}
	switch c.ByteOrder {
	case ByteOrderLittle, ByteOrderBig:
	default:
		return fmt.Errorf("byte_order: unsupported %q (expected little or big)", c.ByteOrder)
	}
	if c.ReadTimeout == 0 || c.EnrollTimeout == 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// ParseUSBID accepts decimal or 0x-prefixed hexadecimal identifiers.
func ParseUSBID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid usb id %q: %w", s, err)
	}
	return uint16(v), nil
}

// usbID decodes either a TOML integer (vendor_id = 0x1209) or a string
// (vendor_id = "0x1209").
type usbID uint16

func (u *usbID) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		if x < 0 || x > 0xFFFF {
			return fmt.Errorf("usb id %d out of range", x)
		}
		*u = usbID(x)
		return nil
	case string:
		id, err := ParseUSBID(x)
		if err != nil {
			return err
		}
		*u = usbID(id)
		return nil
	default:
		return fmt.Errorf("usb id must be an integer or string, got %T", v)
	}
}
