// Package usb drives the device over libusb.
//
// The device exposes one vendor interface with an OUT and an IN endpoint,
// bulk or interrupt. Kernel drivers bound to the interface are detached on
// open and reattached on close.
package usb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
	"github.com/rs/zerolog"

	"github.com/gregLibert/hwlink/pkg/transport"
)

const (
	configNum    = 1
	interfaceNum = 0
	altSetting   = 0
)

// Driver opens devices through a libusb context.
type Driver struct {
	Logger zerolog.Logger
}

// NewDriver returns a libusb-backed driver.
func NewDriver(logger zerolog.Logger) *Driver {
	return &Driver{Logger: logger}
}

// Open claims the vendor interface of the first device matching id.
func (d *Driver) Open(_ context.Context, id transport.DeviceID) (transport.Conn, error) {
	usbCtx := gousb.NewContext()

	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(id.VendorID), gousb.ID(id.ProductID))
	if err != nil {
		usbCtx.Close()
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	if dev == nil {
		usbCtx.Close()
		return nil, fmt.Errorf("%w: %s", transport.ErrDeviceNotFound, id)
	}

	c := &conn{ctx: usbCtx, dev: dev, logger: d.Logger.With().Str("device", id.String()).Logger()}
	if err := c.claim(); err != nil {
		c.Close()
		return nil, err
	}

	c.logger.Debug().
		Int("out_ep", c.out.Desc.Number).
		Int("in_ep", c.in.Desc.Number).
		Int("max_packet", c.in.Desc.MaxPacketSize).
		Msg("usb interface claimed")
	return c, nil
}

// List enumerates every USB device on the bus. Manufacturer and product
// strings are left empty for devices that cannot be opened.
func (d *Driver) List(_ context.Context) ([]transport.Attached, error) {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	var found []transport.Attached
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		found = append(found, transport.Attached{
			ID: transport.DeviceID{VendorID: uint16(desc.Vendor), ProductID: uint16(desc.Product)},
		})
		return true
	})
	if err != nil {
		d.Logger.Debug().Err(err).Msg("some usb devices could not be opened")
	}

	for _, dev := range devs {
		id := transport.DeviceID{VendorID: uint16(dev.Desc.Vendor), ProductID: uint16(dev.Desc.Product)}
		for i := range found {
			if found[i].ID != id || found[i].Product != "" {
				continue
			}
			found[i].Manufacturer, _ = dev.Manufacturer()
			found[i].Product, _ = dev.Product()
			break
		}
		dev.Close()
	}
	return found, nil
}

type conn struct {
	mu     sync.Mutex
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	logger zerolog.Logger
	closed bool
}

func (c *conn) claim() error {
	if err := c.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("enable kernel driver auto-detach: %w", err)
	}

	cfg, err := c.dev.Config(configNum)
	if err != nil {
		return fmt.Errorf("select config %d: %w", configNum, err)
	}
	c.cfg = cfg

	intf, err := cfg.Interface(interfaceNum, altSetting)
	if err != nil {
		return fmt.Errorf("claim interface %d: %w", interfaceNum, err)
	}
	c.intf = intf

	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk && ep.TransferType != gousb.TransferTypeInterrupt {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			if c.in == nil {
				if c.in, err = intf.InEndpoint(ep.Number); err != nil {
					return fmt.Errorf("open IN endpoint %d: %w", ep.Number, err)
				}
			}
		case gousb.EndpointDirectionOut:
			if c.out == nil {
				if c.out, err = intf.OutEndpoint(ep.Number); err != nil {
					return fmt.Errorf("open OUT endpoint %d: %w", ep.Number, err)
				}
			}
		}
	}

	if c.in == nil || c.out == nil {
		return fmt.Errorf("interface %d lacks IN/OUT endpoints", interfaceNum)
	}
	return nil
}

func (c *conn) Send(ctx context.Context, packet []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}

	n, err := c.out.WriteContext(ctx, packet)
	if err != nil {
		return fmt.Errorf("usb write: %w", err)
	}
	if n != len(packet) {
		return fmt.Errorf("usb write: short write %d/%d", n, len(packet))
	}
	return nil
}

func (c *conn) Receive(ctx context.Context, maxLen int, timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrClosed
	}

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// libusb reads whole packets; a smaller buffer overflows.
	buf := make([]byte, max(maxLen, c.in.Desc.MaxPacketSize))
	n, err := c.in.ReadContext(readCtx, buf)
	if err != nil {
		if errors.Is(readCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, transport.ErrTimeout
		}
		if errors.Is(err, gousb.ErrorTimeout) || errors.Is(err, gousb.TransferTimedOut) {
			return nil, transport.ErrTimeout
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("usb read: %w", err)
	}
	return buf[:min(n, maxLen)], nil
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.intf != nil {
		c.intf.Close()
	}
	if c.cfg != nil {
		errs = append(errs, c.cfg.Close())
	}
	if c.dev != nil {
		errs = append(errs, c.dev.Close())
	}
	errs = append(errs, c.ctx.Close())
	return errors.Join(errs...)
}
