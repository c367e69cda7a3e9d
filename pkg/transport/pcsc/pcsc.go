// Package pcsc drives the device through a PC/SC reader.
//
// Some device revisions enumerate as a CCID reader instead of a raw vendor
// interface. PC/SC is strictly request/response: every Send is a Transmit
// and its reply is queued for the following Receive calls.
package pcsc

import (
	"context"
	"fmt"
	"time"

	"github.com/ebfe/scard"
	"github.com/rs/zerolog"

	"github.com/gregLibert/hwlink/pkg/transport"
)

// Driver opens the device through the PC/SC resource manager.
type Driver struct {
	// Reader selects a reader by exact name. Empty picks the first one.
	Reader string
	Logger zerolog.Logger
}

// NewDriver returns a PC/SC driver.
func NewDriver(reader string, logger zerolog.Logger) *Driver {
	return &Driver{Reader: reader, Logger: logger}
}

// Open connects to the selected reader. The device id is informational; PC/SC
// does not expose USB identifiers.
func (d *Driver) Open(_ context.Context, id transport.DeviceID) (transport.Conn, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish pc/sc context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		_ = ctx.Release()
		return nil, fmt.Errorf("list readers: %w", err)
	}

	reader, err := selectReader(readers, d.Reader)
	if err != nil {
		_ = ctx.Release()
		return nil, fmt.Errorf("%w: %s: %v", transport.ErrDeviceNotFound, id, err)
	}

	// Force T=0 or T=1 to avoid "Parameter Incorrect" errors on some readers.
	card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		_ = ctx.Release()
		return nil, fmt.Errorf("connect reader %q: %w", reader, err)
	}

	d.Logger.Debug().Str("reader", reader).Msg("pc/sc reader connected")
	return &conn{ctx: ctx, card: card}, nil
}

// List returns one entry per PC/SC reader, named by the reader.
func (d *Driver) List(_ context.Context) ([]transport.Attached, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish pc/sc context: %w", err)
	}
	defer func() { _ = ctx.Release() }()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	found := make([]transport.Attached, 0, len(readers))
	for _, r := range readers {
		found = append(found, transport.Attached{Product: r})
	}
	return found, nil
}

type conn struct {
	ctx     *scard.Context
	card    *scard.Card
	pending [][]byte
	closed  bool
}

func (c *conn) Send(_ context.Context, packet []byte) error {
	if c.closed {
		return transport.ErrClosed
	}
	resp, err := c.card.Transmit(packet)
	if err != nil {
		return fmt.Errorf("transmit: %w", err)
	}
	if len(resp) > 0 {
		c.pending = append(c.pending, resp)
	}
	return nil
}

// Receive returns the oldest queued reply. Transmit is synchronous, so an
// empty queue cannot fill by waiting and times out immediately.
func (c *conn) Receive(ctx context.Context, maxLen int, _ time.Duration) ([]byte, error) {
	if c.closed {
		return nil, transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.pending) == 0 {
		return nil, transport.ErrTimeout
	}
	resp := c.pending[0]
	c.pending = c.pending[1:]
	return resp[:min(len(resp), maxLen)], nil
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.card.Disconnect(scard.LeaveCard); err != nil {
		_ = c.ctx.Release()
		return fmt.Errorf("disconnect card: %w", err)
	}
	if err := c.ctx.Release(); err != nil {
		return fmt.Errorf("release context: %w", err)
	}
	return nil
}
