// Package devicesim provides an in-memory device that speaks the EAPDU and
// internal frame protocols at the packet level.
//
// A Device implements transport.Driver. Packets written to an open
// connection are processed synchronously and any reply packets are queued
// for Receive, so tests and the CLI's --simulate mode exercise the same
// fragmentation and reassembly code paths as real hardware.
//
// EAPDU request handling follows the firmware parser:
//   - a total above MaxPackets is answered with status 0x02 and resets the
//     parser
//   - an index not below the total is answered with status 0x03 and resets
//     the parser
//   - a fragment whose index was already received is ignored
//   - once every fragment arrived the request is dispatched by command
//
// Commands without a handler get no reply; the host sees a receive timeout.
package devicesim

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gregLibert/hwlink/pkg/eapdu"
	"github.com/gregLibert/hwlink/pkg/frame"
	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/status"
	"github.com/gregLibert/hwlink/pkg/transport"
)

// MaxPackets is the largest fragment total the device buffers.
const MaxPackets = eapdu.MaxPackets

// DefaultID is the identifier the simulated device enumerates with.
var DefaultID = transport.DeviceID{VendorID: 0x1209, ProductID: 0x3001}

// Info is what the device reports through the device info service.
type Info struct {
	Model           string
	SerialNumber    string
	HardwareVersion string
	FirmwareVersion string
	BootVersion     string
}

// DefaultInfo is reported unless WithInfo says otherwise.
var DefaultInfo = Info{
	Model:           "hwlink-sim",
	SerialNumber:    "SIM0000000000001",
	HardwareVersion: "V3.0",
	FirmwareVersion: "2.1.4",
	BootVersion:     "1.0.2",
}

// Counters reports how the device was used.
type Counters struct {
	Opens    int
	Closes   int
	Sends    int
	Receives int
}

// Option configures a Device.
type Option func(*Device)

// WithID sets the identifier Open accepts.
func WithID(id transport.DeviceID) Option {
	return func(d *Device) { d.id = id }
}

// WithInfo sets the device info answer.
func WithInfo(info Info) Option {
	return func(d *Device) { d.info = info }
}

// WithCodec sets the packet byte order.
func WithCodec(codec eapdu.Codec) Option {
	return func(d *Device) { d.codec = codec }
}

// WithCrypto sets the provider used to verify enrollment signatures.
func WithCrypto(p keycrypto.Provider) Option {
	return func(d *Device) { d.crypto = p }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Device) { d.log = logger }
}

// Device is a simulated device.
type Device struct {
	mu sync.Mutex

	id     transport.DeviceID
	info   Info
	codec  eapdu.Codec
	crypto keycrypto.Provider
	log    zerolog.Logger

	// Reassembly state, indexed by fragment index.
	total     int
	fragments map[int][]byte

	outbox   [][]byte
	enrolled []byte
	counters Counters

	enrollStatus status.EAPDU
	failSend     error
}

// New creates a Device.
func New(opts ...Option) *Device {
	d := &Device{
		id:        DefaultID,
		info:      DefaultInfo,
		codec:     eapdu.Default,
		crypto:    keycrypto.Secp256k1{},
		log:       zerolog.Nop(),
		fragments: make(map[int][]byte),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var (
	_ transport.Driver = (*Device)(nil)
	_ transport.Lister = (*Device)(nil)
)

// Open connects to the device when id matches its identifier.
func (d *Device) Open(_ context.Context, id transport.DeviceID) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id != d.id {
		return nil, transport.ErrDeviceNotFound
	}
	d.counters.Opens++
	return &conn{dev: d}, nil
}

// List reports the simulated device.
func (d *Device) List(_ context.Context) ([]transport.Attached, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return []transport.Attached{{ID: d.id, Manufacturer: "hwlink", Product: d.info.Model}}, nil
}

// Counters returns a snapshot of the usage counters.
func (d *Device) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters
}

// EnrolledKey returns the last public key accepted by an enrollment, or nil.
func (d *Device) EnrolledKey() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.enrolled...)
}

// SetEnrollStatus makes a well-formed, correctly signed enrollment answer
// with st instead of SET_PUBKEY_SET_SUCCESS. Zero restores the default.
func (d *Device) SetEnrollStatus(st status.EAPDU) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enrollStatus = st
}

// FailNextSend makes the next Send return err without processing the packet.
func (d *Device) FailNextSend(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSend = err
}

// Pending returns the number of queued reply packets.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outbox)
}

// Reset drops partial requests and queued replies.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetParser()
	d.outbox = nil
}

func (d *Device) resetParser() {
	d.total = 0
	clear(d.fragments)
}

func (d *Device) write(packet []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counters.Sends++
	if err := d.failSend; err != nil {
		d.failSend = nil
		return err
	}

	if len(packet) > 0 && packet[0] == frame.Header {
		d.handleFrame(packet)
		return nil
	}
	d.handleEAPDU(packet)
	return nil
}

func (d *Device) read(maxLen int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counters.Receives++
	if len(d.outbox) == 0 {
		return nil, transport.ErrTimeout
	}
	p := d.outbox[0]
	d.outbox = d.outbox[1:]
	if maxLen > 0 && len(p) > maxLen {
		p = p[:maxLen]
	}
	return p, nil
}

type conn struct {
	dev *Device

	mu     sync.Mutex
	closed bool
}

func (c *conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *conn) Send(ctx context.Context, packet []byte) error {
	if c.isClosed() {
		return transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.dev.write(append([]byte(nil), packet...))
}

// Receive never blocks: replies are produced during Send, so an empty queue
// means the device has nothing to say.
func (c *conn) Receive(ctx context.Context, maxLen int, _ time.Duration) ([]byte, error) {
	if c.isClosed() {
		return nil, transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.dev.read(maxLen)
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.dev.mu.Lock()
	c.dev.counters.Closes++
	c.dev.mu.Unlock()
	return nil
}
