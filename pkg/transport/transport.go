// Package transport abstracts the byte-packet link between the host and the
// device.
//
// A Driver locates and opens a device; a Conn moves whole packets. Receive
// returns at most maxLen bytes from one packet and fails with ErrTimeout when
// nothing arrives within the timeout.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDeviceNotFound = errors.New("transport: device not found")
	ErrTimeout        = errors.New("transport: receive timeout")
	ErrClosed         = errors.New("transport: connection closed")
	ErrUnsupported    = errors.New("transport: operation not supported")
)

// DeviceID selects a device by its USB identifiers.
type DeviceID struct {
	VendorID  uint16
	ProductID uint16
}

func (d DeviceID) String() string {
	return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
}

// Driver opens connections to devices.
type Driver interface {
	Open(ctx context.Context, id DeviceID) (Conn, error)
}

// Conn is an open link to one device. Implementations are not required to be
// safe for concurrent use.
type Conn interface {
	Send(ctx context.Context, packet []byte) error
	Receive(ctx context.Context, maxLen int, timeout time.Duration) ([]byte, error)
	Close() error
}

// Attached describes an enumerated device.
type Attached struct {
	ID           DeviceID
	Manufacturer string
	Product      string
}

// Lister is implemented by drivers that can enumerate attached devices.
type Lister interface {
	List(ctx context.Context) ([]Attached, error)
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context, id DeviceID) (Conn, error)

// Open calls f.
func (f DriverFunc) Open(ctx context.Context, id DeviceID) (Conn, error) {
	return f(ctx, id)
}
