package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gregLibert/hwlink/pkg/eapdu"
	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/status"
	"github.com/gregLibert/hwlink/pkg/transport"
)

// fakeConn records every call and replays canned responses.
type fakeConn struct {
	mu sync.Mutex

	sent     [][]byte
	replies  [][]byte
	receives int
	closes   int

	// sendErr and recvErr fail the n-th call (1-based).
	sendErr map[int]error
	recvErr map[int]error

	// When set, the first Send signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (c *fakeConn) Send(ctx context.Context, packet []byte) error {
	c.mu.Lock()
	entered, release := c.entered, c.release
	c.entered = nil
	c.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.sent) + 1
	if err := c.sendErr[n]; err != nil {
		return err
	}
	c.sent = append(c.sent, append([]byte(nil), packet...))
	return nil
}

func (c *fakeConn) Receive(_ context.Context, maxLen int, _ time.Duration) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receives++
	if err := c.recvErr[c.receives]; err != nil {
		return nil, err
	}
	if len(c.replies) == 0 {
		return nil, transport.ErrTimeout
	}
	p := c.replies[0]
	c.replies = c.replies[1:]
	return p, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeConn) calls() (sends, receives int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent), c.receives
}

// fakeDriver hands out one fakeConn and counts opens.
type fakeDriver struct {
	conn  *fakeConn
	opens int
}

func (d *fakeDriver) Open(context.Context, transport.DeviceID) (transport.Conn, error) {
	d.opens++
	return d.conn, nil
}

func responsePackets(t *testing.T, cmd eapdu.Command, st status.EAPDU, payload []byte) [][]byte {
	t.Helper()
	packets, err := eapdu.Default.BuildResponseFragments(cmd, 0, st, payload)
	require.NoError(t, err)
	return packets
}

var testDevice = transport.DeviceID{VendorID: 0x1209, ProductID: 0x3001}

// connected returns a session over conn with delays disabled.
func connected(t *testing.T, conn *fakeConn, opts ...Option) (*Session, *fakeDriver) {
	t.Helper()
	drv := &fakeDriver{conn: conn}
	opts = append([]Option{WithFragmentDelay(0), WithReceiveDelay(0)}, opts...)
	s := New(drv, keycrypto.Secp256k1{}, opts...)
	require.NoError(t, s.Connect(context.Background(), testDevice))
	return s, drv
}
