// Package session drives request/response exchanges with one device over a
// transport connection.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gregLibert/hwlink/pkg/eapdu"
	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/transport"
)

// SESSION MODEL:
// A Session owns at most one transport connection and moves between two
// states:
//
//	Disconnected --Connect--> Connected --Disconnect--> Disconnected
//
// The link is half-duplex: one logical request is in flight at a time. A
// second call made while a request runs fails with ErrBusy instead of
// interleaving packets on the wire. Disconnect may be called from any state
// and any number of times.
//
// Every EAPDU exchange, successful or not, is appended to the session Trace.

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session manages the communication with one device.
type Session struct {
	driver transport.Driver
	crypto keycrypto.Provider
	cfg    Config

	busy atomic.Bool

	mu     sync.Mutex
	conn   transport.Conn
	device transport.DeviceID
	trace  eapdu.Trace
}

// New creates a disconnected Session.
func New(driver transport.Driver, crypto keycrypto.Provider, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		driver: driver,
		crypto: crypto,
		cfg:    cfg,
	}
}

// Connect opens the device identified by id.
func (s *Session) Connect(ctx context.Context, id transport.DeviceID) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return ErrAlreadyConnected
	}

	conn, err := s.driver.Open(ctx, id)
	if err != nil {
		return fmt.Errorf("connect %s: %w", id, err)
	}
	s.conn = conn
	s.device = id

	s.cfg.Logger.Info().Str("device", id.String()).Msg("connected")
	return nil
}

// Disconnect closes the connection. It returns nil when already
// disconnected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	conn, device := s.conn, s.device
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	s.cfg.Logger.Info().Str("device", device.String()).Msg("disconnected")
	if err := conn.Close(); err != nil {
		return fmt.Errorf("disconnect %s: %w", device, err)
	}
	return nil
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return StateDisconnected
	}
	return StateConnected
}

// Trace returns a copy of the exchanges recorded so far.
func (s *Session) Trace() eapdu.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(eapdu.Trace(nil), s.trace...)
}

// begin reserves the link for one request. The caller must call end.
func (s *Session) begin() (transport.Conn, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		s.busy.Store(false)
		return nil, ErrNotConnected
	}
	return conn, nil
}

func (s *Session) end() {
	s.busy.Store(false)
}

func (s *Session) record(tx *eapdu.Transaction) {
	s.mu.Lock()
	s.trace = append(s.trace, *tx)
	s.mu.Unlock()
}

// exchange sends payload as cmd and collects the full response. Each receive
// is bounded by timeout.
func (s *Session) exchange(ctx context.Context, conn transport.Conn, cmd eapdu.Command, payload []byte, timeout time.Duration) (*eapdu.Response, error) {
	log := s.cfg.Logger.With().Stringer("command", cmd).Uint16("request_id", s.cfg.RequestID).Logger()

	packets, err := s.cfg.Codec.BuildFragments(cmd, payload, s.cfg.RequestID)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseBuild, Err: err}
	}

	tx := eapdu.Transaction{Command: cmd, RequestID: s.cfg.RequestID}
	defer s.record(&tx)

	total := len(packets)
	log.Info().Int("bytes", len(payload)).Int("fragments", total).Msg("sending request")

	for i, p := range packets {
		if i > 0 {
			if err := sleep(ctx, s.cfg.FragmentDelay); err != nil {
				return nil, &PhaseError{Phase: PhaseSend, Index: i + 1, Total: total, Err: err}
			}
		}
		logPacket(log, "sent", i+1, total, p)
		if err := conn.Send(ctx, p); err != nil {
			return nil, &PhaseError{Phase: PhaseSend, Index: i + 1, Total: total, Err: err}
		}
		tx.Sent = append(tx.Sent, p)
	}

	first, err := conn.Receive(ctx, eapdu.MaxPacketSize, timeout)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseReceive, Index: 1, Err: err}
	}
	tx.Received = append(tx.Received, first)

	head, err := s.cfg.Codec.ParseResponsePacket(first)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseParse, Index: 1, Err: err}
	}
	want := int(head.Total)
	logPacket(log, "received", 1, want, first)

	if want == 0 || want > eapdu.MaxPackets {
		return nil, &PhaseError{Phase: PhaseReassemble, Err: &eapdu.PacketCountError{Expected: want, Received: 1}}
	}

	for i := 1; i < want; i++ {
		if err := sleep(ctx, s.cfg.ReceiveDelay); err != nil {
			return nil, &PhaseError{Phase: PhaseReceive, Index: i + 1, Total: want, Err: err}
		}
		raw, err := conn.Receive(ctx, eapdu.MaxPacketSize, timeout)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseReceive, Index: i + 1, Total: want, Err: err}
		}
		logPacket(log, "received", i+1, want, raw)
		tx.Received = append(tx.Received, raw)
	}

	resp, err := s.cfg.Codec.Reassemble(tx.Received)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseReassemble, Err: err}
	}
	tx.Response = resp

	if len(resp.DivergentStatus) > 0 {
		log.Warn().Ints("packets", resp.DivergentStatus).Stringer("status", resp.Status).
			Msg("response packets disagree on status; keeping the first")
	}
	if resp.RequestID != s.cfg.RequestID || resp.Command != cmd {
		log.Warn().Stringer("got_command", resp.Command).Uint16("got_request_id", resp.RequestID).
			Msg("response does not echo the request header")
	}
	log.Info().Stringer("status", resp.Status).Int("bytes", len(resp.Payload)).Msg("response received")

	return resp, nil
}

func logPacket(log zerolog.Logger, dir string, index, total int, raw []byte) {
	log.Debug().Int("index", index).Int("total", total).Hex("raw", raw).Msg(dir)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
