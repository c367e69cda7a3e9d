package session

import (
	"errors"
	"fmt"

	"github.com/gregLibert/hwlink/pkg/eapdu"
	"github.com/gregLibert/hwlink/pkg/frame"
	"github.com/gregLibert/hwlink/pkg/status"
)

var (
	ErrNotConnected     = errors.New("session: not connected")
	ErrAlreadyConnected = errors.New("session: already connected")
	ErrBusy             = errors.New("session: another request is in flight")

	ErrInvalidPublicKeyFormat  = errors.New("invalid public key format")
	ErrInvalidPrivateKeyFormat = errors.New("invalid private key format")
	ErrKeyMismatch             = errors.New("public key does not match private key")
	ErrVersionUnavailable      = errors.New("firmware version unavailable")
)

// FormatError reports a malformed key argument. No I/O happens once one is
// returned.
type FormatError struct {
	// Err is ErrInvalidPublicKeyFormat or ErrInvalidPrivateKeyFormat.
	Err    error
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Phase names the step of an exchange that failed.
type Phase string

const (
	PhaseBuild      Phase = "build request"
	PhaseSend       Phase = "send fragment"
	PhaseReceive    Phase = "receive fragment"
	PhaseParse      Phase = "parse fragment"
	PhaseReassemble Phase = "reassemble response"
	PhaseSign       Phase = "sign public key"
)

// PhaseError wraps a transport or codec failure with its position in the
// exchange. Index is 1-based; Total is 0 when not yet known.
type PhaseError struct {
	Phase Phase
	Index int
	Total int
	Err   error
}

func (e *PhaseError) Error() string {
	switch {
	case e.Index > 0 && e.Total > 0:
		return fmt.Sprintf("%s %d/%d: %v", e.Phase, e.Index, e.Total, e.Err)
	case e.Index > 0:
		return fmt.Sprintf("%s %d: %v", e.Phase, e.Index, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	}
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// DeviceStatusError reports an exchange that completed mechanically but that
// the device answered with a non-success status.
type DeviceStatusError struct {
	Command eapdu.Command
	Status  status.EAPDU
	// Outcome separates a refusal from a request the device could not parse.
	Outcome status.Outcome
}

func (e *DeviceStatusError) Error() string {
	return fmt.Sprintf("device rejected %s: %s", e.Command, e.Status.Verbose())
}

// FrameStatusError reports a non-success general result on the internal
// frame protocol.
type FrameStatusError struct {
	ServiceID uint8
	CommandID uint8
	Result    status.Internal
}

func (e *FrameStatusError) Error() string {
	return fmt.Sprintf("device rejected service %d command %d: %s", e.ServiceID, e.CommandID, e.Result.Verbose())
}

// IsProtocolError reports whether err stems from a malformed frame or packet
// rather than from the transport or the device status.
func IsProtocolError(err error) bool {
	for _, target := range []error{
		frame.ErrFrameTooShort,
		frame.ErrHeaderMismatch,
		eapdu.ErrResponseTooShort,
		eapdu.ErrPacketCountMismatch,
		eapdu.ErrNoPackets,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
