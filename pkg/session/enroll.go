package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gregLibert/hwlink/pkg/eapdu"
	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/status"
	"github.com/gregLibert/hwlink/pkg/tlv"
)

// ENROLLMENT:
// The host proves possession of a key pair by sending the public key and a
// signature over its SHA-256 digest:
//
//	[len(pub)] [pub ... ] [sig r||s, 64 bytes]
//
// The request goes out as CMD_GET_DEVICE_USB_PUBKEY. The device answers with
// one of the SET_PUBKEY statuses; both verify-success and set-success count
// as enrolled.

// EnrollmentResult is the outcome of an enrollment the device answered.
type EnrollmentResult struct {
	Success       bool
	Status        status.EAPDU
	Outcome       status.Outcome
	StatusMessage string
	CommandType   eapdu.Command
	RequestID     uint16
	Payload       []byte
	TotalPackets  int

	// DivergentStatus mirrors eapdu.Response.DivergentStatus.
	DivergentStatus []int
}

// Message returns the device's reply text.
func (r *EnrollmentResult) Message() string {
	return ReplyText(r.Payload)
}

// BuildEnrollmentPayload serializes pub and sig into the request layout.
func BuildEnrollmentPayload(pub, sig []byte) ([]byte, error) {
	if len(pub) != keycrypto.CompressedPublicKeyLen && len(pub) != keycrypto.UncompressedPublicKeyLen {
		return nil, fmt.Errorf("%w: %d-byte key", ErrInvalidPublicKeyFormat, len(pub))
	}
	if len(sig) != keycrypto.SignatureLen {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", keycrypto.SignatureLen, len(sig))
	}

	payload := make([]byte, 0, 1+len(pub)+len(sig))
	payload = append(payload, byte(len(pub)))
	payload = append(payload, pub...)
	payload = append(payload, sig...)
	return payload, nil
}

// Enroll registers publicKeyHex with the device, signing with
// privateKeyHex.
//
// Both keys are validated and checked against each other before any packet
// is sent. A device answer with a non-success status returns the result
// together with a *DeviceStatusError.
func (s *Session) Enroll(ctx context.Context, publicKeyHex, privateKeyHex string) (*EnrollmentResult, error) {
	pub, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}
	priv, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	derived, err := s.crypto.DerivePublicKey(priv, pub.Compressed)
	if err != nil {
		return nil, &FormatError{Err: ErrInvalidPrivateKeyFormat, Reason: err.Error()}
	}
	if !bytes.Equal(derived, pub.Bytes) {
		return nil, ErrKeyMismatch
	}

	hash := s.crypto.SHA256(pub.Bytes)
	sig, err := s.crypto.Sign(hash[:], priv)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseSign, Err: err}
	}
	payload, err := BuildEnrollmentPayload(pub.Bytes, sig)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseBuild, Err: err}
	}

	conn, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end()

	s.cfg.Logger.Info().Bool("compressed", pub.Compressed).Str("public_key", tlv.CleanHex(publicKeyHex)).Msg("enrolling public key")

	resp, err := s.exchange(ctx, conn, eapdu.CMD_GET_DEVICE_USB_PUBKEY, payload, s.cfg.EnrollTimeout)
	if err != nil {
		return nil, err
	}

	result := &EnrollmentResult{
		Success:         resp.IsSuccess(),
		Status:          resp.Status,
		Outcome:         resp.Status.Outcome(),
		StatusMessage:   resp.Status.Label(),
		CommandType:     resp.Command,
		RequestID:       resp.RequestID,
		Payload:         resp.Payload,
		TotalPackets:    resp.Total,
		DivergentStatus: resp.DivergentStatus,
	}
	if !result.Success {
		return result, &DeviceStatusError{Command: eapdu.CMD_GET_DEVICE_USB_PUBKEY, Status: resp.Status, Outcome: result.Outcome}
	}
	return result, nil
}

// ReplyText extracts the message of a device reply. The firmware wraps text
// replies as {"payload": "..."}; anything else is returned as printable
// ASCII.
func ReplyText(payload []byte) string {
	var reply struct {
		Payload *string `json:"payload"`
	}
	if err := json.Unmarshal(payload, &reply); err == nil && reply.Payload != nil {
		return *reply.Payload
	}
	return tlv.MakeSafeASCII(payload)
}

// IsEnrollRejected reports whether err is a device refusal of an
// enrollment rather than a local or transport failure.
func IsEnrollRejected(err error) bool {
	var dse *DeviceStatusError
	return errors.As(err, &dse) && dse.Command == eapdu.CMD_GET_DEVICE_USB_PUBKEY
}
