// Package frame implements the device's internal single-packet protocol.
//
// A frame is a fixed 10-byte header, a TLV payload and a CRC-32 trailer.
// All multi-byte fields are little-endian:
//
//	offset  size  field
//	0       1     header (0x6B)
//	1       1     protocol version (0)
//	2       2     packet index
//	4       1     service id
//	5       1     command id
//	6       2     flags (bit 1 = ack, bit 2 = host originated)
//	8       2     payload length
//	10      n     TLV payload
//	10+n    4     CRC-32/IEEE-802.3 of bytes [0, 10+n)
//
// The checksum is a send-side aid. Parse does not verify it; callers that
// want integrity checking call VerifyChecksum explicitly.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/gregLibert/hwlink/pkg/bits"
	"github.com/gregLibert/hwlink/pkg/status"
	"github.com/gregLibert/hwlink/pkg/tlv"
)

const (
	Header        byte = 0x6B
	Version       byte = 0
	HeaderLen          = 10
	ChecksumLen        = 4
	MaxPayloadLen      = 0xFFFF

	// MaxPacketSize is the receive buffer the device may fill with one frame.
	MaxPacketSize = 4500

	flagAckBit    = 1
	flagIsHostBit = 2
)

var (
	ErrFrameTooShort   = errors.New("frame: too short")
	ErrHeaderMismatch  = errors.New("frame: header mismatch")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Flags is the decoded flag word.
type Flags struct {
	Ack    bool
	IsHost bool
}

// Encode packs the flags into their wire representation.
func (f Flags) Encode() uint16 {
	var v uint16
	if f.Ack {
		v = bits.Set16(v, flagAckBit)
	}
	if f.IsHost {
		v = bits.Set16(v, flagIsHostBit)
	}
	return v
}

// DecodeFlags unpacks a wire flag word.
func DecodeFlags(v uint16) Flags {
	return Flags{
		Ack:    bits.IsSet16(v, flagAckBit),
		IsHost: bits.IsSet16(v, flagIsHostBit),
	}
}

// Frame is one parsed or to-be-encoded internal protocol frame.
type Frame struct {
	Version     byte
	PacketIndex uint16
	ServiceID   uint8
	CommandID   uint8
	Flags       Flags
	// PayloadLength is the length announced by the header.
	PayloadLength uint16
	Entries       []tlv.Entry
	// Payload is the raw TLV bytes as received.
	Payload  []byte
	Checksum uint32

	// Success reflects the general-result entry; frames without one are
	// successful.
	Success bool
	// Result is the general-result byte, INTERNAL_SUCCESS when absent.
	Result status.Internal
}

// Checksum computes CRC-32/IEEE-802.3 over data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Build encodes a host-originated request frame.
func Build(serviceID, commandID uint8, entries []tlv.Entry, packetIndex uint16) ([]byte, error) {
	return Encode(&Frame{
		Version:     Version,
		PacketIndex: packetIndex,
		ServiceID:   serviceID,
		CommandID:   commandID,
		Flags:       Flags{IsHost: true},
		Entries:     entries,
	})
}

// Encode serializes f. PayloadLength, Payload and Checksum are computed from
// the entries and ignored on input.
func Encode(f *Frame) ([]byte, error) {
	payload, err := tlv.EncodeEntries(f.Entries)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	buf := make([]byte, HeaderLen, HeaderLen+len(payload)+ChecksumLen)
	buf[0] = Header
	buf[1] = f.Version
	binary.LittleEndian.PutUint16(buf[2:4], f.PacketIndex)
	buf[4] = f.ServiceID
	buf[5] = f.CommandID
	binary.LittleEndian.PutUint16(buf[6:8], f.Flags.Encode())
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(payload)))
	buf = append(buf, payload...)

	return binary.LittleEndian.AppendUint32(buf, Checksum(buf)), nil
}

// Parse decodes raw into a Frame.
//
// Only the header byte and minimum length are validated. The payload is
// clamped to the bytes actually present, TLV decoding is lenient, and the
// checksum is read but not verified.
func Parse(raw []byte) (*Frame, error) {
	if len(raw) < HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrFrameTooShort, len(raw), HeaderLen)
	}
	if raw[0] != Header {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrHeaderMismatch, raw[0], Header)
	}

	f := &Frame{
		Version:       raw[1],
		PacketIndex:   binary.LittleEndian.Uint16(raw[2:4]),
		ServiceID:     raw[4],
		CommandID:     raw[5],
		Flags:         DecodeFlags(binary.LittleEndian.Uint16(raw[6:8])),
		PayloadLength: binary.LittleEndian.Uint16(raw[8:10]),
	}

	end := HeaderLen + int(f.PayloadLength)
	if end > len(raw) {
		end = len(raw)
	}
	f.Payload = append([]byte(nil), raw[HeaderLen:end]...)
	if end+ChecksumLen <= len(raw) {
		f.Checksum = binary.LittleEndian.Uint32(raw[end : end+ChecksumLen])
	}

	f.Entries = tlv.Decode(f.Payload)
	f.Success, f.Result = generalResult(f.Entries)

	return f, nil
}

// VerifyChecksum reports whether raw carries a valid CRC trailer for the
// length its header announces. It is never called by Parse.
func VerifyChecksum(raw []byte) bool {
	if len(raw) < HeaderLen+ChecksumLen || raw[0] != Header {
		return false
	}
	end := HeaderLen + int(binary.LittleEndian.Uint16(raw[8:10]))
	if end+ChecksumLen > len(raw) {
		return false
	}
	return binary.LittleEndian.Uint32(raw[end:end+ChecksumLen]) == Checksum(raw[:end])
}

func generalResult(entries []tlv.Entry) (bool, status.Internal) {
	e, ok := tlv.Find(entries, TLVGeneralResult)
	if !ok {
		return true, status.INTERNAL_SUCCESS
	}
	if len(e.Value) == 0 {
		return false, status.INTERNAL_ERR_UNKNOWN
	}
	result := status.Internal(e.Value[0])
	return result.IsSuccess(), result
}

// Find returns the first entry of the given type.
func (f *Frame) Find(typ uint8) (tlv.Entry, bool) {
	return tlv.Find(f.Entries, typ)
}

// StatusMessage mirrors the host tool's summary of a parsed frame.
func (f *Frame) StatusMessage() string {
	if f.Success {
		return "Success"
	}
	return "Failed"
}

// Describe generates a human-readable report of the frame.
func (f *Frame) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== INTERNAL FRAME ===\n")
	sb.WriteString(fmt.Sprintf("    + Service: %s\n", ServiceName(f.ServiceID)))
	sb.WriteString(fmt.Sprintf("    + Command: 0x%02X\n", f.CommandID))
	sb.WriteString(fmt.Sprintf("    + Index:   %d\n", f.PacketIndex))
	sb.WriteString(fmt.Sprintf("    + Flags:   ack=%t host=%t\n", f.Flags.Ack, f.Flags.IsHost))
	sb.WriteString(fmt.Sprintf("    + Result:  %s", f.Result.Verbose()))
	tlv.WriteEntries(&sb, f.Entries, TLVLabels)
	return sb.String()
}
