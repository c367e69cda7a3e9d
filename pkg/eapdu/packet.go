package eapdu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gregLibert/hwlink/pkg/status"
)

// EAPDU (Extended APDU) packets carry one fragment of a logical request or
// response over a 64-byte transport packet.
//
// REQUEST PACKET (host to device):
//
//	offset  size  field
//	0       1     CLA, always 0x00
//	1       2     INS, the command code
//	3       2     P1, total number of fragments
//	5       2     P2, index of this fragment (0-based)
//	7       2     Lc, request id shared by all fragments
//	9       n     CDATA, n <= 55
//
// RESPONSE PACKET (device to host) uses the same 9-byte header followed by
// a data slice and a 2-byte status trailer. The device fills at most 53
// data bytes per response packet.
//
// Multi-byte fields are little-endian unless the Codec says otherwise.

const (
	CLA            byte = 0x00
	MaxPacketSize       = 64
	HeaderLen           = 9
	StatusLen           = 2
	MaxPayloadSize      = MaxPacketSize - HeaderLen
	// MaxResponseData is how much data the device packs in one response packet.
	MaxResponseData = MaxPacketSize - HeaderLen - StatusLen
	// MinResponseLen is a header and a status trailer with no data.
	MinResponseLen = HeaderLen + StatusLen

	// MaxFragments is the largest count P1 can announce.
	MaxFragments = 0xFFFF
	// MaxPackets is the largest message the firmware buffers, in packets.
	MaxPackets = 200
)

var (
	ErrPacketTooShort      = errors.New("eapdu: packet too short")
	ErrResponseTooShort    = errors.New("eapdu: response packet too short")
	ErrPayloadTooLarge     = errors.New("eapdu: payload too large")
	ErrNoPackets           = errors.New("eapdu: no packets")
	ErrPacketCountMismatch = errors.New("eapdu: packet count mismatch")
)

// Codec encodes and decodes packet headers with a fixed byte order.
// The zero value uses little-endian.
type Codec struct {
	Order binary.ByteOrder
}

// Default is the little-endian codec used unless configured otherwise.
var Default = Codec{Order: binary.LittleEndian}

// BigEndian matches devices whose firmware reads headers most significant
// byte first.
var BigEndian = Codec{Order: binary.BigEndian}

func (c Codec) order() binary.ByteOrder {
	if c.Order == nil {
		return binary.LittleEndian
	}
	return c.Order
}

// Header is the 9-byte prefix common to request and response packets.
type Header struct {
	Command   Command
	Total     uint16
	Index     uint16
	RequestID uint16
}

func (c Codec) putHeader(buf []byte, h Header) {
	o := c.order()
	buf[0] = CLA
	o.PutUint16(buf[1:3], uint16(h.Command))
	o.PutUint16(buf[3:5], h.Total)
	o.PutUint16(buf[5:7], h.Index)
	o.PutUint16(buf[7:9], h.RequestID)
}

func (c Codec) header(raw []byte) Header {
	o := c.order()
	return Header{
		Command:   Command(o.Uint16(raw[1:3])),
		Total:     o.Uint16(raw[3:5]),
		Index:     o.Uint16(raw[5:7]),
		RequestID: o.Uint16(raw[7:9]),
	}
}

// Packet is one request fragment.
type Packet struct {
	Header
	Data []byte
}

// Bytes encodes the packet, trimmed to its used length.
func (c Codec) Bytes(p *Packet) ([]byte, error) {
	if len(p.Data) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes in one packet (max %d)", ErrPayloadTooLarge, len(p.Data), MaxPayloadSize)
	}
	buf := make([]byte, HeaderLen+len(p.Data))
	c.putHeader(buf, p.Header)
	copy(buf[HeaderLen:], p.Data)
	return buf, nil
}

// ParsePacket decodes a request fragment as the device sees it.
func (c Codec) ParsePacket(raw []byte) (*Packet, error) {
	if len(raw) < HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrPacketTooShort, len(raw), HeaderLen)
	}
	return &Packet{
		Header: c.header(raw),
		Data:   append([]byte(nil), raw[HeaderLen:]...),
	}, nil
}

// String returns a readable summary of the fragment.
func (p *Packet) String() string {
	return fmt.Sprintf("%s | Fragment: %d/%d | Request: %d | Data: %d bytes",
		p.Command.Verbose(), p.Index+1, p.Total, p.RequestID, len(p.Data))
}

// ResponsePacket is one response fragment.
type ResponsePacket struct {
	Header
	Data   []byte
	Status status.EAPDU
}

// ParseResponsePacket decodes a response fragment. Data is everything between
// the header and the status trailer.
func (c Codec) ParseResponsePacket(raw []byte) (*ResponsePacket, error) {
	if len(raw) < MinResponseLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrResponseTooShort, len(raw), MinResponseLen)
	}
	end := len(raw) - StatusLen
	return &ResponsePacket{
		Header: c.header(raw),
		Data:   append([]byte(nil), raw[HeaderLen:end]...),
		Status: status.EAPDU(c.order().Uint16(raw[end:])),
	}, nil
}

// ResponseBytes encodes a response fragment.
func (c Codec) ResponseBytes(p *ResponsePacket) ([]byte, error) {
	if len(p.Data) > MaxResponseData {
		return nil, fmt.Errorf("%w: %d bytes in one response packet (max %d)", ErrPayloadTooLarge, len(p.Data), MaxResponseData)
	}
	buf := make([]byte, HeaderLen+len(p.Data)+StatusLen)
	c.putHeader(buf, p.Header)
	copy(buf[HeaderLen:], p.Data)
	c.order().PutUint16(buf[len(buf)-StatusLen:], uint16(p.Status))
	return buf, nil
}

// String returns a readable summary of the fragment.
func (p *ResponsePacket) String() string {
	return fmt.Sprintf("%s | Fragment: %d/%d | Request: %d | Data: %d bytes | Status: %s",
		p.Command.Verbose(), p.Index+1, p.Total, p.RequestID, len(p.Data), p.Status.Verbose())
}

// ParsePacket decodes a request fragment with the default codec.
func ParsePacket(raw []byte) (*Packet, error) {
	return Default.ParsePacket(raw)
}

// ParseResponsePacket decodes a response fragment with the default codec.
func ParseResponsePacket(raw []byte) (*ResponsePacket, error) {
	return Default.ParseResponsePacket(raw)
}
