// Package tlv implements the device's Type-Length-Value record encoding.
//
// A record is a 1-byte type, a 1- or 2-byte length and the value bytes:
//
//	length <= 127:  [type][length][value...]
//	length >  127:  [type][0x80 | length>>8][length & 0xFF][value...]
//
// The long form caps values at 32767 bytes. This is not BER-TLV: types are
// always one byte and the long length marker carries the high bits itself.
package tlv

import (
	"errors"
	"fmt"

	"github.com/gregLibert/hwlink/pkg/bits"
)

const (
	// MaxShortLength is the largest length encodable on one byte.
	MaxShortLength = 127

	// MaxLength is the largest value length the 2-byte form can carry.
	MaxLength = 0x7FFF

	// longLengthBit marks a 2-byte length in the first length byte.
	longLengthBit = 8
)

var ErrValueTooLong = errors.New("tlv: value too long")

// Entry is one decoded record.
type Entry struct {
	Type   uint8
	Length uint16
	Value  []byte
}

// New builds an Entry whose Length matches value.
func New(typ uint8, value []byte) Entry {
	return Entry{Type: typ, Length: uint16(len(value)), Value: value}
}

// Encode serializes a single record.
func Encode(typ uint8, value []byte) ([]byte, error) {
	n := len(value)
	if n > MaxLength {
		return nil, fmt.Errorf("%w: type 0x%02X has %d bytes (max %d)", ErrValueTooLong, typ, n, MaxLength)
	}

	if n <= MaxShortLength {
		buf := make([]byte, 0, 2+n)
		buf = append(buf, typ, byte(n))
		return append(buf, value...), nil
	}

	buf := make([]byte, 0, 3+n)
	buf = append(buf, typ, bits.Set(byte(n>>8), longLengthBit), byte(n))
	return append(buf, value...), nil
}

// EncodeEntries serializes entries in order. The Length field of each entry
// is ignored; the length of Value is authoritative.
func EncodeEntries(entries []Entry) ([]byte, error) {
	out := make([]byte, 0)
	for _, e := range entries {
		enc, err := Encode(e.Type, e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// Decode scans data for consecutive records.
//
// Decoding is lenient: when the remaining bytes cannot hold a complete header
// or a complete value, the scan stops and the records read so far are
// returned. Firmware pads frames, so a short tail is not an error.
func Decode(data []byte) []Entry {
	entries := make([]Entry, 0)
	i := 0
	for i < len(data) {
		if i+2 > len(data) {
			break
		}
		typ := data[i]
		i++

		var length int
		if bits.IsSet(data[i], longLengthBit) {
			if i+2 > len(data) {
				break
			}
			length = int(bits.GetRange(data[i], 7, 1))<<8 | int(data[i+1])
			i += 2
		} else {
			length = int(data[i])
			i++
		}

		if i+length > len(data) {
			break
		}

		val := make([]byte, length)
		copy(val, data[i:i+length])
		i += length

		entries = append(entries, Entry{Type: typ, Length: uint16(length), Value: val})
	}
	return entries
}

// Find returns the first entry of the given type.
func Find(entries []Entry, typ uint8) (Entry, bool) {
	for _, e := range entries {
		if e.Type == typ {
			return e, true
		}
	}
	return Entry{}, false
}
