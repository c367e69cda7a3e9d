package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex constructs a byte slice from a series of hex strings.
// It panics on malformed input and is meant for fixtures and constants.
func Hex(parts ...string) []byte {
	data, err := ParseHex(strings.Join(parts, ""))
	if err != nil {
		panic(fmt.Sprintf("invalid input %q: %v", strings.Join(parts, ""), err))
	}
	return data
}

// CleanHex strips an optional "0x" prefix and all whitespace, allowing
// formats like "0x00 A4 04 00".
func CleanHex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strings.Join(strings.Fields(s), "")
}

// ParseHex decodes a hex string after CleanHex.
func ParseHex(s string) ([]byte, error) {
	return hex.DecodeString(CleanHex(s))
}
