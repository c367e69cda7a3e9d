// Package bits provides 1-based bit helpers for protocol header fields.
// Bit 1 is the least significant bit, matching how firmware documentation
// numbers flag bits.
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange extracts the value from a range of bits (e.g., bits 7 to 1).
// Example: GetRange(0b10000101, 7, 1) returns 5
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	width := high - low + 1
	mask := byte((1 << width) - 1)

	return (b >> (low - 1)) & mask
}

// Set returns b with bit n set.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// Clear returns b with bit n cleared.
func Clear(b byte, n uint) byte {
	return b &^ Bit(n)
}

// Bit16 returns a uint16 with only the n-th bit set (1 to 16).
func Bit16(n uint) uint16 {
	if n < 1 || n > 16 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet16 checks if the n-th bit of a 16-bit flag word is set.
func IsSet16(v uint16, n uint) bool {
	return v&Bit16(n) != 0
}

// Set16 returns v with bit n set.
func Set16(v uint16, n uint) uint16 {
	return v | Bit16(n)
}
