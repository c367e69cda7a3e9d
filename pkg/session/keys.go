package session

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/tlv"
)

// PublicKey is a validated secp256k1 public key in SEC1 form.
type PublicKey struct {
	Bytes      []byte
	Compressed bool
}

// ParsePublicKey validates a hex encoded public key: 66 characters with a
// 02 or 03 prefix, or 130 characters with a 04 prefix. An optional 0x prefix
// and whitespace are ignored.
func ParsePublicKey(s string) (PublicKey, error) {
	h := strings.ToLower(tlv.CleanHex(s))

	var compressed bool
	switch len(h) {
	case 2 * keycrypto.CompressedPublicKeyLen:
		if !strings.HasPrefix(h, "02") && !strings.HasPrefix(h, "03") {
			return PublicKey{}, pubKeyError("compressed key must start with 02 or 03, got %q", h[:2])
		}
		compressed = true
	case 2 * keycrypto.UncompressedPublicKeyLen:
		if !strings.HasPrefix(h, "04") {
			return PublicKey{}, pubKeyError("uncompressed key must start with 04, got %q", h[:2])
		}
	default:
		return PublicKey{}, pubKeyError("expected %d or %d hex characters, got %d",
			2*keycrypto.CompressedPublicKeyLen, 2*keycrypto.UncompressedPublicKeyLen, len(h))
	}

	b, err := hex.DecodeString(h)
	if err != nil {
		return PublicKey{}, pubKeyError("not hex: %v", err)
	}
	return PublicKey{Bytes: b, Compressed: compressed}, nil
}

// ParsePrivateKey validates a hex encoded 32-byte private key.
func ParsePrivateKey(s string) ([]byte, error) {
	h := tlv.CleanHex(s)
	if len(h) != 2*keycrypto.PrivateKeyLen {
		return nil, &FormatError{
			Err:    ErrInvalidPrivateKeyFormat,
			Reason: fmt.Sprintf("expected %d hex characters, got %d", 2*keycrypto.PrivateKeyLen, len(h)),
		}
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, &FormatError{Err: ErrInvalidPrivateKeyFormat, Reason: fmt.Sprintf("not hex: %v", err)}
	}
	return b, nil
}

func pubKeyError(format string, args ...any) *FormatError {
	return &FormatError{Err: ErrInvalidPublicKeyFormat, Reason: fmt.Sprintf(format, args...)}
}
