// Package keycrypto provides the signing primitives used to prove possession
// of an enrolled key.
package keycrypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	PrivateKeyLen          = 32
	CompressedPublicKeyLen = 33
	// UncompressedPublicKeyLen is 0x04 followed by the X and Y coordinates.
	UncompressedPublicKeyLen = 65
	// SignatureLen is the r||s form, 32 bytes each.
	SignatureLen = 64
	HashLen      = sha256.Size
)

var (
	ErrInvalidPrivateKey = errors.New("keycrypto: invalid private key")
	ErrInvalidHash       = errors.New("keycrypto: hash must be 32 bytes")
)

// Provider is the crypto collaborator of an enrollment session.
type Provider interface {
	// Sign returns a 64-byte r||s signature of hash.
	Sign(hash, priv []byte) ([]byte, error)
	// Verify reports whether sig is a valid signature of hash by pub.
	Verify(sig, hash, pub []byte) bool
	// DerivePublicKey returns the public key of priv in the requested form.
	DerivePublicKey(priv []byte, compressed bool) ([]byte, error)
	SHA256(data []byte) [32]byte
}

// Secp256k1 implements Provider with deterministic (RFC 6979) ECDSA over
// secp256k1.
type Secp256k1 struct{}

var _ Provider = Secp256k1{}

func parsePrivateKey(priv []byte) (*secp256k1.PrivateKey, error) {
	if len(priv) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidPrivateKey, len(priv), PrivateKeyLen)
	}
	var k secp256k1.ModNScalar
	if overflow := k.SetByteSlice(priv); overflow || k.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidPrivateKey)
	}
	return secp256k1.NewPrivateKey(&k), nil
}

func (Secp256k1) Sign(hash, priv []byte) ([]byte, error) {
	if len(hash) != HashLen {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidHash, len(hash))
	}
	key, err := parsePrivateKey(priv)
	if err != nil {
		return nil, err
	}
	// Compact form is [recovery id][r][s].
	compact := ecdsa.SignCompact(key, hash, true)
	return compact[1:], nil
}

func (Secp256k1) Verify(sig, hash, pub []byte) bool {
	if len(sig) != SignatureLen || len(hash) != HashLen {
		return false
	}
	key, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		return false
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow || r.IsZero() {
		return false
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow || s.IsZero() {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(hash, key)
}

func (Secp256k1) DerivePublicKey(priv []byte, compressed bool) ([]byte, error) {
	key, err := parsePrivateKey(priv)
	if err != nil {
		return nil, err
	}
	if compressed {
		return key.PubKey().SerializeCompressed(), nil
	}
	return key.PubKey().SerializeUncompressed(), nil
}

func (Secp256k1) SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}
