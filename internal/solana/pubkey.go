package solana

import (
	"encoding/json"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of an ed25519 public key / account address.
const PublicKeyLength = 32

// ErrInvalidPublicKey is returned when a string is not a 32-byte base58 key.
var ErrInvalidPublicKey = errors.New("invalid public key")

// PublicKey is a 32-byte account address.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(decoded) != PublicKeyLength {
		return pk, fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// String returns the base58 form.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether every byte is zero.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Bytes returns a copy of the key bytes.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeyLength)
	copy(b, pk[:])
	return b
}

// IsOnCurve reports whether the key is a valid ed25519 point.
// Wallets are on-curve; program derived addresses are not.
func (pk PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

// MarshalJSON encodes the key as a base58 string.
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.String())
}

// UnmarshalJSON decodes a base58 string.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// MarshalText lets PublicKey be used as a JSON map key.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText parses a base58 map key.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
