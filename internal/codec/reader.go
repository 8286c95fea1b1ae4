// Package codec decodes and encodes prediction market program accounts.
//
// Layouts are positional and little-endian, prefixed by an 8-byte account
// discriminator. Decoding never panics: every malformed input is an error value.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"prediction-market-lab/internal/solana"
)

var (
	// ErrTruncated is returned when a read runs past the end of the buffer.
	ErrTruncated = errors.New("codec: truncated data")
	// ErrInvalidBool is returned for a bool byte other than 0 or 1.
	ErrInvalidBool = errors.New("codec: invalid bool")
	// ErrInvalidUTF8 is returned when a string field is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("codec: invalid utf-8 string")
)

// Reader is a bounds-checked little-endian cursor over a byte slice.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a reader positioned at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// take advances the cursor by n bytes and returns them.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadBytes reads n raw bytes. The returned slice aliases the buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool reads one byte that must be 0 or 1.
func (r *Reader) ReadBool() (bool, error) {
	start := r.off
	v, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: 0x%02x at offset %d", ErrInvalidBool, v, start)
	}
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64LE reads a little-endian uint64.
func (r *Reader) ReadU64LE() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI64LE reads a little-endian two's complement int64.
func (r *Reader) ReadI64LE() (int64, error) {
	v, err := r.ReadU64LE()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// ReadFixedKey reads a 32-byte public key.
func (r *Reader) ReadFixedKey() (solana.PublicKey, error) {
	var pk solana.PublicKey
	b, err := r.take(solana.PublicKeyLength)
	if err != nil {
		return pk, err
	}
	copy(pk[:], b)
	return pk, nil
}

// ReadLengthPrefixedString reads a u32 length followed by that many UTF-8 bytes.
// The cursor advances by exactly 4+length on success.
func (r *Reader) ReadLengthPrefixedString() (string, error) {
	start := r.off
	n, err := r.ReadU32LE()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.off = start
		return "", fmt.Errorf("%w: string length %d at offset %d exceeds %d remaining", ErrTruncated, n, start, r.Remaining())
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: at offset %d", ErrInvalidUTF8, start)
	}
	return string(b), nil
}
