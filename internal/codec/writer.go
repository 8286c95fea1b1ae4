package codec

import (
	"encoding/binary"

	"prediction-market-lab/internal/solana"
)

// Writer appends little-endian fields to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given capacity hint.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteU8 appends one byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteBool appends 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

// WriteU32LE appends a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteU64LE appends a little-endian uint64.
func (w *Writer) WriteU64LE(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteI64LE appends a little-endian int64.
func (w *Writer) WriteI64LE(v int64) {
	w.WriteU64LE(uint64(v))
}

// WriteFixedKey appends a 32-byte key.
func (w *Writer) WriteFixedKey(pk solana.PublicKey) {
	w.buf = append(w.buf, pk[:]...)
}

// WriteLengthPrefixedString appends a u32 length followed by the string bytes.
func (w *Writer) WriteLengthPrefixedString(s string) {
	w.WriteU32LE(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
