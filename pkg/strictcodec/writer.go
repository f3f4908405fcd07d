// Package strictcodec implements the deterministic, length-prefixed,
// little-endian strict encoding used for both wire transport and
// commitment preimages (spec.md §4.1).
package strictcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxLen is the largest length a Vec/byte-string/map/set may declare: the
// strict-encoding length prefix is always a u16.
const MaxLen = 0xFFFF

// Encodable is implemented by every type with a canonical strict encoding.
type Encodable interface {
	StrictEncode(w *Writer) error
}

// Writer accumulates a strict-encoded byte stream.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteByte writes a single byte (used for discriminators and option tags).
func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

// WriteU8 writes an unsigned 8-bit integer.
func (w *Writer) WriteU8(v uint8) error {
	return w.buf.WriteByte(v)
}

// WriteU16 writes an unsigned 16-bit little-endian integer.
func (w *Writer) WriteU16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.buf.Write(b[:])
	return err
}

// WriteU32 writes an unsigned 32-bit little-endian integer.
func (w *Writer) WriteU32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.buf.Write(b[:])
	return err
}

// WriteU64 writes an unsigned 64-bit little-endian integer.
func (w *Writer) WriteU64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.buf.Write(b[:])
	return err
}

// WriteF32 writes an IEEE-754 single-precision float, little-endian.
func (w *Writer) WriteF32(v float32) error {
	return w.WriteU32(math.Float32bits(v))
}

// WriteF64 writes an IEEE-754 double-precision float, little-endian.
func (w *Writer) WriteF64(v float64) error {
	return w.WriteU64(math.Float64bits(v))
}

// WriteLen writes a collection length as a u16, failing with
// ErrExceedMaxItems if n overflows.
func (w *Writer) WriteLen(n int) error {
	if n > MaxLen {
		return fmt.Errorf("%w: got %d", ErrExceedMaxItems, n)
	}
	return w.WriteU16(uint16(n))
}

// WriteRawBytes writes data verbatim with no length prefix — used for
// fixed-size fields such as hashes and Pedersen commitment points.
func (w *Writer) WriteRawBytes(data []byte) error {
	_, err := w.buf.Write(data)
	return err
}

// WriteBlob writes a byte string as a u16 length prefix followed by the raw
// bytes.
func (w *Writer) WriteBlob(data []byte) error {
	if err := w.WriteLen(len(data)); err != nil {
		return err
	}
	return w.WriteRawBytes(data)
}

// WriteString writes a UTF-8 string the same way as WriteBlob. A string that
// is not valid UTF-8 is rejected with ErrUTF8 before anything is written;
// decoding validates UTF-8 as well.
func (w *Writer) WriteString(s string) error {
	if !utf8.ValidString(s) {
		return ErrUTF8
	}
	return w.WriteBlob([]byte(s))
}

// WriteBool writes a boolean as a single 0x00/0x01 byte.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteByte(0x01)
	}
	return w.WriteByte(0x00)
}

// WriteOption writes the Option significator byte, then — if present is
// true — invokes encodeSome to write the payload.
func (w *Writer) WriteOption(present bool, encodeSome func(*Writer) error) error {
	if !present {
		return w.WriteByte(0x00)
	}
	if err := w.WriteByte(0x01); err != nil {
		return err
	}
	return encodeSome(w)
}

// WriteSlice writes a u16 length prefix followed by each element encoded by
// enc, in slice order. Used for Vec<T> and for already-sorted Set<T>.
func WriteSlice[T any](w *Writer, items []T, enc func(*Writer, T) error) error {
	if err := w.WriteLen(len(items)); err != nil {
		return err
	}
	for _, item := range items {
		if err := enc(w, item); err != nil {
			return err
		}
	}
	return nil
}

// WriteMap writes a BTreeMap-shaped encoding: a u16 size prefix followed by
// key‖value entries in ascending key order. keys must already be the
// key-sorted, deduplicated order of m — callers build that order once via
// SortedKeys and reuse it for both commitment and wire purposes.
func WriteMap[K comparable, V any](w *Writer, keys []K, m map[K]V, encKey func(*Writer, K) error, encVal func(*Writer, V) error) error {
	if err := w.WriteLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := encKey(w, k); err != nil {
			return err
		}
		if err := encVal(w, m[k]); err != nil {
			return err
		}
	}
	return nil
}
