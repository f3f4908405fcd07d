package strictcodec

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Decodable is implemented by every type with a canonical strict decoding.
type Decodable interface {
	StrictDecode(r *Reader) error
}

// Reader consumes a strict-encoded byte stream.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential strict decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrIO, n, r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU8 reads an unsigned 8-bit integer.
func (r *Reader) ReadU8() (uint8, error) {
	return r.ReadByte()
}

// ReadU16 reads a little-endian u16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian u32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian u64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadF32 reads an IEEE-754 single-precision float, little-endian.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads an IEEE-754 double-precision float, little-endian.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadLen reads a u16 collection length prefix.
func (r *Reader) ReadLen() (int, error) {
	n, err := r.ReadU16()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ReadRawBytes reads exactly n bytes with no length prefix.
func (r *Reader) ReadRawBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadBlob reads a u16-length-prefixed byte string.
func (r *Reader) ReadBlob() ([]byte, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	return r.take(n)
}

// ReadString reads a u16-length-prefixed byte string and validates it as
// UTF-8.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBlob()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrUTF8
	}
	return string(b), nil
}

// ReadBool reads a boolean significator byte.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, &OptionSignificatorError{Got: b}
	}
}

// ReadOption reads the Option significator byte and, if Some, invokes
// decodeSome to consume the payload. ok reports whether the value was
// present.
func (r *Reader) ReadOption(decodeSome func(*Reader) error) (ok bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		if err := decodeSome(r); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, &OptionSignificatorError{Got: b}
	}
}

// ReadSlice reads a u16-length-prefixed sequence of elements decoded by dec.
func ReadSlice[T any](r *Reader, dec func(*Reader) (T, error)) ([]T, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	items := make([]T, n)
	for i := 0; i < n; i++ {
		v, err := dec(r)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

// ReadMap reads a BTreeMap-shaped encoding into a map plus the slice of its
// keys in decoded order, rejecting duplicate keys per original_source/strict_encoding.rs.
func ReadMap[K comparable, V any](r *Reader, decKey func(*Reader) (K, error), decVal func(*Reader) (V, error)) (map[K]V, []K, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, nil, err
	}
	m := make(map[K]V, n)
	keys := make([]K, 0, n)
	for i := 0; i < n; i++ {
		k, err := decKey(r)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := m[k]; dup {
			return nil, nil, ErrDuplicateMapKey
		}
		v, err := decVal(r)
		if err != nil {
			return nil, nil, err
		}
		m[k] = v
		keys = append(keys, k)
	}
	return m, keys, nil
}

// DecodeExact runs fn over data and enforces the full-consumption law: any
// byte left over after fn returns is a DataNotEntirelyConsumed failure.
func DecodeExact(data []byte, fn func(*Reader) error) error {
	r := NewReader(data)
	if err := fn(r); err != nil {
		return err
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d trailing byte(s)", ErrDataNotEntirelyConsumed, r.Remaining())
	}
	return nil
}
