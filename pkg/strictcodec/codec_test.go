package strictcodec

import (
	"errors"
	"testing"
)

func encodeU32String(u uint32, s string) ([]byte, error) {
	w := NewWriter()
	if err := w.WriteU32(u); err != nil {
		return nil, err
	}
	if err := w.WriteString(s); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func TestWriteReadRoundTrip(t *testing.T) {
	data, err := encodeU32String(42, "rgb20")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var gotU uint32
	var gotS string
	err = DecodeExact(data, func(r *Reader) error {
		var err error
		gotU, err = r.ReadU32()
		if err != nil {
			return err
		}
		gotS, err = r.ReadString()
		return err
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if gotU != 42 || gotS != "rgb20" {
		t.Errorf("got (%d, %q), want (42, %q)", gotU, gotS, "rgb20")
	}
}

func TestDecodeExactRejectsTrailingBytes(t *testing.T) {
	data, _ := encodeU32String(1, "x")
	data = append(data, 0xFF)

	err := DecodeExact(data, func(r *Reader) error {
		_, err := r.ReadU32()
		if err != nil {
			return err
		}
		_, err = r.ReadString()
		return err
	})
	if !errors.Is(err, ErrDataNotEntirelyConsumed) {
		t.Errorf("expected ErrDataNotEntirelyConsumed, got %v", err)
	}
}

func TestReadBoolRejectsInvalidSignificator(t *testing.T) {
	r := NewReader([]byte{0x02})
	_, err := r.ReadBool()
	if !errors.Is(err, ErrWrongOptionalEncoding) {
		t.Errorf("expected ErrWrongOptionalEncoding, got %v", err)
	}
}

func TestWriteOptionRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.WriteOption(true, func(w *Writer) error { return w.WriteU8(7) }); err != nil {
		t.Fatalf("WriteOption failed: %v", err)
	}

	r := NewReader(w.Bytes())
	var got uint8
	ok, err := r.ReadOption(func(r *Reader) error {
		v, err := r.ReadU8()
		got = v
		return err
	})
	if err != nil {
		t.Fatalf("ReadOption failed: %v", err)
	}
	if !ok || got != 7 {
		t.Errorf("got (%v, %d), want (true, 7)", ok, got)
	}
}

func TestWriteLenExceedsMaxItems(t *testing.T) {
	w := NewWriter()
	err := w.WriteLen(MaxLen + 1)
	if !errors.Is(err, ErrExceedMaxItems) {
		t.Errorf("expected ErrExceedMaxItems, got %v", err)
	}
}

func encodeU8(w *Writer, v uint8) error { return w.WriteU8(v) }
func decodeU8(r *Reader) (uint8, error) { return r.ReadU8() }

func TestSliceRoundTrip(t *testing.T) {
	w := NewWriter()
	in := []uint8{1, 2, 3, 4}
	if err := WriteSlice(w, in, encodeU8); err != nil {
		t.Fatalf("WriteSlice failed: %v", err)
	}

	r := NewReader(w.Bytes())
	out, err := ReadSlice(r, decodeU8)
	if err != nil {
		t.Fatalf("ReadSlice failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d items, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("item %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestMapRejectsDuplicateKeys(t *testing.T) {
	w := NewWriter()
	_ = w.WriteLen(2)
	_ = w.WriteU8(5)
	_ = w.WriteU8(1)
	_ = w.WriteU8(5)
	_ = w.WriteU8(2)

	r := NewReader(w.Bytes())
	_, _, err := ReadMap(r, decodeU8, decodeU8)
	if !errors.Is(err, ErrDuplicateMapKey) {
		t.Errorf("expected ErrDuplicateMapKey, got %v", err)
	}
}

func TestSetRejectsOutOfOrder(t *testing.T) {
	w := NewWriter()
	_ = w.WriteLen(2)
	_ = w.WriteU8(5)
	_ = w.WriteU8(1)

	r := NewReader(w.Bytes())
	_, err := ReadSet(r, decodeU8)
	if !errors.Is(err, ErrDuplicateSetMember) {
		t.Errorf("expected ErrDuplicateSetMember for out-of-order set, got %v", err)
	}
}

func TestSortedKeysAscending(t *testing.T) {
	m := map[uint8]string{3: "c", 1: "a", 2: "b"}
	keys := SortedKeys(m)
	want := []uint8{1, 2, 3}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %d, want %d", i, keys[i], k)
		}
	}
}

func TestUnknownDiscriminantError(t *testing.T) {
	err := &UnknownDiscriminantError{TypeName: "RevealedState", Got: 0x09}
	if !errors.Is(err, ErrUnknownDiscriminant) {
		t.Errorf("expected errors.Is match against ErrUnknownDiscriminant")
	}
}
