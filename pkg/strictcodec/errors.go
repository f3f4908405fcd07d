package strictcodec

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, matching the exhaustive list in spec.md §4.1.
var (
	// ErrIO wraps an underlying I/O failure while reading or writing.
	ErrIO = errors.New("strict codec: I/O error")

	// ErrUTF8 indicates a byte string failed UTF-8 validation while
	// decoding as a string.
	ErrUTF8 = errors.New("strict codec: invalid UTF-8")

	// ErrSizeOverflow indicates a length exceeded the u16 ceiling strict
	// encoding imposes on every variable-length collection.
	ErrSizeOverflow = errors.New("strict codec: size exceeds u16::MAX")

	// ErrExceedMaxItems is ErrSizeOverflow's manifestation for Vec/Set/Map
	// encoding specifically (spec.md §4.1, §8 boundary behavior).
	ErrExceedMaxItems = fmt.Errorf("%w: exceeds max items (65535)", ErrSizeOverflow)

	// ErrIntegrity indicates a fixed-size field read fewer bytes than its
	// declared width (truncated input).
	ErrIntegrity = errors.New("strict codec: integrity error on fixed-size field")

	// ErrDataNotEntirelyConsumed is the full-consumption law violation:
	// decoding a top-level message left trailing bytes unread.
	ErrDataNotEntirelyConsumed = errors.New("strict codec: data not entirely consumed")

	// ErrDuplicateMapKey indicates a decoded BTreeMap-shaped encoding
	// contained the same key twice (original_source/strict_encoding.rs).
	ErrDuplicateMapKey = errors.New("strict codec: duplicate map key")

	// ErrDuplicateSetMember indicates a decoded set-shaped encoding
	// contained the same element twice or was not in ascending order.
	ErrDuplicateSetMember = errors.New("strict codec: duplicate set member")
)

// OptionSignificatorError reports an Option significator byte other than
// 0x00 (None) or 0x01 (Some).
type OptionSignificatorError struct {
	Got byte
}

func (e *OptionSignificatorError) Error() string {
	return fmt.Sprintf("strict codec: wrong optional encoding significator 0x%02x", e.Got)
}

func (e *OptionSignificatorError) Is(target error) bool {
	return target == ErrWrongOptionalEncoding
}

// ErrWrongOptionalEncoding is the sentinel matched by errors.Is against any
// *OptionSignificatorError, so callers that don't care about the exact byte
// can still do errors.Is(err, ErrWrongOptionalEncoding).
var ErrWrongOptionalEncoding = errors.New("strict codec: wrong optional encoding")

// UnknownDiscriminantError reports an enum tag byte with no registered
// variant.
type UnknownDiscriminantError struct {
	TypeName string
	Got      byte
}

func (e *UnknownDiscriminantError) Error() string {
	return fmt.Sprintf("strict codec: unknown discriminant 0x%02x for %s", e.Got, e.TypeName)
}

func (e *UnknownDiscriminantError) Is(target error) bool {
	return target == ErrUnknownDiscriminant
}

// ErrUnknownDiscriminant is the sentinel matched by errors.Is against any
// *UnknownDiscriminantError.
var ErrUnknownDiscriminant = errors.New("strict codec: unknown enum discriminant")
