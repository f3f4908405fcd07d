package strictcodec

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of m in ascending order, suitable for passing
// to WriteMap so that map encoding is key-sorted as spec.md §4.1 requires.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SortedDedup returns items sorted ascending with duplicates removed, the
// canonical form strict encoding requires for Set<T>.
func SortedDedup[T cmp.Ordered](items []T) []T {
	out := slices.Clone(items)
	slices.Sort(out)
	return slices.Compact(out)
}

// WriteSet writes a Set<T>-shaped encoding: items are sorted and deduplicated
// first, then written like a Vec.
func WriteSet[T cmp.Ordered](w *Writer, items []T, enc func(*Writer, T) error) error {
	return WriteSlice(w, SortedDedup(items), enc)
}

// ReadSet reads a Set<T>-shaped encoding and rejects a decoded sequence that
// is not strictly ascending (i.e. contains a duplicate or is out of order),
// matching original_source/strict_encoding.rs.
func ReadSet[T cmp.Ordered](r *Reader, dec func(*Reader) (T, error)) ([]T, error) {
	items, err := ReadSlice(r, dec)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(items); i++ {
		if items[i] == items[i-1] {
			return nil, ErrDuplicateSetMember
		}
		if items[i] < items[i-1] {
			return nil, ErrDuplicateSetMember
		}
	}
	return items, nil
}
