// Package ordering assigns fractional sort keys for drag-and-drop reordering.
package ordering

import (
	"errors"

	"cardmass/domain"
)

// Stride is the spacing between keys produced by Renormalize.
const Stride = 1024.0

// ErrKeyCollision is returned when the neighbours of an insertion point no
// longer leave room for a distinct key. The bucket must be renormalized
// before retrying.
var ErrKeyCollision = errors.New("ordering: neighbouring keys collide")

// Allocate returns the key for an item inserted before keys[index]. keys must
// be sorted ascending and must not contain the item being moved; index may
// equal len(keys) to append.
func Allocate(keys []float64, index int) (float64, error) {
	if index < 0 || index > len(keys) {
		return 0, domain.Validationf("position %d out of range [0,%d]", index, len(keys))
	}
	switch {
	case len(keys) == 0:
		return 0, nil
	case index == 0:
		// Past 2^53 the step rounds away and the key would equal the minimum.
		if k := keys[0] - 1; k < keys[0] {
			return k, nil
		}
		return 0, ErrKeyCollision
	case index == len(keys):
		if k := keys[len(keys)-1] + 1; k > keys[len(keys)-1] {
			return k, nil
		}
		return 0, ErrKeyCollision
	}
	pred, succ := keys[index-1], keys[index]
	if pred >= succ {
		return 0, ErrKeyCollision
	}
	mid := (pred + succ) / 2
	if mid <= pred || mid >= succ {
		return 0, ErrKeyCollision
	}
	return mid, nil
}

// AppendKey returns the key placing an item after every key in keys. An
// empty bucket starts at 1 to leave room below the first item.
func AppendKey(keys []float64) (float64, error) {
	if len(keys) == 0 {
		return 1, nil
	}
	return Allocate(keys, len(keys))
}

// Renormalize returns n evenly spaced integer keys starting at Stride.
func Renormalize(n int) []float64 {
	keys := make([]float64, n)
	for i := range keys {
		keys[i] = float64(i+1) * Stride
	}
	return keys
}
