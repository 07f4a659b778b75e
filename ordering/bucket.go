package ordering

import (
	"sort"
	"time"
)

// Axis describes one ordered classification scheme over items of type T.
// The same allocator runs on every axis; only the accessors differ.
type Axis[T any] struct {
	Name string
	// Bucket returns the bucket key of an item, or false if the item is not
	// on this axis at all.
	Bucket func(T) (string, bool)
	// Key returns the item's order key on this axis.
	Key func(T) float64
	// Touched returns the last-modified time used to break key ties.
	Touched func(T) time.Time
}

// Less orders by key ascending, then most recently touched first.
func (a Axis[T]) Less(x, y T) bool {
	kx, ky := a.Key(x), a.Key(y)
	if kx != ky {
		return kx < ky
	}
	return a.Touched(x).After(a.Touched(y))
}

// Sort sorts items in place in display order.
func (a Axis[T]) Sort(items []T) {
	sort.SliceStable(items, func(i, j int) bool { return a.Less(items[i], items[j]) })
}

// Members returns the items in bucket, sorted, leaving out those for which
// skip returns true.
func (a Axis[T]) Members(items []T, bucket string, skip func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if skip != nil && skip(it) {
			continue
		}
		if b, ok := a.Bucket(it); ok && b == bucket {
			out = append(out, it)
		}
	}
	a.Sort(out)
	return out
}

// Keys extracts the order keys of sorted members.
func (a Axis[T]) Keys(members []T) []float64 {
	keys := make([]float64, len(members))
	for i, m := range members {
		keys[i] = a.Key(m)
	}
	return keys
}

// InsertAt computes the key for placing an item at index among the sorted
// members of a bucket.
func (a Axis[T]) InsertAt(members []T, index int) (float64, error) {
	return Allocate(a.Keys(members), index)
}

// Append computes the key for placing an item after every member.
func (a Axis[T]) Append(members []T) (float64, error) {
	return AppendKey(a.Keys(members))
}
