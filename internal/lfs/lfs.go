// Package lfs implements a lazy flat set: an ordered set tuned for
// high insert rates, maintained as three zones (a sorted "main", a
// sorted "nursery" capped at a small size, and an append-only
// "unsorted" buffer) so that most inserts are O(1) and sorted
// materialization is amortized rather than paid on every write.
package lfs

import "sort"

// Less reports whether a orders before b.
type Less[T any] func(a, b T) bool

// Equal reports whether a and b represent the same set element (for Set,
// equality is on the element's key, e.g. a Document's id, not its full
// value).
type Equal[T any] func(a, b T) bool

// Set is a Lazy Flat Set of values of type T. Set itself performs no
// locking; callers that mutate concurrently must serialize externally
// (internal/shard does this with a mutex per Document Collection).
type Set[T any] struct {
	less  Less[T]
	equal Equal[T]

	maxUnsorted int
	maxNursery  int

	main     []T
	nursery  []T
	unsorted []T
}

// New creates an empty Lazy Flat Set. maxUnsorted = 0 degenerates to a
// plain sorted set (every insert is flushed straight into the sorted
// nursery); maxNursery = 0 similarly collapses the nursery zone away, so
// with both at 0 every insert lands directly in main.
func New[T any](less Less[T], equal Equal[T], maxUnsorted, maxNursery int) *Set[T] {
	return &Set[T]{
		less:        less,
		equal:       equal,
		maxUnsorted: maxUnsorted,
		maxNursery:  maxNursery,
	}
}

// Size returns the total number of elements across all three zones.
func (s *Set[T]) Size() int {
	return len(s.main) + len(s.nursery) + len(s.unsorted)
}

// Insert places v in the set, replacing any existing element that
// Equal considers the same.
func (s *Set[T]) Insert(v T) {
	if i, ok := binarySearch(s.main, v, s.less, s.equal); ok {
		s.main[i] = v
		return
	}
	if i, ok := binarySearch(s.nursery, v, s.less, s.equal); ok {
		s.nursery[i] = v
		return
	}
	if i, ok := linearSearch(s.unsorted, v, s.equal); ok {
		s.unsorted[i] = v
		return
	}

	s.unsorted = append(s.unsorted, v)

	if len(s.unsorted) > s.maxUnsorted {
		s.flushUnsortedToNursery()
	}
	if len(s.nursery) > s.maxNursery {
		s.flushNurseryToMain()
	}
}

// Erase removes the element equal to v, if any, and reports how many
// elements were removed (0 or 1).
func (s *Set[T]) Erase(v T) int {
	if i, ok := binarySearch(s.main, v, s.less, s.equal); ok {
		s.main = append(s.main[:i], s.main[i+1:]...)
		return 1
	}
	if i, ok := binarySearch(s.nursery, v, s.less, s.equal); ok {
		s.nursery = append(s.nursery[:i], s.nursery[i+1:]...)
		return 1
	}
	if i, ok := linearSearch(s.unsorted, v, s.equal); ok {
		last := len(s.unsorted) - 1
		s.unsorted[i] = s.unsorted[last]
		s.unsorted = s.unsorted[:last]
		return 1
	}
	return 0
}

// Find returns the element equal to key, consulting all three zones,
// and whether one was present.
func (s *Set[T]) Find(key T) (T, bool) {
	if i, ok := binarySearch(s.main, key, s.less, s.equal); ok {
		return s.main[i], true
	}
	if i, ok := binarySearch(s.nursery, key, s.less, s.equal); ok {
		return s.nursery[i], true
	}
	if i, ok := linearSearch(s.unsorted, key, s.equal); ok {
		return s.unsorted[i], true
	}
	var zero T
	return zero, false
}

// Copy materializes the set into a freshly allocated slice. When sort is
// true the result is globally ordered by Less; otherwise ordering is
// unspecified but every element appears exactly once.
func (s *Set[T]) Copy(sortResult bool) []T {
	out := make([]T, 0, s.Size())

	if !sortResult {
		out = append(out, s.main...)
		out = append(out, s.nursery...)
		out = append(out, s.unsorted...)
		return out
	}

	sortedUnsorted := dedupSorted(sortSlice(s.unsorted, s.less), s.equal)
	return mergeThree(s.main, s.nursery, sortedUnsorted, s.less)
}

// Ascend calls fn for every element in ascending order, stopping early
// when fn returns false. The traversal merges the three zones on the
// fly without materializing the whole set; callers that mutate
// concurrently must serialize externally, same as every other method.
func (s *Set[T]) Ascend(fn func(v T) bool) {
	u := dedupSorted(sortSlice(s.unsorted, s.less), s.equal)

	// A key lives in exactly one zone (Insert replaces in place), so the
	// merge never sees cross-zone duplicates and a plain min-of-three
	// walk is enough.
	i, j, k := 0, 0, 0
	for i < len(s.main) || j < len(s.nursery) || k < len(u) {
		var v T
		switch {
		case i < len(s.main) &&
			(j >= len(s.nursery) || !s.less(s.nursery[j], s.main[i])) &&
			(k >= len(u) || !s.less(u[k], s.main[i])):
			v = s.main[i]
			i++
		case j < len(s.nursery) &&
			(k >= len(u) || !s.less(u[k], s.nursery[j])):
			v = s.nursery[j]
			j++
		default:
			v = u[k]
			k++
		}
		if !fn(v) {
			return
		}
	}
}

// flushUnsortedToNursery sorts and dedups the unsorted buffer, then
// merge-inserts it into the nursery.
func (s *Set[T]) flushUnsortedToNursery() {
	sorted := dedupSorted(sortSlice(s.unsorted, s.less), s.equal)
	s.unsorted = s.unsorted[:0]
	s.nursery = mergeTwo(s.nursery, sorted, s.less)
}

// flushNurseryToMain merges the nursery into main and clears it.
func (s *Set[T]) flushNurseryToMain() {
	s.main = mergeTwo(s.main, s.nursery, s.less)
	s.nursery = s.nursery[:0]
}

func sortSlice[T any](in []T, less Less[T]) []T {
	out := make([]T, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// dedupSorted keeps the last occurrence of each run of equal elements
// in a sorted slice, so the most recently inserted copy of a key wins.
func dedupSorted[T any](sorted []T, equal Equal[T]) []T {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if equal(out[len(out)-1], v) {
			out[len(out)-1] = v
			continue
		}
		out = append(out, v)
	}
	return out
}

// mergeTwo two-way merges a and b, both already sorted and internally
// deduped, replacing a's value with b's on key collision ("newer copy
// wins").
func mergeTwo[T any](a, b []T, less Less[T]) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case less(a[i], b[j]):
			out = append(out, a[i])
			i++
		case less(b[j], a[i]):
			out = append(out, b[j])
			j++
		default:
			// Equal by order: b (the newer zone) wins.
			out = append(out, b[j])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// mergeThree three-way merges main, nursery, and the sorted/deduped
// unsorted zone into one globally sorted, deduped slice, preferring the
// "newest" zone (unsorted > nursery > main) on key collision.
func mergeThree[T any](main, nursery, unsorted []T, less Less[T]) []T {
	return mergeTwo(mergeTwo(main, nursery, less), unsorted, less)
}

func binarySearch[T any](arr []T, key T, less Less[T], equal Equal[T]) (int, bool) {
	i := sort.Search(len(arr), func(i int) bool { return !less(arr[i], key) })
	if i < len(arr) && equal(arr[i], key) {
		return i, true
	}
	return 0, false
}

func linearSearch[T any](arr []T, key T, equal Equal[T]) (int, bool) {
	for i, v := range arr {
		if equal(v, key) {
			return i, true
		}
	}
	return 0, false
}
