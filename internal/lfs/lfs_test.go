package lfs

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	key   int
	value string
}

func lessEntry(a, b entry) bool  { return a.key < b.key }
func equalEntry(a, b entry) bool { return a.key == b.key }

func newTestSet(maxUnsorted, maxNursery int) *Set[entry] {
	return New(lessEntry, equalEntry, maxUnsorted, maxNursery)
}

func TestInsertFindReplace(t *testing.T) {
	s := newTestSet(4, 8)
	s.Insert(entry{1, "a"})
	s.Insert(entry{2, "b"})
	s.Insert(entry{1, "a-updated"})

	v, ok := s.Find(entry{key: 1})
	require.True(t, ok)
	require.Equal(t, "a-updated", v.value)
	require.Equal(t, 2, s.Size())
}

func TestInsertOrderInvariance(t *testing.T) {
	perm1 := []int{5, 1, 4, 2, 3, 9, 8, 7, 6, 0}
	perm2 := []int{0, 9, 1, 8, 2, 7, 3, 6, 4, 5}

	s1 := newTestSet(3, 4)
	for _, k := range perm1 {
		s1.Insert(entry{k, "v"})
	}
	s2 := newTestSet(3, 4)
	for _, k := range perm2 {
		s2.Insert(entry{k, "v"})
	}

	out1 := s1.Copy(true)
	out2 := s2.Copy(true)
	require.Equal(t, out1, out2)
	for i := 1; i < len(out1); i++ {
		require.Less(t, out1[i-1].key, out1[i].key)
	}
}

func TestInsertEraseRoundTrip(t *testing.T) {
	s := newTestSet(2, 4)
	for _, k := range []int{3, 1, 4, 1, 5, 9, 2, 6} {
		s.Insert(entry{k, "v"})
	}
	before := s.Copy(true)

	s.Insert(entry{100, "temp"})
	removed := s.Erase(entry{key: 100})
	require.Equal(t, 1, removed)

	after := s.Copy(true)
	require.Equal(t, before, after)
}

func TestEraseMissingReturnsZero(t *testing.T) {
	s := newTestSet(2, 2)
	s.Insert(entry{1, "a"})
	require.Equal(t, 0, s.Erase(entry{key: 42}))
}

func TestZeroCapsDegenerateToSortedSet(t *testing.T) {
	s := newTestSet(0, 0)
	for _, k := range []int{4, 2, 7, 1, 3} {
		s.Insert(entry{k, "v"})
	}
	out := s.Copy(true)
	for i := 1; i < len(out); i++ {
		require.Less(t, out[i-1].key, out[i].key)
	}
	require.Equal(t, 5, s.Size())
}

func TestCopyUnsortedContainsEveryElementOnce(t *testing.T) {
	s := newTestSet(3, 5)
	keys := map[int]bool{}
	for i := 0; i < 50; i++ {
		k := rand.Intn(20)
		keys[k] = true
		s.Insert(entry{k, "v"})
	}

	out := s.Copy(false)
	require.Equal(t, len(keys), len(out))

	seen := map[int]bool{}
	for _, e := range out {
		require.False(t, seen[e.key], "duplicate key %d in unsorted copy", e.key)
		seen[e.key] = true
	}
}

func TestAscendVisitsInOrderAndStopsEarly(t *testing.T) {
	s := newTestSet(3, 4)
	for _, k := range []int{7, 2, 9, 4, 1, 8, 3} {
		s.Insert(entry{k, "v"})
	}

	var keys []int
	s.Ascend(func(e entry) bool {
		keys = append(keys, e.key)
		return true
	})
	require.Equal(t, []int{1, 2, 3, 4, 7, 8, 9}, keys)

	keys = keys[:0]
	s.Ascend(func(e entry) bool {
		keys = append(keys, e.key)
		return len(keys) < 3
	})
	require.Equal(t, []int{1, 2, 3}, keys)
}

func TestRandomizedAgainstReferenceSet(t *testing.T) {
	ref := map[int]string{}
	s := newTestSet(4, 6)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		k := r.Intn(40)
		if r.Intn(4) == 0 {
			delete(ref, k)
			s.Erase(entry{key: k})
			continue
		}
		v := string(rune('a' + r.Intn(26)))
		ref[k] = v
		s.Insert(entry{k, v})
	}

	out := s.Copy(true)
	require.Equal(t, len(ref), len(out))
	for _, e := range out {
		require.Equal(t, ref[e.key], e.value)
	}
	for i := 1; i < len(out); i++ {
		require.Less(t, out[i-1].key, out[i].key)
	}
}
