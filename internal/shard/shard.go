// Package shard implements the document collection: a single lazy
// flat set plus the mutex that serializes access to it, with explicit
// lock/try-lock/unlock so callers can hold a consistent iteration
// snapshot across many operations.
package shard

import (
	"sync"

	"github.com/avancedb/avancedb/internal/lfs"
)

// padding keeps adjacent shards in a []Collection from sharing a cache
// line. 64 bytes matches a typical cache line.
type padding [64]byte

// Collection is one shard of a Database: an ordered set of T plus the
// mutex that serializes every mutating operation and iteration over it.
type Collection[T any] struct {
	mu  sync.Mutex
	set *lfs.Set[T]
	_   padding
}

// New constructs an empty shard using the given ordering and the LFS
// zone caps.
func New[T any](less lfs.Less[T], equal lfs.Equal[T], maxUnsorted, maxNursery int) *Collection[T] {
	return &Collection[T]{set: lfs.New(less, equal, maxUnsorted, maxNursery)}
}

// Lock acquires the shard's mutex. Pair with Unlock; used when a caller
// needs to iterate the shard across multiple operations.
func (c *Collection[T]) Lock() { c.mu.Lock() }

// TryLock attempts to acquire the mutex without blocking.
func (c *Collection[T]) TryLock() bool { return c.mu.TryLock() }

// Unlock releases the shard's mutex.
func (c *Collection[T]) Unlock() { c.mu.Unlock() }

// Insert places v in the shard, replacing any existing equal element.
func (c *Collection[T]) Insert(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set.Insert(v)
}

// Erase removes the element equal to v and reports how many were
// removed (0 or 1).
func (c *Collection[T]) Erase(v T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.Erase(v)
}

// Find looks up the element equal to key.
func (c *Collection[T]) Find(key T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.Find(key)
}

// Copy materializes the shard's contents under lock.
func (c *Collection[T]) Copy(sortResult bool) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.Copy(sortResult)
}

// Size returns the current element count.
func (c *Collection[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.Size()
}

// Ascend iterates the shard's elements in ascending order, stopping
// early when fn returns false. The caller must hold the shard's mutex
// (via Lock/TryLock) for the duration of the traversal; Ascend itself
// does not lock, so it can span other locked operations.
func (c *Collection[T]) Ascend(fn func(v T) bool) {
	c.set.Ascend(fn)
}

// WithLock runs fn while holding the shard's mutex, giving fn direct
// access to the underlying Lazy Flat Set for compound read-modify-write
// sequences (e.g. the Database's find-then-insert revision bump).
func (c *Collection[T]) WithLock(fn func(set *lfs.Set[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.set)
}
