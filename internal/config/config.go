// Package config holds the tunables for a Database and its map/reduce
// worker pool: a plain struct with a Default constructor.
package config

// Config controls shard count, the Lazy Flat Set's zone thresholds, and
// the map/reduce worker pool's size.
type Config struct {
	// ShardCount is the number of document-collection shards. Must be a
	// power of two.
	ShardCount int

	// MaxUnsortedEntries caps the LFS unsorted append buffer before it
	// is flushed into the nursery.
	MaxUnsortedEntries int

	// MaxNurseryEntries caps the LFS nursery before it is merged into
	// main.
	MaxNurseryEntries int

	// WorkerCount is the number of map/reduce worker goroutines, each
	// holding one persistent JS runtime. Zero means runtime.NumCPU().
	WorkerCount int

	// TaskQueueSize bounds the worker pool's task FIFO.
	TaskQueueSize int

	// BulkFanout is the concurrency used by PostBulkDocuments when
	// applying independent per-document writes.
	BulkFanout int
}

const (
	DefaultShardCount         = 64
	DefaultMaxUnsortedEntries = 16
	DefaultMaxNurseryEntries  = 1024
	DefaultTaskQueueSize      = 1024
	DefaultBulkFanout         = 8
)

// Default returns the configuration used when a Database is constructed
// without explicit overrides.
func Default() *Config {
	return &Config{
		ShardCount:          DefaultShardCount,
		MaxUnsortedEntries:  DefaultMaxUnsortedEntries,
		MaxNurseryEntries:   DefaultMaxNurseryEntries,
		WorkerCount:         0,
		TaskQueueSize:       DefaultTaskQueueSize,
		BulkFanout:          DefaultBulkFanout,
	}
}
