package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/avancedb/avancedb/internal/avancedb"
	"github.com/avancedb/avancedb/internal/config"
	"github.com/avancedb/avancedb/internal/dblog"
	"github.com/avancedb/avancedb/internal/metrics"
	"github.com/avancedb/avancedb/internal/pool"
)

func main() {
	shardCount := flag.Int("shard-count", config.DefaultShardCount, "Number of document collection shards per database")
	workerCount := flag.Int("worker-count", 0, "Number of map/reduce worker goroutines (0 = runtime.NumCPU())")
	bulkFanout := flag.Int("bulk-fanout", config.DefaultBulkFanout, "Concurrency used when applying a _bulk_docs batch")
	debug := flag.Bool("debug", false, "Enable debug-level logging")
	flag.Parse()

	logr := dblog.Default()
	if *debug {
		logr.SetLevel(dblog.LevelDebug)
	}

	cfg := config.Default()
	cfg.ShardCount = *shardCount
	cfg.WorkerCount = *workerCount
	cfg.BulkFanout = *bulkFanout

	m := metrics.New()
	registry := avancedb.NewRegistry(cfg, logr, m)

	workers := pool.New(cfg, logr)
	workers.Start()

	logr.Info("avancedb started: shard-count=%d worker-count=%d", cfg.ShardCount, workers.WorkerCount())

	if _, err := registry.CreateDatabase("default"); err != nil {
		logr.Error("failed to create default database: %v", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "database \"default\" ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logr.Info("shutting down...")
	workers.Stop()
	logr.Info("avancedb stopped")
}
