// Command frontend runs the client-facing cache node: it dials the
// backend's persistent-store connection, opens the bounded write-back
// LRU cache, and serves set/get/delete/disconnect until interrupted.
package main

import (
	"context"
	"os"

	"github.com/dev69/decs/internal/cache"
	"github.com/dev69/decs/internal/config"
	"github.com/dev69/decs/internal/frontend"
	"github.com/dev69/decs/internal/logging"
	"github.com/dev69/decs/internal/metrics"
	"github.com/dev69/decs/internal/server"
	"github.com/dev69/decs/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := logging.New(os.Stdout)

	cfg, err := config.LoadFrontend()
	if err != nil {
		logger.Event("ERROR", "config", map[string]any{"error": err.Error()})
		return 1
	}

	// The persistent-store connection comes up before anything else and
	// is fatal if it fails.
	storeClient, err := store.Dial(cfg.BackendAddr, cfg.DialTimeout)
	if err != nil {
		logger.Event("ERROR", "backend dial failed", map[string]any{"addr": cfg.BackendAddr, "error": err.Error()})
		return 1
	}

	counters := &metrics.Counters{}
	engine := cache.NewEngine(cfg.CacheCapacity, storeClient, counters)
	dispatcher := frontend.NewDispatcher(engine)

	srv := server.New(server.Config{
		ListenAddr:      cfg.ListenAddr,
		WorkerCount:     cfg.WorkerCount,
		ReadBufferBytes: cfg.ReadBufferBytes,
	}, dispatcher, logger)

	srv.OnShutdown = func(ctx context.Context) error {
		flushed, ferr := engine.FlushAll(ctx)
		logger.Event("INFO", "flush-all complete", map[string]any{"flushed": flushed})

		snap := counters.Snapshot()
		logger.Event("INFO", "metrics summary", map[string]any{
			"total_access": snap.TotalAccess,
			"cache_hits":   snap.CacheHits,
			"hit_ratio":    snap.HitRatio,
		})

		closeErr := storeClient.Close()
		if ferr != nil {
			return ferr
		}
		return closeErr
	}

	return srv.Run(context.Background())
}
