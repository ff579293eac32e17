// Command backend runs the durable-store node: it opens a
// PostgreSQL-backed key/value table and serves the internal
// db_set/db_get/db_delete wire surface over the same accept/queue/worker
// skeleton the frontend uses.
package main

import (
	"context"
	"os"

	"github.com/dev69/decs/internal/backendstore"
	"github.com/dev69/decs/internal/config"
	"github.com/dev69/decs/internal/logging"
	"github.com/dev69/decs/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := logging.New(os.Stdout)

	cfg, err := config.LoadBackend()
	if err != nil {
		logger.Event("ERROR", "config", map[string]any{"error": err.Error()})
		return 1
	}

	ctx := context.Background()
	backend, err := backendstore.NewPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Event("ERROR", "postgres connect failed", map[string]any{"error": err.Error()})
		return 1
	}

	dispatcher := backendstore.NewDispatcher(backend)

	srv := server.New(server.Config{
		ListenAddr:      cfg.ListenAddr,
		WorkerCount:     cfg.WorkerCount,
		ReadBufferBytes: cfg.ReadBufferBytes,
	}, dispatcher, logger)

	srv.OnShutdown = func(ctx context.Context) error {
		backend.Close()
		return nil
	}

	return srv.Run(ctx)
}
