// Package config parameterizes the frontend and backend binaries via
// environment variables, with fixed defaults for every knob except the
// backend's database DSN.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Frontend holds the frontend binary's runtime configuration.
type Frontend struct {
	ListenAddr      string        // FRONTEND_ADDR, default ":6969"
	BackendAddr     string        // BACKEND_ADDR, default "127.0.0.1:7000"
	CacheCapacity   int           // CACHE_CAPACITY, default 100
	WorkerCount     int           // WORKER_COUNT, default 8
	ReadBufferBytes int           // READ_BUFFER_BYTES, default 10240
	DialTimeout     time.Duration // dial timeout for the backend connection
}

// DefaultFrontend returns the frontend's default configuration.
func DefaultFrontend() Frontend {
	return Frontend{
		ListenAddr:      ":6969",
		BackendAddr:     "127.0.0.1:7000",
		CacheCapacity:   100,
		WorkerCount:     8,
		ReadBufferBytes: 10240,
		DialTimeout:     5 * time.Second,
	}
}

// LoadFrontend overrides DefaultFrontend with any matching environment
// variables that are set, failing fast on a malformed numeric value so
// misconfiguration is caught at startup rather than at first request.
func LoadFrontend() (Frontend, error) {
	cfg := DefaultFrontend()

	if v, ok := os.LookupEnv("FRONTEND_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("BACKEND_ADDR"); ok {
		cfg.BackendAddr = v
	}
	if err := overrideInt("CACHE_CAPACITY", &cfg.CacheCapacity); err != nil {
		return cfg, err
	}
	if err := overrideInt("WORKER_COUNT", &cfg.WorkerCount); err != nil {
		return cfg, err
	}
	if err := overrideInt("READ_BUFFER_BYTES", &cfg.ReadBufferBytes); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Backend holds the backend binary's runtime configuration.
type Backend struct {
	ListenAddr      string // BACKEND_ADDR's bind form, default ":7000"
	ReadBufferBytes int    // default 2048
	WorkerCount     int    // default 8
	PostgresDSN     string // POSTGRES_DSN, no default: required
}

// DefaultBackend returns the backend's default configuration.
func DefaultBackend() Backend {
	return Backend{
		ListenAddr:      ":7000",
		ReadBufferBytes: 2048,
		WorkerCount:     8,
	}
}

// LoadBackend overrides DefaultBackend from the environment. POSTGRES_DSN
// is mandatory: the backend cannot open its persistent store without it.
func LoadBackend() (Backend, error) {
	cfg := DefaultBackend()

	if v, ok := os.LookupEnv("BACKEND_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if err := overrideInt("READ_BUFFER_BYTES", &cfg.ReadBufferBytes); err != nil {
		return cfg, err
	}
	if err := overrideInt("WORKER_COUNT", &cfg.WorkerCount); err != nil {
		return cfg, err
	}

	dsn, ok := os.LookupEnv("POSTGRES_DSN")
	if !ok || dsn == "" {
		return cfg, fmt.Errorf("config: POSTGRES_DSN is required")
	}
	cfg.PostgresDSN = dsn

	return cfg, nil
}

func overrideInt(envVar string, dst *int) error {
	v, ok := os.LookupEnv(envVar)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s=%q is not an integer: %w", envVar, v, err)
	}
	*dst = n
	return nil
}
