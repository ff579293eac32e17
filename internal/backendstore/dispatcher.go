package backendstore

import (
	"context"
	"errors"

	"github.com/dev69/decs/internal/wire"
)

// Dispatcher turns a parsed wire request into a response by calling into
// a Backend: missing parameters are 400, a store miss is 404, a store
// failure is 500, success is 200.
type Dispatcher struct {
	backend Backend
}

// NewDispatcher wraps backend as a request dispatcher.
func NewDispatcher(backend Backend) *Dispatcher {
	return &Dispatcher{backend: backend}
}

// Dispatch implements the internal/server Dispatcher interface.
func (d *Dispatcher) Dispatch(ctx context.Context, req *wire.Request) wire.Response {
	switch req.Op {
	case "db_set":
		return d.handleSet(ctx, req)
	case "db_get":
		return d.handleGet(ctx, req)
	case "db_delete":
		return d.handleDelete(ctx, req)
	default:
		return wire.Response{Status: wire.StatusNotFound, Body: "Internal API: /db_set, /db_get, /db_delete\n"}
	}
}

func (d *Dispatcher) handleSet(ctx context.Context, req *wire.Request) wire.Response {
	if !req.Has("key") || !req.Has("value") {
		return wire.Response{Status: wire.StatusBadRequest, Body: "Error missing 'key' or 'value' parameter for /db_set."}
	}

	if err := d.backend.Set(ctx, req.Get("key"), req.Get("value")); err != nil {
		return wire.Response{Status: wire.StatusInternalServerError, Body: "ERROR: Database write failed."}
	}
	return wire.Response{Status: wire.StatusOK, Body: "OK"}
}

func (d *Dispatcher) handleGet(ctx context.Context, req *wire.Request) wire.Response {
	if !req.Has("key") {
		return wire.Response{Status: wire.StatusBadRequest, Body: "Error missing 'key' parameter for /db_get."}
	}

	value, err := d.backend.Get(ctx, req.Get("key"))
	switch {
	case errors.Is(err, ErrNotFound):
		return wire.Response{Status: wire.StatusNotFound, Body: "Error: Key Not Found."}
	case err != nil:
		return wire.Response{Status: wire.StatusInternalServerError, Body: "ERROR: Database read failed."}
	default:
		return wire.Response{Status: wire.StatusOK, Body: value}
	}
}

func (d *Dispatcher) handleDelete(ctx context.Context, req *wire.Request) wire.Response {
	if !req.Has("key") {
		return wire.Response{Status: wire.StatusBadRequest, Body: "Error missing 'key' parameter for /db_delete."}
	}

	err := d.backend.Delete(ctx, req.Get("key"))
	switch {
	case errors.Is(err, ErrNotFound):
		return wire.Response{Status: wire.StatusNotFound, Body: "Error: Key Not Found in Database."}
	case err != nil:
		return wire.Response{Status: wire.StatusInternalServerError, Body: "ERROR: Database delete failed."}
	default:
		return wire.Response{Status: wire.StatusOK, Body: "OK"}
	}
}
