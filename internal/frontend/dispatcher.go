// Package frontend implements the client-facing CRUD surface: it turns
// a parsed wire request into a cache-engine call and a response, the
// frontend's analogue of internal/backendstore.Dispatcher.
package frontend

import (
	"context"
	"errors"
	"strconv"

	"github.com/dev69/decs/internal/cache"
	"github.com/dev69/decs/internal/store"
	"github.com/dev69/decs/internal/wire"
)

// Dispatcher implements internal/server.Dispatcher against a cache.Engine,
// dispatching set/get/delete/disconnect.
type Dispatcher struct {
	engine *cache.Engine
}

// NewDispatcher wraps engine as the client-facing request dispatcher.
func NewDispatcher(engine *cache.Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Dispatch routes a parsed request to SET, GET, DELETE, or the
// connection-closing "disconnect" op.
func (d *Dispatcher) Dispatch(ctx context.Context, req *wire.Request) wire.Response {
	switch req.Op {
	case "set":
		return d.handleSet(ctx, req)
	case "get":
		return d.handleGet(ctx, req)
	case "delete":
		return d.handleDelete(ctx, req)
	case "disconnect":
		return wire.Response{Status: wire.StatusOK, Body: "Closing connection.", Close: true}
	default:
		return wire.Response{
			Status: wire.StatusBadRequest,
			Body:   "Usage: GET /set?key=K&value=V | /get?key=K | /delete?key=K | /disconnect\n",
		}
	}
}

func (d *Dispatcher) handleSet(ctx context.Context, req *wire.Request) wire.Response {
	if !req.Has("key") || !req.Has("value") {
		return wire.Response{Status: wire.StatusBadRequest, Body: "Error: missing 'key' or 'value' parameter."}
	}
	key, value := req.Get("key"), req.Get("value")

	// A SET always applies locally; a non-nil error here means the
	// eviction write-back of a possibly unrelated key failed, and that
	// failure is what the HTTP status reports.
	if err := d.engine.Set(ctx, key, value); err != nil {
		return wire.Response{Status: wire.StatusServiceUnavailable, Body: "OK: Key " + key + " was set, but an eviction write-back failed."}
	}
	return wire.Response{Status: wire.StatusOK, Body: "OK: Key " + key + " was set, value length " + strconv.Itoa(len(value)) + "."}
}

func (d *Dispatcher) handleGet(ctx context.Context, req *wire.Request) wire.Response {
	if !req.Has("key") {
		return wire.Response{Status: wire.StatusBadRequest, Body: "Error: missing 'key' parameter."}
	}
	key := req.Get("key")

	value, err := d.engine.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return wire.Response{Status: wire.StatusNotFound, Body: "Error: Key : " + key + " Not Found."}
	case err != nil:
		return wire.Response{Status: wire.StatusServiceUnavailable, Body: "Error: backend unavailable."}
	default:
		return wire.Response{Status: wire.StatusOK, Body: value}
	}
}

func (d *Dispatcher) handleDelete(ctx context.Context, req *wire.Request) wire.Response {
	if !req.Has("key") {
		return wire.Response{Status: wire.StatusBadRequest, Body: "Error: missing 'key' parameter."}
	}
	key := req.Get("key")

	err := d.engine.Delete(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return wire.Response{Status: wire.StatusNotFound, Body: "Error: Key : " + key + " Not Found."}
	case err != nil:
		return wire.Response{Status: wire.StatusServiceUnavailable, Body: "Error: backend unavailable."}
	default:
		return wire.Response{Status: wire.StatusOK, Body: "Key: " + key + " deleted."}
	}
}
