// Package store implements the persistent-store client: the frontend's
// single, shared, mutex-guarded connection to the backend.
//
//   - One physical net.Conn, held for the process lifetime, guarded by
//     a single mutex. Concurrent callers serialize on it.
//   - No automatic reconnection: a failed write/read is a transport
//     error surfaced to the caller.
//   - Concurrent Fetch calls for the same key are coalesced with
//     singleflight into one backend round trip.
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dev69/decs/internal/wire"
)

// Sentinel errors the cache engine and connection handler branch on.
var (
	// ErrNotFound is returned by Fetch/Remove when the backend reports 404.
	ErrNotFound = errors.New("store: key not found")
	// ErrTransport is returned for any non-200/404 backend status, a
	// failed write, a failed read, or a closed connection.
	ErrTransport = errors.New("store: transport error")
)

// Client is the interface the cache engine depends on, so tests can
// substitute an in-memory fake backend.
type Client interface {
	Put(ctx context.Context, key, value string) error
	Fetch(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
	Close() error
}

// TCPClient is the production Client: a single persistent keep-alive
// connection to the backend's db_set/db_get/db_delete surface.
type TCPClient struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	group  singleflight.Group
}

// Dial opens the persistent connection to the backend. A failure here
// is fatal to frontend startup.
func Dial(addr string, timeout time.Duration) (*TCPClient, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("store: connect to backend %s: %w", addr, err)
	}
	return &TCPClient{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Close releases the outbound connection.
func (c *TCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Put persists key=value. Used for eviction write-back, DELETE's
// preceding state is irrelevant here, and shutdown flush.
func (c *TCPClient) Put(_ context.Context, key, value string) error {
	params := url.Values{"key": {key}, "value": {value}}
	status, _, err := c.roundTrip("db_set", params)
	if err != nil {
		return err
	}
	return statusToError(status)
}

// Fetch looks up key, coalescing concurrent callers for the same key
// into a single backend round trip.
func (c *TCPClient) Fetch(_ context.Context, key string) (string, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		params := url.Values{"key": {key}}
		status, body, err := c.roundTrip("db_get", params)
		if err != nil {
			return "", err
		}
		if serr := statusToError(status); serr != nil {
			return "", serr
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Remove deletes key from the backend. Called unconditionally by
// DELETE, even on a local cache miss.
func (c *TCPClient) Remove(_ context.Context, key string) error {
	params := url.Values{"key": {key}}
	status, _, err := c.roundTrip("db_delete", params)
	if err != nil {
		return err
	}
	return statusToError(status)
}

// roundTrip writes a single request and reads a single response under
// the client's mutex.
func (c *TCPClient) roundTrip(op string, params url.Values) (status, body string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return "", "", fmt.Errorf("%w: connection is closed", ErrTransport)
	}

	req := wire.BuildRequestLine(op, params)
	if _, err := c.conn.Write(req); err != nil {
		return "", "", fmt.Errorf("%w: write failed: %v", ErrTransport, err)
	}

	statusLine, err := c.reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("%w: read status line failed: %v", ErrTransport, err)
	}
	status, ok := parseStatusLine(statusLine)
	if !ok {
		return "", "", fmt.Errorf("%w: malformed status line %q", ErrTransport, statusLine)
	}

	contentLength := 0
	for {
		h, err := c.reader.ReadString('\n')
		if err != nil {
			return "", "", fmt.Errorf("%w: read headers failed: %v", ErrTransport, err)
		}
		if h == "\r\n" || h == "\n" {
			break
		}
		if n, ok := parseContentLength(h); ok {
			contentLength = n
		}
	}

	bodyBuf := make([]byte, contentLength)
	if contentLength > 0 {
		if _, err := io.ReadFull(c.reader, bodyBuf); err != nil {
			return "", "", fmt.Errorf("%w: read body failed: %v", ErrTransport, err)
		}
	}

	return status, string(bodyBuf), nil
}

func statusToError(status string) error {
	switch wire.StatusCode(status) {
	case 200:
		return nil
	case 404:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: backend status %s", ErrTransport, status)
	}
}
