package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dev69/decs/internal/cache"
	"github.com/dev69/decs/internal/frontend"
	"github.com/dev69/decs/internal/logging"
	"github.com/dev69/decs/internal/metrics"
	"github.com/dev69/decs/internal/store"
)

// fakeStoreClient is an in-memory store.Client, letting these tests
// exercise the full accept/queue/worker/dispatch pipeline without a
// live backend process.
type fakeStoreClient struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStoreClient() *fakeStoreClient {
	return &fakeStoreClient{data: make(map[string]string)}
}

func (f *fakeStoreClient) Put(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeStoreClient) Fetch(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (f *fakeStoreClient) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.data, key)
	return nil
}

func (f *fakeStoreClient) Close() error { return nil }

// startTestServer spins up a real listening Server on an ephemeral port
// around a fresh cache engine of the given capacity, and returns its
// address plus a shutdown func.
func startTestServer(t *testing.T, capacity int) (addr string, counters *metrics.Counters, shutdown func()) {
	t.Helper()

	fc := newFakeStoreClient()
	counters = &metrics.Counters{}
	engine := cache.NewEngine(capacity, fc, counters)
	dispatcher := frontend.NewDispatcher(engine)
	logger := logging.New(io.Discard)

	srv := New(Config{
		ListenAddr:      "127.0.0.1:0",
		WorkerCount:     2,
		ReadBufferBytes: 4096,
	}, dispatcher, logger)

	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(context.Background())

	return srv.Addr().String(), counters, func() { srv.Shutdown(context.Background()) }
}

func sendRequest(t *testing.T, conn net.Conn, line string) (status, body string) {
	t.Helper()
	if _, err := conn.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}
	return readResponse(t, conn)
}

func readResponse(t *testing.T, conn net.Conn) (status, body string) {
	t.Helper()
	r := bufio.NewReader(conn)
	statusLine, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	status = strings.TrimPrefix(strings.TrimSpace(statusLine), "HTTP/1.1 ")

	contentLength := 0
	for {
		h, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read headers: %v", err)
		}
		if strings.TrimSpace(h) == "" {
			break
		}
		if strings.HasPrefix(h, "Content-Length:") {
			parts := strings.Fields(h)
			for _, p := range parts {
				if n, err := parseInt(p); err == nil {
					contentLength = n
				}
			}
		}
	}
	buf := make([]byte, contentLength)
	if contentLength > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			t.Fatalf("read body: %v", err)
		}
	}
	return status, string(buf)
}

func parseInt(s string) (int, error) {
	n := 0
	found := false
	for _, c := range s {
		if c < '0' || c > '9' {
			continue
		}
		found = true
		n = n*10 + int(c-'0')
	}
	if !found {
		return 0, io.ErrUnexpectedEOF
	}
	return n, nil
}

// Three SETs followed by three GETs are all hits.
func TestServerSetGetHitRatio(t *testing.T) {
	addr, counters, shutdown := startTestServer(t, 3)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		status, _ := sendRequest(t, conn, "GET /set?key="+kv[0]+"&value="+kv[1]+" HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")
		if status != "200 OK" {
			t.Fatalf("set %s: status = %q", kv[0], status)
		}
	}

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		status, body := sendRequest(t, conn, "GET /get?key="+kv[0]+" HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")
		if status != "200 OK" || body != kv[1] {
			t.Fatalf("get %s: got (%q,%q), want (200 OK,%q)", kv[0], status, body, kv[1])
		}
	}

	time.Sleep(20 * time.Millisecond) // allow counters to settle
	snap := counters.Snapshot()
	if snap.TotalAccess != 6 || snap.CacheHits != 6 {
		t.Fatalf("counters = %+v, want total=6 hits=6", snap)
	}
}

// SET, DELETE, GET must 404.
func TestServerDeletePropagation(t *testing.T) {
	addr, _, shutdown := startTestServer(t, 10)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sendRequest(t, conn, "GET /set?key=k&value=v HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")
	// The SET is write-back, so the store never saw "k": DELETE evicts
	// the cached copy but surfaces the store's not-found.
	status, _ := sendRequest(t, conn, "GET /delete?key=k HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")
	if status != "404 Not Found" {
		t.Fatalf("delete: status = %q, want 404", status)
	}
	status, _ = sendRequest(t, conn, "GET /get?key=k HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")
	if status != "404 Not Found" {
		t.Fatalf("get after delete: status = %q, want 404", status)
	}
}

// Two back-to-back requests in a single write: pipelining is not
// supported, so only the first is honored in that read cycle; the test
// asserts the first response only.
func TestServerPipelinedRequestsFirstOnly(t *testing.T) {
	addr, _, shutdown := startTestServer(t, 10)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	both := "GET /set?key=a&value=1 HTTP/1.1\r\nConnection: keep-alive\r\n\r\n" +
		"GET /set?key=b&value=2 HTTP/1.1\r\nConnection: keep-alive\r\n\r\n"
	if _, err := conn.Write([]byte(both)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Only the first request of the pair is guaranteed a response in
	// this read cycle; the second is dropped unless the kernel split
	// the write across reads.
	status, _ := readResponse(t, conn)
	if status != "200 OK" {
		t.Fatalf("first pipelined request: status = %q, want 200", status)
	}
}

func TestServerDisconnectClosesConnection(t *testing.T) {
	addr, _, shutdown := startTestServer(t, 10)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	status, _ := sendRequest(t, conn, "GET /disconnect HTTP/1.1\r\nConnection: close\r\n\r\n")
	if status != "200 OK" {
		t.Fatalf("disconnect: status = %q", status)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if n, err := conn.Read(buf); err != io.EOF && n != 0 {
		t.Fatalf("expected connection closed after disconnect, got n=%d err=%v", n, err)
	}
}

// Shutdown must deliver a 503 to an in-flight client socket.
func TestServerShutdownNotifiesLiveSockets(t *testing.T) {
	addr, _, shutdown := startTestServer(t, 10)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Register the connection as live by sending one request first.
	sendRequest(t, conn, "GET /set?key=a&value=1 HTTP/1.1\r\nConnection: keep-alive\r\n\r\n")

	shutdown()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read after shutdown: %v", err)
	}
	if !strings.Contains(line, "503") {
		t.Fatalf("expected 503 notice after shutdown, got %q", line)
	}
}
