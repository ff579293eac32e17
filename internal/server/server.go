// Package server implements the connection-handling pipeline shared by
// the frontend and the backend: listener, bounded work queue, fixed
// worker pool, per-connection keep-alive loop, live-socket registry,
// and graceful shutdown. The two binaries differ only in the Dispatcher
// they plug in.
package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dev69/decs/internal/logging"
	"github.com/dev69/decs/internal/queue"
	"github.com/dev69/decs/internal/ratelimit"
	"github.com/dev69/decs/internal/wire"
)

// Dispatcher turns a parsed wire request into a response. The frontend
// and backend each provide their own (internal/frontend, internal/backendstore).
type Dispatcher interface {
	Dispatch(ctx context.Context, req *wire.Request) wire.Response
}

// Config bundles the knobs a Server needs that are common to both binaries.
type Config struct {
	ListenAddr      string
	WorkerCount     int
	ReadBufferBytes int
	QueueCapacity   int           // defaults to WorkerCount*2 if zero
	AcceptRate      float64       // accepts/second, <=0 disables limiting
	AcceptBurst     int           // defaults to WorkerCount if zero
	ShutdownGrace   time.Duration // how long Shutdown waits for workers to join
}

// Server owns the listening endpoint, the bounded queue, and the fixed
// worker pool. OnShutdown, if set, runs after
// every worker has joined (or ShutdownGrace has elapsed, whichever comes
// first) and before Shutdown returns — the hook point
// for the caller's own teardown (cache flush-all, backend pool close).
type Server struct {
	cfg        Config
	dispatcher Dispatcher
	logger     *logging.Logger
	limiter    *ratelimit.Limiter
	queue      *queue.Queue
	sockets    *liveSockets

	OnShutdown func(ctx context.Context) error

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New constructs a Server around dispatcher, ready to Run.
func New(cfg Config, dispatcher Dispatcher, logger *logging.Logger) *Server {
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = cfg.WorkerCount * 2
	}
	if cfg.AcceptBurst == 0 {
		cfg.AcceptBurst = cfg.WorkerCount
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		limiter:    ratelimit.New(cfg.AcceptRate, cfg.AcceptBurst),
		queue:      queue.New(cfg.QueueCapacity),
		sockets:    newLiveSockets(),
		shutdownCh: make(chan struct{}),
	}
}

// Listen binds the listening endpoint.
// Separated from Run/Serve so callers that need to know the bound
// address (tests using ":0") can do so before the accept loop starts.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listener's address, or nil if Listen hasn't
// run yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve spawns the fixed worker pool and runs the accept loop until
// Shutdown is called or Accept fails, then tears down. Listen must have
// already succeeded.
func (s *Server) Serve(ctx context.Context) {
	s.logger.Event("INFO", "listening", map[string]any{"addr": s.cfg.ListenAddr})

	for i := 0; i < s.cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.runWorker(ctx, i)
	}

	s.acceptLoop(ctx)
	s.Shutdown(context.Background())
}

// Run executes the full lifecycle: bind & listen, install the interrupt
// handler, spawn workers, accept until shutdown, then tear down. It
// returns the process exit code: 0 on clean shutdown, 1 if bind/listen
// fails.
func (s *Server) Run(ctx context.Context) int {
	if err := s.Listen(); err != nil {
		s.logger.Event("ERROR", "listen failed", map[string]any{"addr": s.cfg.ListenAddr, "error": err.Error()})
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			s.logger.Event("INFO", "interrupt received", nil)
			s.Shutdown(context.Background())
		case <-s.shutdownCh:
		}
	}()

	s.Serve(ctx)
	return 0
}

// acceptLoop loops on Accept, gating each admission through the
// accept-rate limiter before handing the raw socket to the work queue.
// It exits once the listener is closed by Shutdown.
func (s *Server) acceptLoop(ctx context.Context) {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				return
			default:
				s.logger.Event("ERROR", "accept failed", map[string]any{"error": err.Error()})
				return
			}
		}

		s.queue.Push(conn)
	}
}

// Shutdown runs the teardown sequence exactly once, regardless of
// whether it was triggered by an interrupt or by the accept loop
// returning on its own (e.g. listener failure): close the listener,
// notify and close live client sockets, stop the queue, join workers,
// then run the caller's OnShutdown hook.
func (s *Server) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)

		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()

		s.sockets.notifyAndCloseAll(wire.Response{
			Status: wire.StatusServiceUnavailable,
			Body:   "Server is shutting down.",
			Close:  true,
		}.Bytes())

		s.queue.Stop()

		joined := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(joined)
		}()
		select {
		case <-joined:
		case <-time.After(s.cfg.ShutdownGrace):
			s.logger.Event("WARN", "shutdown grace period elapsed before all workers joined", nil)
		}

		s.queue.Drain()

		if s.OnShutdown != nil {
			if err := s.OnShutdown(ctx); err != nil {
				s.logger.Event("ERROR", "shutdown hook failed", map[string]any{"error": err.Error()})
			}
		}

		s.logger.Event("INFO", "shutdown complete", nil)
	})
}
