package server

import (
	"net"
	"sync"
)

// liveSockets is the registry every in-flight per-connection handler
// registers itself in on entry and removes itself from on exit, so
// shutdown can deliver a notice to every socket currently being served.
// Its lock is a leaf: never held while taking any other lock.
type liveSockets struct {
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newLiveSockets() *liveSockets {
	return &liveSockets{conns: make(map[net.Conn]struct{})}
}

func (s *liveSockets) add(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *liveSockets) remove(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// notifyAndCloseAll sends payload to every currently-registered socket,
// best effort, then half-closes and closes it. The handler goroutines
// owning these sockets will observe their next read fail and exit on
// their own.
func (s *liveSockets) notifyAndCloseAll(payload []byte) {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_, _ = c.Write(payload)
		if tcp, ok := c.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
		_ = c.Close()
	}
}
