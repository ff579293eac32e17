package server

import (
	"context"
	"net"
	"time"

	"github.com/dev69/decs/internal/logging"
	"github.com/dev69/decs/internal/wire"
)

// runWorker pops a socket, runs the per-connection loop to completion,
// then loops for the next task. It exits when the queue reports it has
// been stopped and drained.
func (s *Server) runWorker(ctx context.Context, id int) {
	defer s.wg.Done()

	for {
		conn, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.serveConn(ctx, conn)
	}
}

// serveConn services one client connection request-by-request until the
// client closes, asks to disconnect, or a transport error occurs.
// Pipelining is not supported: one request per read cycle.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	s.sockets.add(conn)
	defer func() {
		s.sockets.remove(conn)
		conn.Close()
	}()

	buf := make([]byte, s.cfg.ReadBufferBytes)

	for {
		n, err := conn.Read(buf)
		if err != nil || n <= 0 {
			return
		}

		start := time.Now()
		requestID := logging.NewCorrelationID()

		req, perr := wire.ParseRequest(buf[:n])
		var resp wire.Response
		if perr != nil {
			resp = wire.Response{Status: wire.StatusBadRequest, Body: "Error: malformed request."}
		} else {
			resp = s.dispatcher.Dispatch(ctx, req)
		}

		op, key := "", ""
		if req != nil {
			op, key = req.Op, req.Get("key")
		}
		s.logger.ConnRequest(requestID, conn.RemoteAddr().String(), op, key, resp.Status, time.Since(start))

		if _, werr := conn.Write(resp.Bytes()); werr != nil {
			return
		}
		if resp.Close {
			return
		}
	}
}
