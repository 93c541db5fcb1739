package transport

import (
	"fmt"
	"net"

	"github.com/mshaverdo/pouch/log"
)

// tcpReadBufferSize is the per-read frame size, matching
// original_source/server/src/handlers/tcp.rs's fixed 1024-byte buffer: one
// read is treated as one complete command.
const tcpReadBufferSize = 1024

// TCPServer accepts plain TCP connections, one command per read, newline-
// terminated response per write (spec.md §4.F, §6).
type TCPServer struct {
	addr     string
	handler  *Handler
	listener net.Listener
}

// NewTCPServer returns a TCPServer listening on addr ("host:port") once
// ListenAndServe is called.
func NewTCPServer(addr string, handler *Handler) *TCPServer {
	return &TCPServer{addr: addr, handler: handler}
}

// ListenAndServe binds addr and serves connections until Close is called.
func (s *TCPServer) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("transport: tcp listen %s: %w", s.addr, err)
	}
	s.listener = ln

	log.Infof("Started TCP listener on %s", s.addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Accept fails this way once Close has torn the listener down.
			return nil
		}
		go s.serve(conn)
	}
}

// Close stops accepting new connections.
func (s *TCPServer) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *TCPServer) serve(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, tcpReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			return
		}

		response, fatal := s.handler.Handle(buf[:n])
		response = append(response, '\n')
		if _, err := conn.Write(response); err != nil {
			log.Warningf("tcp: write to %s failed: %s", conn.RemoteAddr(), err)
			return
		}
		if fatal {
			return
		}
	}
}
