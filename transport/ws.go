package transport

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mshaverdo/pouch/log"
)

var upgrader = websocket.Upgrader{
	// Accepting any origin mirrors the original's accept_async, which
	// performs no origin checking of its own.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSServer accepts WebSocket connections, one command per text message,
// one response per text message (spec.md §4.F, §6). Grounded on
// original_source/server/src/handlers/ws.rs's accept_async + message loop,
// using github.com/gorilla/websocket in place of tokio-tungstenite.
type WSServer struct {
	addr    string
	handler *Handler
	srv     *http.Server
}

// NewWSServer returns a WSServer listening on addr ("host:port") once
// ListenAndServe is called.
func NewWSServer(addr string, handler *Handler) *WSServer {
	return &WSServer{addr: addr, handler: handler}
}

// ListenAndServe binds addr and serves WebSocket connections until Close
// is called.
func (s *WSServer) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHTTP)
	s.srv = &http.Server{Addr: s.addr, Handler: mux}

	log.Infof("Started WS listener on %s", s.addr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops accepting new connections.
func (s *WSServer) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *WSServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("ws: upgrade failed: %s", err)
		return
	}
	defer conn.Close()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		response, fatal := s.handler.Handle(data)
		if err := conn.WriteMessage(websocket.TextMessage, response); err != nil {
			log.Warningf("ws: write failed: %s", err)
			return
		}
		if fatal {
			return
		}
	}
}
