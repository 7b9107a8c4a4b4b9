// Package server wires the chat dispatcher to a WebSocket transport.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chatcore/chatd/internal/chat"
)

// subprotocol is the WebSocket subprotocol negotiated with clients, matching
// the reference chat server's libwebsockets protocol name.
const subprotocol = "chat-protocol"

// ErrUpgradeFailed indicates the HTTP connection could not be upgraded to a
// WebSocket connection.
var ErrUpgradeFailed = errors.New("websocket upgrade failed")

// ChatServer is a thin adapter between an HTTP listener and the chat
// dispatcher. Each RPC-equivalent is a single WebSocket text frame; the
// server is a mechanical forwarder of bytes between the wire and the
// dispatcher, holding no chat-domain logic of its own.
type ChatServer struct {
	dispatcher *chat.Dispatcher
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// New creates a ChatServer and returns the mount path and HTTP handler for
// the chat endpoint.
func New(path string, d *chat.Dispatcher, logger *slog.Logger) (string, http.Handler) {
	srv := &ChatServer{
		dispatcher: d,
		logger:     logger.With(slog.String("component", "server")),
		upgrader: websocket.Upgrader{
			Subprotocols:    []string{subprotocol},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The reference server accepts connections from any origin; it
			// predates the browser same-origin WebSocket handshake concerns
			// this check exists for.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
	return path, srv
}

// ServeHTTP upgrades the request to a WebSocket connection and runs the
// connection's read loop until the client disconnects or the connection
// breaks.
func (s *ChatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	tr := newWSTransport(conn)
	s.logger.InfoContext(r.Context(), "client connected", slog.String("remote_addr", tr.RemoteAddr()))

	defer func() {
		s.dispatcher.HandleClose(tr)
		_ = tr.Close()
	}()

	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			s.rejectBinaryFrame(tr)
			continue
		}
		s.dispatcher.Handle(tr, raw)
	}
}

// wsTransport adapts a *websocket.Conn to chat.Transport. Gorilla's
// websocket.Conn permits at most one concurrent writer; writes are
// serialized with a mutex since broadcast fan-out calls Send from whichever
// goroutine currently holds the registry snapshot.
type wsTransport struct {
	conn       *websocket.Conn
	remoteAddr string

	mu     sync.Mutex
	closed bool
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn, remoteAddr: conn.RemoteAddr().String()}
}

func (t *wsTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("server: send on closed connection")
	}
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *wsTransport) RemoteAddr() string {
	return t.remoteAddr
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

var _ chat.Transport = (*wsTransport)(nil)

// rejectBinaryFrame replies with an error frame for a binary WebSocket
// frame. Per the transport contract this server accepts text frames only;
// binary frames are rejected but do not close the connection.
func (s *ChatServer) rejectBinaryFrame(tr *wsTransport) {
	frame, err := chat.Encode(chat.Response{
		Kind:    chat.KindError,
		Content: "binary frames not supported",
	})
	if err != nil {
		return
	}
	if sendErr := tr.Send(frame); sendErr != nil {
		s.logger.Warn("failed to send binary-frame rejection", slog.String("error", sendErr.Error()))
	}
}
