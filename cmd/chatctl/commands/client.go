// Package commands implements the chatctl CLI commands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// subprotocol must match the daemon's negotiated WebSocket subprotocol.
const subprotocol = "chat-protocol"

// timestampLayout mirrors internal/chat's wire timestamp format.
const timestampLayout = "2006-01-02T15:04:05"

// errNotConnected is returned by client methods called after close.
var errNotConnected = errors.New("chatctl: not connected")

// frame is the wire envelope chatctl speaks: the same shape as
// internal/chat's codec, duplicated here so the CLI has no dependency on
// the daemon's internal package.
type frame struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Target    string `json:"target,omitempty"`
	Content   any    `json:"content,omitempty"`
	Timestamp string `json:"timestamp"`
}

// client is a thin WebSocket admin client for chatd: it registers under a
// display name and exchanges JSON frames over the /chat endpoint, the same
// protocol any chat client speaks.
type client struct {
	name string

	mu   sync.Mutex
	conn *websocket.Conn
}

// dial connects to addr+path, registers as name, and waits for either
// register_success or an error frame in reply.
func dial(addr, path, name string) (*client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: path}

	dialer := websocket.Dialer{
		Subprotocols:     []string{subprotocol},
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	c := &client{name: name, conn: conn}

	if err := c.send(frame{Type: "register", Sender: name, Timestamp: now()}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send register: %w", err)
	}

	reply, err := c.recv()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read register reply: %w", err)
	}
	if reply.Type == "error" {
		_ = conn.Close()
		return nil, fmt.Errorf("register %q: %v", name, reply.Content)
	}

	return c, nil
}

func (c *client) send(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errNotConnected
	}
	return c.conn.WriteJSON(f)
}

func (c *client) recv() (frame, error) {
	if c.conn == nil {
		return frame{}, errNotConnected
	}

	var f frame
	if err := c.conn.ReadJSON(&f); err != nil {
		return frame{}, err
	}
	return f, nil
}

// recvUntil reads frames until one matching want returns true, or
// maxFrames have been read without a match.
func (c *client) recvUntil(maxFrames int, want func(frame) bool) (frame, error) {
	for i := 0; i < maxFrames; i++ {
		f, err := c.recv()
		if err != nil {
			return frame{}, err
		}
		if want(f) {
			return f, nil
		}
	}
	return frame{}, fmt.Errorf("no matching frame after %d reads", maxFrames)
}

func (c *client) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteJSON(frame{Type: "disconnect", Sender: c.name, Timestamp: now()})
	err := c.conn.Close()
	c.conn = nil
	return err
}

func now() string {
	return time.Now().Format(timestampLayout)
}

// toPrettyJSON marshals v with indentation for table/json dual-mode output.
func toPrettyJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(data), nil
}
