//go:build integration

// Package integration_test exercises chatd end-to-end over real WebSocket
// connections against an in-process HTTP server, one real *websocket.Conn
// per simulated client.
package integration_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatcore/chatd/internal/chat"
	"github.com/chatcore/chatd/internal/server"
)

// chatTestEnv bundles an in-process chat server and its ws:// base URL.
type chatTestEnv struct {
	registry   *chat.Registry
	dispatcher *chat.Dispatcher
	url        string
}

func newChatTestEnv(t *testing.T) *chatTestEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	registry := chat.NewRegistry(logger)
	dispatcher := chat.NewDispatcher(registry, logger)
	supervisor := chat.NewSupervisor(registry, logger,
		chat.WithInactivityTimeout(80*time.Millisecond),
		chat.WithScanInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go supervisor.Run(ctx)
	t.Cleanup(cancel)

	path, handler := server.New("/chat", dispatcher, logger)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &chatTestEnv{
		registry:   registry,
		dispatcher: dispatcher,
		url:        "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat",
	}
}

func (env *chatTestEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(env.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return m
}

// readFrameMatching reads frames from conn, skipping those that do not
// satisfy match, and returns the first one that does. The supervisor in
// this environment demotes every session idle for 80ms and sends each
// demotion's status_update to every peer, so such frames can arrive
// between the ones a scenario waits for.
func readFrameMatching(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()

	for {
		if f := readFrame(t, conn); match(f) {
			return f
		}
	}
}

func ofType(kind string) func(map[string]any) bool {
	return func(f map[string]any) bool { return f["type"] == kind }
}

func register(t *testing.T, conn *websocket.Conn, name string) map[string]any {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"register","sender":"`+name+`"}`)); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return readFrame(t, conn)
}

// Scenario 1: single user lifecycle (spec.md §8, scenario 1).
func TestChatd_SingleUserLifecycle(t *testing.T) {
	env := newChatTestEnv(t)
	conn := env.dial(t)

	frame := register(t, conn, "alice")
	if frame["type"] != "register_success" {
		t.Fatalf("register reply = %v, want register_success", frame)
	}
	names, _ := frame["content"].([]any)
	if len(names) != 1 || names[0] != "alice" {
		t.Fatalf("register_success content = %v, want [alice]", frame["content"])
	}

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"disconnect","sender":"alice"}`)); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	// Self user_disconnected notification, then the connection closes.
	closeFrame := readFrame(t, conn)
	if closeFrame["type"] != "user_disconnected" {
		t.Fatalf("close notification = %v, want user_disconnected", closeFrame)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection close after disconnect")
	}
}

// Scenario 2: name collision (spec.md §8, scenario 2).
func TestChatd_NameCollisionClosesLoser(t *testing.T) {
	env := newChatTestEnv(t)
	alice := env.dial(t)
	mallory := env.dial(t)

	register(t, alice, "alice")

	frame := register(t, mallory, "alice")
	if frame["type"] != "error" {
		t.Fatalf("mallory's reply = %v, want error", frame)
	}
	content, _ := frame["content"].(string)
	if !strings.Contains(content, "en uso") && !strings.Contains(content, "in use") {
		t.Fatalf("error content = %q, want mention of name in use", content)
	}

	_ = mallory.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := mallory.ReadMessage(); err == nil {
		t.Fatal("expected mallory's connection to be closed")
	}
}

// Scenario 3: broadcast reaches every peer, including the sender.
func TestChatd_BroadcastReachesEveryoneIncludingSender(t *testing.T) {
	env := newChatTestEnv(t)
	alice := env.dial(t)
	bob := env.dial(t)

	register(t, alice, "alice")
	register(t, bob, "bob")
	readFrame(t, alice) // bob's join announcement

	if err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"broadcast","sender":"alice","content":"hi everyone"}`)); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	aliceEcho := readFrame(t, alice)
	if aliceEcho["content"] != "hi everyone" || aliceEcho["sender"] != "alice" {
		t.Fatalf("alice echo = %v, want her own broadcast back", aliceEcho)
	}

	bobRecv := readFrame(t, bob)
	if bobRecv["content"] != "hi everyone" || bobRecv["sender"] != "alice" {
		t.Fatalf("bob received = %v, want alice's broadcast", bobRecv)
	}
}

// Scenario 4 & 5: private delivery and private-to-unknown-user.
func TestChatd_PrivateDeliveryAndUnknownTarget(t *testing.T) {
	env := newChatTestEnv(t)
	alice := env.dial(t)
	bob := env.dial(t)
	carol := env.dial(t)

	register(t, alice, "alice")
	register(t, bob, "bob")
	readFrame(t, alice) // bob join
	register(t, carol, "carol")
	readFrame(t, alice) // carol join
	readFrame(t, bob)   // carol join

	if err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"private","sender":"alice","target":"carol","content":"hey"}`)); err != nil {
		t.Fatalf("private: %v", err)
	}

	carolFrame := readFrame(t, carol)
	if carolFrame["type"] != "private" || carolFrame["sender"] != "alice" || carolFrame["content"] != "hey" {
		t.Fatalf("carol received = %v, want private from alice", carolFrame)
	}

	if err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"private","sender":"alice","target":"zoe","content":"hey"}`)); err != nil {
		t.Fatalf("private to unknown: %v", err)
	}
	errFrame := readFrame(t, alice)
	if errFrame["type"] != "error" {
		t.Fatalf("alice received = %v, want error for unknown target", errFrame)
	}

	// bob stays idle, so the supervisor's status_update frames still reach
	// him within the window; no frame of the private exchange may.
	_ = bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		_, raw, err := bob.ReadMessage()
		if err != nil {
			break
		}
		var m map[string]any
		if jsonErr := json.Unmarshal(raw, &m); jsonErr != nil || m["type"] != "status_update" {
			t.Fatalf("bob should not have received any frame from the private exchange, got %s", raw)
		}
	}
}

// Scenario 6: inactivity demotion broadcasts status_update to every peer.
func TestChatd_InactivityDemotionBroadcasts(t *testing.T) {
	env := newChatTestEnv(t)
	alice := env.dial(t)
	bob := env.dial(t)

	register(t, alice, "alice")
	register(t, bob, "bob")
	readFrame(t, alice) // bob join

	// alice sends nothing; the supervisor demotes her after the configured
	// timeout (80ms in this test environment, scanned every 10ms). bob is
	// idle too and is demoted in the same or the next scan, so his own
	// status_update may reach him first.
	update := readFrameMatching(t, bob, func(f map[string]any) bool {
		c, _ := f["content"].(map[string]any)
		return f["type"] == "status_update" && c["user"] == "alice"
	})
	if update["type"] != "status_update" {
		t.Fatalf("bob received = %v, want status_update", update)
	}
	content, _ := update["content"].(map[string]any)
	if content["user"] != "alice" || content["status"] != "INACTIVO" {
		t.Fatalf("status_update content = %v, want alice -> INACTIVO", content)
	}

	// A subsequent broadcast from alice must not re-promote her status.
	if err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"broadcast","sender":"alice","content":"back"}`)); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	readFrameMatching(t, alice, ofType("broadcast")) // her own echo, after the status_update frames
	readFrameMatching(t, bob, ofType("broadcast"))   // the broadcast relay

	if err := bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"user_info","sender":"bob","target":"alice"}`)); err != nil {
		t.Fatalf("user_info: %v", err)
	}
	info := readFrameMatching(t, bob, ofType("user_info_response"))
	infoContent, _ := info["content"].(map[string]any)
	if infoContent["status"] != "INACTIVO" {
		t.Fatalf("alice's status after broadcast = %v, want still INACTIVO", infoContent["status"])
	}
}
