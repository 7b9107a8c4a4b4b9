package chat

import (
	"encoding/json"
	"errors"
	"sync"
)

// fakeTransport is an in-memory Transport used across this package's
// tests: Send appends to a slice instead of touching a socket, so
// dispatcher tests can assert on exactly what was sent without a real
// network round-trip.
type fakeTransport struct {
	mu     sync.Mutex
	addr   string
	sent   [][]byte
	closed bool
	failAt int // fail the failAt-th Send call (0 = never)
	calls  int
}

func newFakeTransport(addr string) *fakeTransport {
	return &fakeTransport{addr: addr}
}

func (f *fakeTransport) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.closed {
		return errors.New("fakeTransport: send on closed transport")
	}
	if f.failAt != 0 && f.calls == f.failAt {
		return errors.New("fakeTransport: injected send failure")
	}

	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return f.addr }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) frames() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.sent))
	for _, raw := range f.sent {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
