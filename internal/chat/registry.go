package chat

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry is the concurrent session table described by the
// specification's §4.2: a set of sessions indexed by name and by
// transport handle, with both indices kept consistent under a single
// mutex.
//
// Invariant I1: at most one live session per name.
// Invariant I2: at most one live session per transport handle.
// Invariant I3: iteration is safe under concurrent insert/remove.
//
// The registry never holds its mutation lock while a caller sends frames:
// SnapshotNames and ForEach copy what they need under lock and then
// release it before the caller touches any transport.
type Registry struct {
	mu sync.RWMutex

	byName      map[string]*Session
	byTransport map[Transport]*Session

	metrics MetricsReporter
	logger  *slog.Logger
}

// RegistryOption configures optional Registry parameters.
type RegistryOption func(*Registry)

// WithRegistryMetrics sets the MetricsReporter used for session and error
// counters. If mr is nil, a no-op reporter is used.
func WithRegistryMetrics(mr MetricsReporter) RegistryOption {
	return func(r *Registry) {
		if mr != nil {
			r.metrics = mr
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		byName:      make(map[string]*Session),
		byTransport: make(map[Transport]*Session),
		metrics:     noopMetrics{},
		logger:      logger.With(slog.String("component", "chat.registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryRegister atomically checks name uniqueness and, on success, indexes a
// new session under both name and transport. The new session starts in
// StatusActive with last_activity set to now.
//
// Returns ErrNameTaken if name is already held by a live session, or
// ErrAlreadyRegistered if transport already has a session (duplicate
// register on the same connection).
func (r *Registry) TryRegister(name string, transport Transport, remoteAddr string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byTransport[transport]; dup {
		return nil, fmt.Errorf("register %q: %w", name, ErrAlreadyRegistered)
	}
	if _, taken := r.byName[name]; taken {
		return nil, fmt.Errorf("register %q: %w", name, ErrNameTaken)
	}

	sess := newSession(name, remoteAddr, transport)
	r.byName[name] = sess
	r.byTransport[transport] = sess

	r.metrics.SessionRegistered()
	r.logger.Info("session registered",
		slog.String("name", name),
		slog.String("remote_addr", remoteAddr),
	)

	return sess, nil
}

// LookupByName returns the live session registered under name, if any.
func (r *Registry) LookupByName(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byName[name]
	return sess, ok
}

// LookupByTransport returns the live session owning transport, if any.
func (r *Registry) LookupByTransport(transport Transport) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byTransport[transport]
	return sess, ok
}

// Remove removes the session owned by transport from both indices.
// Idempotent: removing an already-removed (or never-registered) transport
// is a no-op and returns (nil, false).
func (r *Registry) Remove(transport Transport) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byTransport[transport]
	if !ok {
		return nil, false
	}

	delete(r.byTransport, transport)
	delete(r.byName, sess.Name())

	r.metrics.SessionRemoved()
	r.logger.Info("session removed", slog.String("name", sess.Name()))

	return sess, true
}

// SnapshotNames returns a point-in-time copy of every live session's name.
// The mutation lock is released before this function returns; the caller
// must not assume the names are still all live by the time it acts on
// them.
func (r *Registry) SnapshotNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// ForEach invokes fn once for every live session, on a snapshot taken
// under the registry's read lock. fn runs after the lock is released, so
// it is safe for fn to block on a transport write without risking
// head-of-line blocking of registrations.
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.byName))
	for _, sess := range r.byName {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	for _, sess := range sessions {
		fn(sess)
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
