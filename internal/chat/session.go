package chat

import (
	"sync/atomic"
	"time"
)

// Transport is the outbound half of a session's connection, supplied by
// whatever library terminates the WebSocket handshake (internal/server in
// this repository). The registry and dispatcher never construct a
// Transport themselves; they only hold and use one.
type Transport interface {
	// Send writes a single already-encoded frame. Implementations must be
	// safe for concurrent use with Close, and should treat writes on a
	// closed connection as a no-op error rather than a panic.
	Send(frame []byte) error

	// RemoteAddr returns the peer's textual network address, used
	// verbatim as Session.RemoteAddr with no further parsing.
	RemoteAddr() string

	// Close closes the underlying connection. Idempotent.
	Close() error
}

// Session is the per-connection record described by the specification's
// data model: identity, remote address, status, last-activity timestamp,
// and a transport handle. Status and LastActivity are atomic so the
// inactivity supervisor can scan sessions without taking the registry's
// mutation lock (reads happen while only a read lock, or no lock, is
// held).
type Session struct {
	name       string
	remoteAddr string
	transport  Transport

	status       atomic.Uint32
	lastActivity atomic.Int64 // unix nanoseconds
}

// newSession constructs a Session in StatusActive with last_activity set
// to now, per the registry's try_register contract.
func newSession(name, remoteAddr string, transport Transport) *Session {
	s := &Session{
		name:       name,
		remoteAddr: remoteAddr,
		transport:  transport,
	}
	s.status.Store(uint32(StatusActive))
	s.lastActivity.Store(time.Now().UnixNano())
	return s
}

// Name returns the session's unique display name. Immutable for the
// lifetime of the session.
func (s *Session) Name() string { return s.name }

// RemoteAddr returns the peer's textual address, as reported by the
// transport at registration time.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// Transport returns the session's transport handle, used by the
// dispatcher to remove the session from the registry when an outbound
// write to it fails (the registry is keyed by this same handle).
func (s *Session) Transport() Transport { return s.transport }

// Status returns the session's current presence status.
func (s *Session) Status() Status { return Status(s.status.Load()) }

// SetStatus overwrites the session's status. Used both by change_status
// (any status) and by the inactivity supervisor (always StatusInactive).
func (s *Session) SetStatus(status Status) { s.status.Store(uint32(status)) }

// LastActivity returns the time of the most recent inbound frame or
// explicit status change.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Touch resets last_activity to now. Called before dispatch for every
// successfully decoded inbound frame, including change_status — this is
// the sole mechanism that resets the inactivity timer.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Send encodes resp and writes it to the session's transport, returning
// any write error. The dispatcher's relay paths (join announcement,
// broadcast, private, status_update) treat a failed write as
// TransportBroken: they remove the session and emit user_disconnected.
// Replies to the requesting session, user_disconnected notifications and
// the supervisor's status_update fan-out ignore a failed write; the
// session then stays registered until the transport layer reports the
// close.
func (s *Session) Send(resp Response) error {
	resp.Sender = cmpSender(resp.Sender)
	frame, err := Encode(resp)
	if err != nil {
		return err
	}
	return s.transport.Send(frame)
}

// cmpSender defaults an empty Sender to the literal "server", so call
// sites that build server-originated responses do not need to repeat it.
func cmpSender(sender string) string {
	if sender == "" {
		return serverSender
	}
	return sender
}
