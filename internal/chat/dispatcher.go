package chat

import (
	"fmt"
	"log/slog"
)

// Dispatcher implements the protocol state machine and message routing
// described by the specification's §4.3/§4.4: it classifies each decoded
// Request by the originating transport's registration state and the
// request's Kind, mutates the registry/session accordingly, and sends the
// resulting outbound frames.
//
// Routing here is not a pure (state, event) -> transition table: most
// kinds are valid in exactly one registration state and have effects
// that reach outside the session itself (broadcast, registry lookups).
// The dispatch table below still uses a kind -> handler map rather than
// a long if/else chain.
type Dispatcher struct {
	registry *Registry
	metrics  MetricsReporter
	logger   *slog.Logger
}

// DispatcherOption configures optional Dispatcher parameters.
type DispatcherOption func(*Dispatcher)

// WithDispatcherMetrics sets the MetricsReporter used for message and
// error counters.
func WithDispatcherMetrics(mr MetricsReporter) DispatcherOption {
	return func(d *Dispatcher) {
		if mr != nil {
			d.metrics = mr
		}
	}
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		metrics:  noopMetrics{},
		logger:   logger.With(slog.String("component", "chat.dispatcher")),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type requestHandler func(d *Dispatcher, sess *Session, req Request)

// registeredHandlers maps each inbound Kind valid from a registered
// session to its handler. register is handled separately (it is the only
// kind valid from an unregistered transport); any Kind absent here is
// routed to handleUnknown.
var registeredHandlers = map[Kind]requestHandler{
	KindBroadcast:    (*Dispatcher).handleBroadcast,
	KindPrivate:      (*Dispatcher).handlePrivate,
	KindListUsers:    (*Dispatcher).handleListUsers,
	KindUserInfo:     (*Dispatcher).handleUserInfo,
	KindChangeStatus: (*Dispatcher).handleChangeStatus,
	KindDisconnect:   (*Dispatcher).handleDisconnect,
}

// Handle decodes raw and routes it according to the transport's current
// registration state. A JSON/schema decode failure is dropped silently
// (ErrMalformed) since the sender cannot be trusted; every other error
// path replies on the transport and, for protocol violations, closes it.
func (d *Dispatcher) Handle(transport Transport, raw []byte) {
	req, err := Decode(raw)
	if err != nil {
		d.metrics.ErrorOccurred("malformed")
		d.logger.Debug("dropping malformed frame", slog.Any("error", err))
		return
	}

	sess, registered := d.registry.LookupByTransport(transport)

	if !registered {
		if req.Kind != KindRegister {
			d.replyAndClose(transport, "no registrado (not registered)", "not_registered")
			return
		}
		d.handleRegister(transport, req)
		return
	}

	if req.Kind == KindRegister {
		sess.Touch()
		d.metrics.ErrorOccurred("already_registered")
		_ = sess.Send(Response{Kind: KindError, Content: "ya registrado (already registered)"})
		return
	}

	sess.Touch()

	handler, ok := registeredHandlers[req.Kind]
	if !ok {
		d.handleUnknown(sess, req)
		return
	}
	handler(d, sess, req)
}

// HandleClose is invoked by the transport layer whenever a connection's
// read loop ends (EOF, reset, or after an explicit disconnect). It is a
// no-op if the transport has no registered session, either because it
// never completed registration or because it was already removed.
func (d *Dispatcher) HandleClose(transport Transport) {
	sess, ok := d.registry.LookupByTransport(transport)
	if !ok {
		return
	}
	d.removeAndNotify(sess, transport)
}

func (d *Dispatcher) replyAndClose(transport Transport, content, metricKind string) {
	d.metrics.ErrorOccurred(metricKind)
	resp := Response{Kind: KindError, Sender: serverSender, Content: content}
	if frame, err := Encode(resp); err == nil {
		_ = transport.Send(frame)
	}
	_ = transport.Close()
}

func (d *Dispatcher) handleRegister(transport Transport, req Request) {
	sess, err := d.registry.TryRegister(req.Sender, transport, transport.RemoteAddr())
	if err != nil {
		d.replyAndClose(transport, "nombre de usuario en uso (name already in use)", "name_taken")
		return
	}

	names := d.registry.SnapshotNames()
	_ = sess.Send(Response{Kind: KindRegisterSuccess, Content: names})

	joinMsg := fmt.Sprintf("%s se ha unido al chat.", sess.Name())
	d.registry.ForEach(func(other *Session) {
		if other == sess {
			return
		}
		if err := other.Send(Response{Kind: KindBroadcast, Sender: serverSender, Content: joinMsg}); err != nil {
			d.handleBrokenTransport(other)
		}
	})

	d.metrics.MessageRouted("register")
}

func (d *Dispatcher) handleBroadcast(sess *Session, req Request) {
	d.registry.ForEach(func(other *Session) {
		if err := other.Send(Response{Kind: KindBroadcast, Sender: sess.Name(), Content: req.Content}); err != nil {
			d.handleBrokenTransport(other)
		}
	})
	d.metrics.MessageRouted("broadcast")
}

func (d *Dispatcher) handlePrivate(sess *Session, req Request) {
	target, ok := d.registry.LookupByName(req.Target)
	if !ok {
		d.metrics.ErrorOccurred("target_missing")
		_ = sess.Send(Response{Kind: KindError, Content: "usuario no encontrado (user not found)"})
		return
	}

	if err := target.Send(Response{Kind: KindPrivate, Sender: sess.Name(), Content: req.Content}); err != nil {
		d.handleBrokenTransport(target)
	}
	d.metrics.MessageRouted("private")
}

func (d *Dispatcher) handleListUsers(sess *Session, _ Request) {
	names := d.registry.SnapshotNames()
	_ = sess.Send(Response{Kind: KindListUsersResponse, Content: names})
	d.metrics.MessageRouted("list_users")
}

func (d *Dispatcher) handleUserInfo(sess *Session, req Request) {
	target, ok := d.registry.LookupByName(req.Target)
	if !ok {
		d.metrics.ErrorOccurred("target_missing")
		_ = sess.Send(Response{
			Kind:    KindUserInfoResponse,
			Target:  req.Target,
			Content: "usuario no encontrado (user not found)",
		})
		return
	}

	_ = sess.Send(Response{
		Kind:   KindUserInfoResponse,
		Target: req.Target,
		Content: map[string]string{
			"ip":     target.RemoteAddr(),
			"status": target.Status().String(),
		},
	})
	d.metrics.MessageRouted("user_info")
}

func (d *Dispatcher) handleChangeStatus(sess *Session, req Request) {
	newStatus, ok := ParseStatus(req.Content)
	if !ok {
		d.metrics.ErrorOccurred("invalid_status")
		_ = sess.Send(Response{Kind: KindError, Content: "estado inválido (invalid status)"})
		return
	}

	old := sess.Status()
	sess.SetStatus(newStatus)
	d.metrics.StatusTransition(old.String(), newStatus.String())

	d.registry.ForEach(func(other *Session) {
		err := other.Send(Response{
			Kind: KindStatusUpdate,
			Content: map[string]string{
				"user":   sess.Name(),
				"status": newStatus.String(),
			},
		})
		if err != nil {
			d.handleBrokenTransport(other)
		}
	})
	d.metrics.MessageRouted("change_status")
}

func (d *Dispatcher) handleDisconnect(sess *Session, req Request) {
	_ = req // disconnect carries no fields the effect depends on beyond sender, already == sess
	d.removeAndNotify(sess, sess.Transport())
}

func (d *Dispatcher) handleUnknown(sess *Session, _ Request) {
	d.metrics.ErrorOccurred("unknown_type")
	_ = sess.Send(Response{Kind: KindError, Content: "comando desconocido (unknown command)"})
}

// removeAndNotify removes sess from the registry (idempotent — a second
// call for the same transport is a no-op, which is what makes repeated
// disconnect/close events satisfy P9's "at most one user_disconnected
// broadcast") and, on the first call, notifies the departing session and
// every remaining peer.
func (d *Dispatcher) removeAndNotify(sess *Session, transport Transport) {
	removed, ok := d.registry.Remove(transport)
	if !ok {
		return
	}

	content := fmt.Sprintf("%s se ha desconectado", removed.Name())
	_ = removed.Send(Response{Kind: KindUserDisconnected, Content: content})

	d.registry.ForEach(func(other *Session) {
		_ = other.Send(Response{Kind: KindUserDisconnected, Content: content})
	})

	_ = transport.Close()
	d.metrics.MessageRouted("disconnect")
}

// handleBrokenTransport treats an outbound write failure as
// ErrTransportBroken: the session is removed and peers are notified, same
// as an explicit disconnect. Removal is idempotent, so a concurrent close
// observed independently by the transport layer (HandleClose) never
// produces a second user_disconnected broadcast.
func (d *Dispatcher) handleBrokenTransport(sess *Session) {
	d.metrics.ErrorOccurred("transport_broken")
	d.removeAndNotify(sess, sess.Transport())
}
