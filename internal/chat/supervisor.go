package chat

import (
	"context"
	"log/slog"
	"time"
)

// Default cadence and threshold per the specification's §4.5 — canonical
// values confirmed against original_source/chat_server/s erver_threads.c
// (TIMEOUT_INACTIVIDAD 60, a 5-second sleep between scans).
const (
	DefaultInactivityTimeout = 60 * time.Second
	DefaultScanInterval      = 5 * time.Second
)

// Supervisor is the background task described by §4.5: on a fixed
// cadence it demotes every StatusActive session whose last_activity is
// older than the configured timeout to StatusInactive, broadcasting one
// status_update per demoted session. It never removes sessions and never
// touches sessions already in StatusBusy or StatusInactive — demotion is
// strictly ACTIVE -> INACTIVE, matching the specification's resolution of
// the source variants' disagreement on this point.
type Supervisor struct {
	registry *Registry
	metrics  MetricsReporter
	logger   *slog.Logger

	timeout      time.Duration
	scanInterval time.Duration
}

// SupervisorOption configures optional Supervisor parameters.
type SupervisorOption func(*Supervisor)

// WithInactivityTimeout overrides DefaultInactivityTimeout.
func WithInactivityTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithScanInterval overrides DefaultScanInterval.
func WithScanInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if d > 0 {
			s.scanInterval = d
		}
	}
}

// WithSupervisorMetrics sets the MetricsReporter used for transition
// counters.
func WithSupervisorMetrics(mr MetricsReporter) SupervisorOption {
	return func(s *Supervisor) {
		if mr != nil {
			s.metrics = mr
		}
	}
}

// NewSupervisor creates a Supervisor over registry with the canonical
// defaults, as overridden by opts.
func NewSupervisor(registry *Registry, logger *slog.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		registry:     registry,
		metrics:      noopMetrics{},
		logger:       logger.With(slog.String("component", "chat.supervisor")),
		timeout:      DefaultInactivityTimeout,
		scanInterval: DefaultScanInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks, ticking at the configured scan interval and demoting idle
// sessions, until ctx is cancelled. It is intended to be run in its own
// goroutine, one per daemon instance, independent of inbound traffic.
// It always returns nil; the error return exists so Run slots directly
// into an errgroup.Group alongside the HTTP servers.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.scan()
		}
	}
}

// scan computes now once and demotes every session that is StatusActive
// and has been idle longer than the timeout. Outbound status_update
// frames are sent outside the registry's mutation lock via ForEach.
func (s *Supervisor) scan() {
	now := time.Now()

	s.registry.ForEach(func(sess *Session) {
		if sess.Status() != StatusActive {
			return
		}
		if now.Sub(sess.LastActivity()) <= s.timeout {
			return
		}

		sess.SetStatus(StatusInactive)
		s.metrics.StatusTransition(StatusActive.String(), StatusInactive.String())
		s.logger.Info("session demoted for inactivity", slog.String("name", sess.Name()))

		content := map[string]string{"user": sess.Name(), "status": StatusInactive.String()}
		s.registry.ForEach(func(peer *Session) {
			_ = peer.Send(Response{Kind: KindStatusUpdate, Content: content})
		})
	})
}
