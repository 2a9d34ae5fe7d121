// Package capture runs one voice capture at a time over a Recognizer.
//
// A capture never fails from the caller's point of view: a missing device,
// a denied permission or a recognizer error all end as an empty transcript
// so the caller can fall back to manual entry.
package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Recognizer is the speech device. Start blocks until a final transcript is
// available, Stop is called or ctx ends; it may report interim text through
// partial. Stop must be safe to call when nothing is running.
type Recognizer interface {
	Available(ctx context.Context) bool
	RequestPermission(ctx context.Context) (bool, error)
	Start(ctx context.Context, locale string, partial func(string)) (string, error)
	Stop() error
}

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// DefaultLocale is the recognition language.
const DefaultLocale = "es-AR"

type Session struct {
	rec    Recognizer
	locale string
	logger *slog.Logger

	mu     sync.Mutex
	active *run
}

// run is one Listen call.
type run struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	partial  string
	stopped  bool
	override string
}

func (r *run) setPartial(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(text) != "" {
		r.partial = text
	}
}

func (r *run) stop(override string) {
	r.mu.Lock()
	r.stopped = true
	r.override = override
	r.mu.Unlock()
	r.cancel()
}

// result is the override when one was given, else the last partial.
func (r *run) result() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(r.override) != "" {
		return r.override, r.stopped
	}
	return r.partial, r.stopped
}

func NewSession(rec Recognizer, locale string, logger *slog.Logger) *Session {
	if locale == "" {
		locale = DefaultLocale
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{rec: rec, locale: locale, logger: logger}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return Listening
	}
	return Idle
}

// Listen captures one sentence. An active capture is stopped first. An empty
// final transcript is retried once; after that the last partial transcript
// is returned. ctx bounds the whole capture.
func (s *Session) Listen(ctx context.Context) string {
	if !s.rec.Available(ctx) {
		s.logger.WarnContext(ctx, "Speech recognition unavailable")
		return ""
	}
	granted, err := s.rec.RequestPermission(ctx)
	if err != nil || !granted {
		s.logger.WarnContext(ctx, "Speech permission denied", "error", err)
		return ""
	}

	lctx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	for s.active != nil {
		prev := s.active
		s.mu.Unlock()
		prev.stop("")
		s.release()
		<-prev.done
		s.mu.Lock()
	}
	s.active = r
	s.mu.Unlock()

	defer func() {
		cancel()
		s.release()
		s.mu.Lock()
		if s.active == r {
			s.active = nil
		}
		s.mu.Unlock()
		close(r.done)
	}()

	for attempt := 1; attempt <= 2; attempt++ {
		text, err := s.rec.Start(lctx, s.locale, r.setPartial)
		if res, stopped := r.result(); stopped {
			return res
		}
		if err != nil {
			s.logger.WarnContext(ctx, "Speech capture failed", "attempt", attempt, "error", err)
			break
		}
		if strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if lctx.Err() != nil {
			break
		}
		s.logger.DebugContext(ctx, "Empty transcript", "attempt", attempt)
	}
	res, _ := r.result()
	return res
}

// Stop ends the active capture. Its Listen returns override when non-empty,
// otherwise whatever partial transcript was heard. Stop with no active
// capture does nothing.
func (s *Session) Stop(override string) {
	s.mu.Lock()
	r := s.active
	s.mu.Unlock()
	if r == nil {
		return
	}
	r.stop(override)
	s.release()
}

func (s *Session) release() {
	if err := s.rec.Stop(); err != nil {
		s.logger.Debug("Recognizer stop failed", "error", err)
	}
}
