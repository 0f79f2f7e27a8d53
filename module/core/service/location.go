package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/metrics"
	"github.com/nandanugg/pothole-alert/module/core/internal/provider"
)

var errSuperseded = errors.New("watch superseded")

type watch struct {
	handle     domain.WatchHandle
	provider   provider.Provider
	id         provider.WatchID
	opts       domain.WatchOptions
	onPosition func(domain.Position)
	onError    func(*domain.LocationError)
	timer      *time.Timer
	// device time of the newest accepted fix
	newest time.Time
}

type lease struct {
	provider provider.Provider
	id       provider.WatchID
}

// LocationService turns a list of location providers, in order of
// preference, into a single watch with one lifecycle. At most one watch is
// active at a time and callbacks for it are never run concurrently.
type LocationService struct {
	providers    []provider.Provider
	startTimeout time.Duration
	log          *slog.Logger

	mu     sync.Mutex
	gen    uint64
	active *watch
}

func NewLocationService(log *slog.Logger, startTimeout time.Duration, providers ...provider.Provider) *LocationService {
	return &LocationService{
		providers:    providers,
		startTimeout: startTimeout,
		log:          log,
	}
}

// Start stops any active watch, then requests permission and starts a
// watch on the first provider that succeeds. A denied permission is
// reported through onError without trying other providers. The returned
// handle is zero when no watch was installed.
//
// Callbacks run with the service locked: they must not call Start or Stop.
func (s *LocationService) Start(ctx context.Context, opts domain.WatchOptions, onPosition func(domain.Position), onError func(*domain.LocationError)) domain.WatchHandle {
	s.mu.Lock()
	prev := s.detachLocked()
	s.gen++
	handle := domain.WatchHandle(s.gen)
	s.mu.Unlock()
	s.clear(prev)

	var failures []error
	for i, p := range s.providers {
		w := &watch{handle: handle, provider: p, opts: opts, onPosition: onPosition, onError: onError}
		err := s.acquire(ctx, w)
		if err == nil {
			s.log.Info("location watch started", "provider", p.Name(), "handle", uint64(handle))
			return handle
		}
		if errors.Is(err, errSuperseded) {
			return 0
		}

		var lerr *domain.LocationError
		if errors.As(err, &lerr) {
			s.fail(handle, onError, lerr)
			return 0
		}

		failures = append(failures, err)
		if i < len(s.providers)-1 {
			metrics.ProviderFallbacks.WithLabelValues(p.Name()).Inc()
			s.log.Warn("location provider failed, falling back", "provider", p.Name(), "error", err)
		}
	}

	s.fail(handle, onError, &domain.LocationError{
		Kind:    domain.ProviderInitFailure,
		Message: "no location provider could be started",
		Err:     errors.Join(failures...),
	})
	return 0
}

// Stop releases the watch identified by handle. Stale or unknown handles
// are ignored. Once Stop returns no further callbacks are made for the
// watch.
func (s *LocationService) Stop(handle domain.WatchHandle) {
	s.mu.Lock()
	if s.active == nil || s.active.handle != handle {
		s.mu.Unlock()
		return
	}
	l := s.detachLocked()
	s.mu.Unlock()

	s.clear(l)
	s.log.Info("location watch stopped", "provider", l.provider.Name(), "handle", uint64(handle))
}

// Active returns the handle and provider name of the running watch, or a
// zero handle.
func (s *LocationService) Active() (domain.WatchHandle, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0, ""
	}
	return s.active.handle, s.active.provider.Name()
}

func (s *LocationService) acquire(ctx context.Context, w *watch) error {
	name := w.provider.Name()
	if s.startTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.startTimeout)
		defer cancel()
	}

	perm, err := w.provider.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("%s: request permission: %w", name, err)
	}
	if perm == domain.PermissionStateDenied {
		return &domain.LocationError{Kind: domain.PermissionDenied, Provider: name, Message: "location permission denied"}
	}

	s.mu.Lock()
	if s.gen != uint64(w.handle) {
		s.mu.Unlock()
		return errSuperseded
	}
	// installed before Watch returns so that an early first fix is kept
	s.active = w
	s.mu.Unlock()

	id, err := w.provider.Watch(ctx, w.opts, func(ev domain.LocationEvent) {
		s.deliver(w, ev)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.active == w {
			s.active = nil
		}
		return fmt.Errorf("%s: watch: %w", name, err)
	}
	w.id = id
	if s.active != w {
		// stopped, superseded or ended by a fatal error while starting
		go s.clear(&lease{provider: w.provider, id: id})
		return errSuperseded
	}
	s.armLocked(w)
	return nil
}

func (s *LocationService) deliver(w *watch, ev domain.LocationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != w {
		return
	}
	name := w.provider.Name()

	switch {
	case ev.Position != nil:
		pos := *ev.Position
		if err := pos.Validate(); err != nil {
			metrics.FixesDropped.WithLabelValues(name, "invalid").Inc()
			s.log.Warn("dropping invalid fix", "provider", name, "error", err)
			return
		}
		if s.staleLocked(w, pos) {
			metrics.FixesDropped.WithLabelValues(name, "stale").Inc()
			s.log.Debug("dropping stale fix", "provider", name, "fix_time", pos.Timestamp)
			return
		}
		if pos.Timestamp.After(w.newest) {
			w.newest = pos.Timestamp
		}
		s.armLocked(w)
		metrics.FixesAccepted.WithLabelValues(name).Inc()
		if w.onPosition != nil {
			w.onPosition(pos)
		}

	case ev.Err != nil:
		lerr := *ev.Err
		if lerr.Provider == "" {
			lerr.Provider = name
		}
		if lerr.Fatal() {
			l := s.detachLocked()
			if l.id != "" {
				go s.clear(l)
			}
		} else {
			s.armLocked(w)
		}
		metrics.LocationErrors.WithLabelValues(name, string(lerr.Kind)).Inc()
		if w.onError != nil {
			w.onError(&lerr)
		}
	}
}

// fail reports a start failure unless a newer Start has taken over.
func (s *LocationService) fail(handle domain.WatchHandle, onError func(*domain.LocationError), lerr *domain.LocationError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != uint64(handle) {
		return
	}
	metrics.LocationErrors.WithLabelValues(lerr.Provider, string(lerr.Kind)).Inc()
	s.log.Warn("location watch not started", "kind", lerr.Kind, "error", lerr)
	if onError != nil {
		onError(lerr)
	}
}

// staleLocked measures a fix's age against the newest fix of the same watch,
// so both sides come from the device clock and server clock skew does not
// matter. The first fix of a watch is never stale.
func (s *LocationService) staleLocked(w *watch, pos domain.Position) bool {
	if w.opts.MaximumAge <= 0 || pos.Timestamp.IsZero() || w.newest.IsZero() {
		return false
	}
	return w.newest.Sub(pos.Timestamp) > w.opts.MaximumAge
}

// armLocked (re)starts the watchdog that reports a timeout when no fix
// arrives within the watch timeout.
func (s *LocationService) armLocked(w *watch) {
	if w.opts.Timeout <= 0 {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.opts.Timeout, func() { s.expire(w) })
		return
	}
	w.timer.Reset(w.opts.Timeout)
}

func (s *LocationService) expire(w *watch) {
	s.deliver(w, domain.ErrorEvent(&domain.LocationError{
		Kind:     domain.LocationTimeout,
		Provider: w.provider.Name(),
		Message:  fmt.Sprintf("no fix within %s", w.opts.Timeout),
	}))
}

func (s *LocationService) detachLocked() *lease {
	w := s.active
	if w == nil {
		return nil
	}
	s.active = nil
	if w.timer != nil {
		w.timer.Stop()
	}
	return &lease{provider: w.provider, id: w.id}
}

func (s *LocationService) clear(l *lease) {
	if l == nil || l.id == "" {
		return
	}
	if err := l.provider.ClearWatch(l.id); err != nil {
		s.log.Warn("clear watch failed", "provider", l.provider.Name(), "error", err)
	}
}
