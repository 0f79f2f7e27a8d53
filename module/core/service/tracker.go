package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/metrics"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/publisher"
)

const (
	defaultEventBuffer = 64
	recentAlertLimit   = 10
)

type locationSource interface {
	Start(ctx context.Context, opts domain.WatchOptions, onPosition func(domain.Position), onError func(*domain.LocationError)) domain.WatchHandle
	Stop(handle domain.WatchHandle)
	Active() (domain.WatchHandle, string)
}

type hazardSource interface {
	Snapshot() domain.HazardSet
}

type trackRecorder interface {
	Record(ctx context.Context, pt *domain.TrackPoint) error
}

type TrackerConfig struct {
	DeviceID         string
	Watch            domain.WatchOptions
	RadiusMeters     float64
	ExitMarginMeters float64
	Buffer           int
}

type TrackingStatus struct {
	Active       bool             `json:"active"`
	Provider     string           `json:"provider,omitempty"`
	LastPosition *domain.Position `json:"last_position,omitempty"`
	HazardCount  int              `json:"hazard_count"`
	LastError    string           `json:"last_error,omitempty"`
	RecentAlerts []domain.Alert   `json:"recent_alerts"`
}

// Tracker connects a location source to the proximity engine. Callbacks
// from the source only enqueue; Run evaluates fixes one at a time and owns
// the suppression state.
type Tracker struct {
	cfg       TrackerConfig
	engine    Engine
	source    locationSource
	hazards   hazardSource
	tracks    trackRecorder
	publisher publisher.AlertPublisher
	log       *slog.Logger

	events chan trackedEvent
	state  domain.SuppressionState

	// serializes Start and Stop
	mu sync.Mutex

	statusMu sync.Mutex
	// bumped by every Start and Stop; queued events from older sessions are dropped
	session  uint64
	handle   domain.WatchHandle
	lastPos  *domain.Position
	lastErr  *domain.LocationError
	recent   []domain.Alert
}

// NewTracker builds a tracker. tracks and pub may be nil.
func NewTracker(cfg TrackerConfig, source locationSource, hazards hazardSource, tracks trackRecorder, pub publisher.AlertPublisher, log *slog.Logger) *Tracker {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultEventBuffer
	}
	return &Tracker{
		cfg:       cfg,
		engine:    NewEngine(cfg.RadiusMeters, cfg.ExitMarginMeters),
		source:    source,
		hazards:   hazards,
		tracks:    tracks,
		publisher: pub,
		log:       log,
		events:    make(chan trackedEvent, cfg.Buffer),
		state:     domain.SuppressionState{},
	}
}

// Start begins tracking, replacing any running watch. When no watch could
// be installed the reported *domain.LocationError is returned.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statusMu.Lock()
	t.session++
	session := t.session
	t.lastErr = nil
	t.statusMu.Unlock()

	handle := t.source.Start(ctx, t.cfg.Watch,
		func(pos domain.Position) { t.onPosition(session, pos) },
		func(err *domain.LocationError) { t.onError(session, err) })

	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	t.handle = handle
	if handle.Valid() {
		return nil
	}
	if t.lastErr != nil {
		return t.lastErr
	}
	return domain.ErrTrackingInactive
}

func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statusMu.Lock()
	t.session++
	handle := t.handle
	t.handle = 0
	t.statusMu.Unlock()

	t.source.Stop(handle)
}

func (t *Tracker) Status() TrackingStatus {
	active, provider := t.source.Active()

	t.statusMu.Lock()
	defer t.statusMu.Unlock()

	st := TrackingStatus{
		Active:       active.Valid() && active == t.handle,
		HazardCount:  len(t.hazards.Snapshot()),
		RecentAlerts: append([]domain.Alert{}, t.recent...),
	}
	if st.Active {
		st.Provider = provider
	}
	if t.lastPos != nil {
		pos := *t.lastPos
		st.LastPosition = &pos
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	return st
}

// Run evaluates queued location events until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.events:
			t.handleEvent(ctx, ev)
		}
	}
}

// trackedEvent tags a location event with the Start that produced it.
type trackedEvent struct {
	session uint64
	domain.LocationEvent
}

func (t *Tracker) current(session uint64) bool {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	return session == t.session
}

func (t *Tracker) onPosition(session uint64, pos domain.Position) {
	t.enqueue(trackedEvent{session: session, LocationEvent: domain.PositionEvent(pos)})
}

func (t *Tracker) onError(session uint64, err *domain.LocationError) {
	t.statusMu.Lock()
	if session == t.session {
		t.lastErr = err
	}
	t.statusMu.Unlock()
	t.enqueue(trackedEvent{session: session, LocationEvent: domain.ErrorEvent(err)})
}

// enqueue never blocks the location source.
func (t *Tracker) enqueue(ev trackedEvent) {
	select {
	case t.events <- ev:
	default:
		metrics.FixesDropped.WithLabelValues("tracker", "backlog").Inc()
		t.log.Warn("tracker backlog full, dropping location event")
	}
}

func (t *Tracker) handleEvent(ctx context.Context, ev trackedEvent) {
	if !t.current(ev.session) {
		metrics.FixesDropped.WithLabelValues("tracker", "stopped").Inc()
		return
	}
	if ev.Err != nil {
		t.log.Warn("location error", "kind", ev.Err.Kind, "provider", ev.Err.Provider, "error", ev.Err.Message)
		return
	}
	if ev.Position == nil {
		return
	}
	pos := *ev.Position

	t.statusMu.Lock()
	t.lastPos = &pos
	t.statusMu.Unlock()

	if t.tracks != nil {
		if err := t.tracks.Record(ctx, &domain.TrackPoint{DeviceID: t.cfg.DeviceID, Position: pos}); err != nil {
			t.log.Error("failed to record track point", "device_id", t.cfg.DeviceID, "error", err)
		}
	}

	alerts, next := t.engine.Evaluate(pos, t.hazards.Snapshot(), t.state)
	t.state = next

	for _, a := range alerts {
		// Stop may have landed while the point was being recorded
		if !t.current(ev.session) {
			return
		}
		alert := domain.Alert{DeviceID: t.cfg.DeviceID, Position: pos, Event: a}
		metrics.AlertsEmitted.WithLabelValues(a.Severity.String()).Inc()
		t.log.Info("pothole alert", "hazard_id", a.HazardID, "severity", a.Severity.String(),
			"distance_m", a.DistanceMeters, "description", a.Description())

		t.statusMu.Lock()
		t.recent = append(t.recent, alert)
		if len(t.recent) > recentAlertLimit {
			t.recent = t.recent[len(t.recent)-recentAlertLimit:]
		}
		t.statusMu.Unlock()

		if t.publisher != nil {
			if err := t.publisher.PublishAlert(ctx, &alert); err != nil {
				t.log.Error("failed to publish alert", "hazard_id", a.HazardID, "error", err)
			}
		}
	}
}
