package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/pothole-alert/config"
	"github.com/nandanugg/pothole-alert/module/core/domain"
	handler "github.com/nandanugg/pothole-alert/module/core/internal/handler/http"
	"github.com/nandanugg/pothole-alert/module/core/internal/metrics"
	"github.com/nandanugg/pothole-alert/module/core/internal/provider/browser"
	"github.com/nandanugg/pothole-alert/module/core/internal/provider/native"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database/yamlfile"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/pothole-alert/module/core/service"
)

const resubscribeTimeout = 5 * time.Second

type Module struct {
	LocationSvc *service.LocationService
	HazardSvc   *service.HazardService
	TrackSvc    *service.TrackService
	Tracker     *service.Tracker

	bridge          *native.Bridge
	relay           *browser.Relay
	trackHandler    *handler.TrackHandler
	hazardHandler   *handler.HazardHandler
	trackingHandler *handler.TrackingHandler
	log             *slog.Logger
}

func Build(cfg *config.Config, db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, log *slog.Logger) (*Module, error) {
	metrics.Init()

	var hazardRepo database.HazardRepository
	switch cfg.HazardSource {
	case config.HazardSourceFile:
		hazardRepo = yamlfile.NewHazardRepo(cfg.HazardFile)
	default:
		hazardRepo = postgres.NewHazardRepo(db)
	}
	trackRepo := postgres.NewTrackRepo(db)

	alertPub, err := rabbitmq.NewAlertPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("alert publisher: %w", err)
	}

	bridge := native.NewBridge(mqttClient, cfg.DeviceID, log.With("provider", "native"))
	relay := browser.NewRelay(log.With("provider", "browser"))

	locationSvc := service.NewLocationService(log.With("component", "location"), cfg.PermissionTimeout, bridge, relay)
	hazardSvc := service.NewHazardService(hazardRepo, log.With("component", "hazards"))
	trackSvc := service.NewTrackService(trackRepo)

	tracker := service.NewTracker(service.TrackerConfig{
		DeviceID: cfg.DeviceID,
		Watch: domain.WatchOptions{
			HighAccuracy: cfg.HighAccuracy,
			Timeout:      cfg.WatchTimeout,
			MaximumAge:   cfg.WatchMaximumAge,
		},
		RadiusMeters:     cfg.AlertRadius,
		ExitMarginMeters: cfg.AlertExitMargin,
	}, locationSvc, hazardSvc, trackSvc, alertPub, log.With("component", "tracker"))

	return &Module{
		LocationSvc:     locationSvc,
		HazardSvc:       hazardSvc,
		TrackSvc:        trackSvc,
		Tracker:         tracker,
		bridge:          bridge,
		relay:           relay,
		trackHandler:    handler.NewTrackHandler(trackSvc),
		hazardHandler:   handler.NewHazardHandler(hazardSvc),
		trackingHandler: handler.NewTrackingHandler(tracker),
		log:             log,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.relay.Register(r)
	m.trackHandler.Register(r)
	m.hazardHandler.Register(r)
	m.trackingHandler.Register(r)
}

// Start loads the hazard snapshot and runs the tracker until ctx is done.
func (m *Module) Start(ctx context.Context) error {
	if err := m.HazardSvc.Load(ctx); err != nil {
		return fmt.Errorf("load hazards: %w", err)
	}
	go m.Tracker.Run(ctx)
	return nil
}

// MQTTConnected restores the native watch after the broker connection
// comes back. It is safe to call before any watch exists.
func (m *Module) MQTTConnected() {
	ctx, cancel := context.WithTimeout(context.Background(), resubscribeTimeout)
	defer cancel()
	if err := m.bridge.Resubscribe(ctx); err != nil {
		m.log.Error("restore native watch", "error", err)
	}
}

func (m *Module) Shutdown() {
	m.Tracker.Stop()
}
