package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/publisher"
)

var _ publisher.AlertPublisher = (*AlertPublisher)(nil)

const (
	ExchangeName = "pothole.events"
	QueueName    = "pothole_alerts"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AlertPublisher struct {
	ch channel
}

func NewAlertPublisher(conn *amqp.Connection) (*AlertPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &AlertPublisher{ch: ch}, nil
}

// AlertMessage is the body published for every alert. event_listener
// decodes the same type.
type AlertMessage struct {
	DeviceID       string          `json:"device_id"`
	HazardID       string          `json:"hazard_id"`
	Severity       domain.Severity `json:"severity"`
	DistanceMeters float64         `json:"distance_meters"`
	Description    string          `json:"description"`
	Location       AlertLocation   `json:"location"`
	Hazard         AlertLocation   `json:"hazard_location"`
	Timestamp      int64           `json:"timestamp"`
}

type AlertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewAlertMessage(alert *domain.Alert) AlertMessage {
	ev := alert.Event
	return AlertMessage{
		DeviceID:       alert.DeviceID,
		HazardID:       ev.HazardID,
		Severity:       ev.Severity,
		DistanceMeters: ev.DistanceMeters,
		Description:    ev.Description(),
		Location: AlertLocation{
			Latitude:  alert.Position.Lat,
			Longitude: alert.Position.Lon,
		},
		Hazard: AlertLocation{
			Latitude:  ev.Hazard.Lat,
			Longitude: ev.Hazard.Lon,
		},
		Timestamp: alert.Position.Timestamp.Unix(),
	}
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, alert *domain.Alert) error {
	body, err := json.Marshal(NewAlertMessage(alert))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
