package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

// Coords, PositionError and PositionMessage follow the shape of the W3C
// GeolocationPosition and GeolocationPositionError objects, which both the
// device runtime and the browser relay forward as JSON.
type Coords struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type PositionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type PositionMessage struct {
	WatchID   string         `json:"watch_id"`
	Coords    *Coords        `json:"coords,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
	Error     *PositionError `json:"error,omitempty"`
}

func (m *PositionMessage) Validate() error {
	if m.WatchID == "" {
		return fmt.Errorf("watch_id: required")
	}
	if (m.Coords == nil) == (m.Error == nil) {
		return fmt.Errorf("exactly one of coords or error is required")
	}
	if m.Error != nil {
		if m.Error.Code < 1 || m.Error.Code > 3 {
			return fmt.Errorf("error.code: must be 1, 2 or 3")
		}
		return nil
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return m.position().Validate()
}

// Event converts a validated message into a location event attributed to
// the named provider.
func (m *PositionMessage) Event(providerName string) (domain.LocationEvent, error) {
	if err := m.Validate(); err != nil {
		return domain.LocationEvent{}, err
	}
	if m.Error != nil {
		return domain.ErrorEvent(&domain.LocationError{
			Kind:     domain.ErrorKindFromCode(m.Error.Code),
			Provider: providerName,
			Message:  m.Error.Message,
		}), nil
	}
	return domain.PositionEvent(m.position()), nil
}

func (m *PositionMessage) position() domain.Position {
	if m.Coords == nil {
		return domain.Position{}
	}
	return domain.Position{
		Lat:       m.Coords.Latitude,
		Lon:       m.Coords.Longitude,
		Accuracy:  m.Coords.Accuracy,
		Timestamp: time.UnixMilli(m.Timestamp),
	}
}

var ErrUnknownWatch = errors.New("unknown watch id")
