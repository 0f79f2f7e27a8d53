package domain

import (
	"math"
	"time"
)

type Position struct {
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate rejects fixes that cannot be evaluated: NaN, infinities,
// out-of-range coordinates and negative accuracy.
func (p Position) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidLongitude
	}
	if p.Accuracy != nil && (math.IsNaN(*p.Accuracy) || *p.Accuracy < 0) {
		return ErrInvalidAccuracy
	}
	return nil
}

type WatchOptions struct {
	HighAccuracy bool          `json:"enable_high_accuracy"`
	Timeout      time.Duration `json:"timeout"`
	MaximumAge   time.Duration `json:"maximum_age"`
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaximumAge:   3 * time.Second,
	}
}

// WatchHandle identifies one Start call on a location source. Zero means
// no watch was installed.
type WatchHandle uint64

func (h WatchHandle) Valid() bool {
	return h != 0
}

type Permission string

const (
	PermissionStateGranted Permission = "granted"
	PermissionStateDenied  Permission = "denied"
	PermissionStatePrompt  Permission = "prompt"
)

func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionStateGranted, PermissionStateDenied, PermissionStatePrompt:
		return p, nil
	}
	return "", ErrInvalidPermission
}

// LocationEvent carries exactly one of Position or Err.
type LocationEvent struct {
	Position *Position
	Err      *LocationError
}

func PositionEvent(p Position) LocationEvent {
	return LocationEvent{Position: &p}
}

func ErrorEvent(err *LocationError) LocationEvent {
	return LocationEvent{Err: err}
}

type TrackPoint struct {
	DeviceID string   `json:"device_id"`
	Position Position `json:"position"`
}

type TrackQuery struct {
	DeviceID string
	Start    time.Time
	End      time.Time
}

type Device struct {
	DeviceID string `json:"device_id"`
}
