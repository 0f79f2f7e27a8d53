package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLatitude   = errors.New("latitude: must be between -90 and 90")
	ErrInvalidLongitude  = errors.New("longitude: must be between -180 and 180")
	ErrInvalidAccuracy   = errors.New("accuracy: must be a non-negative number")
	ErrInvalidPermission = errors.New("permission: must be granted, denied or prompt")
	ErrInvalidSeverity   = errors.New("severity: must be low, medium or high")
	ErrInvalidHazard     = errors.New("invalid hazard")
	ErrDuplicateHazard   = errors.New("duplicate hazard id")
	ErrTrackNotFound     = errors.New("track not found")
	ErrTrackingInactive  = errors.New("tracking is not active")
	ErrInvalidTimeRange  = errors.New("end must not be before start")
)

type ErrorKind string

const (
	PermissionDenied    ErrorKind = "permission_denied"
	LocationTimeout     ErrorKind = "location_timeout"
	LocationUnavailable ErrorKind = "location_unavailable"
	ProviderInitFailure ErrorKind = "provider_init_failure"
)

type LocationError struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *LocationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Provider, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the watch that produced the error is finished.
// Timeouts are transient; the provider keeps trying.
func (e *LocationError) Fatal() bool {
	return e.Kind != LocationTimeout
}

// ErrorKindFromCode maps W3C GeolocationPositionError codes.
func ErrorKindFromCode(code int) ErrorKind {
	switch code {
	case 1:
		return PermissionDenied
	case 3:
		return LocationTimeout
	default:
		return LocationUnavailable
	}
}
