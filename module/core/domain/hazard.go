package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return 0, ErrInvalidSeverity
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityLow || s > SeverityHigh {
		return nil, ErrInvalidSeverity
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Hazard struct {
	ID          string    `json:"id"`
	Lat         float64   `json:"latitude"`
	Lon         float64   `json:"longitude"`
	Severity    Severity  `json:"severity"`
	ReportCount int       `json:"report_count"`
	ReportedBy  string    `json:"reported_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func (h Hazard) Validate() error {
	switch {
	case strings.TrimSpace(h.ID) == "":
		return fmt.Errorf("%w: id: required", ErrInvalidHazard)
	case math.IsNaN(h.Lat) || h.Lat < -90 || h.Lat > 90:
		return fmt.Errorf("%w %s: %v", ErrInvalidHazard, h.ID, ErrInvalidLatitude)
	case math.IsNaN(h.Lon) || h.Lon < -180 || h.Lon > 180:
		return fmt.Errorf("%w %s: %v", ErrInvalidHazard, h.ID, ErrInvalidLongitude)
	case h.Severity < SeverityLow || h.Severity > SeverityHigh:
		return fmt.Errorf("%w %s: %v", ErrInvalidHazard, h.ID, ErrInvalidSeverity)
	case h.ReportCount < 1:
		return fmt.Errorf("%w %s: report_count: must be positive", ErrInvalidHazard, h.ID)
	}
	return nil
}

// HazardSet is a snapshot of known hazards keyed by id.
type HazardSet map[string]Hazard

// NewHazardSet validates hazards and rejects duplicate ids.
func NewHazardSet(hazards []Hazard) (HazardSet, error) {
	set := make(HazardSet, len(hazards))
	for _, h := range hazards {
		if err := h.Validate(); err != nil {
			return nil, err
		}
		if _, ok := set[h.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateHazard, h.ID)
		}
		set[h.ID] = h
	}
	return set, nil
}

// IDs returns the hazard ids in ascending order.
func (s HazardSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s HazardSet) List() []Hazard {
	out := make([]Hazard, 0, len(s))
	for _, id := range s.IDs() {
		out = append(out, s[id])
	}
	return out
}

type AlertEvent struct {
	HazardID       string   `json:"hazard_id"`
	Severity       Severity `json:"severity"`
	DistanceMeters float64  `json:"distance_meters"`
	Hazard         Hazard   `json:"hazard"`
}

func (a AlertEvent) Description() string {
	return fmt.Sprintf("Pothole detected %dm ahead. Severity: %s", int(math.Round(a.DistanceMeters)), a.Severity)
}

// SuppressionState records, per hazard id, whether the user is currently
// inside that hazard's alert radius.
type SuppressionState map[string]bool

func (s SuppressionState) Clone() SuppressionState {
	out := make(SuppressionState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Alert is an AlertEvent attributed to the device and fix that raised it.
type Alert struct {
	DeviceID string     `json:"device_id"`
	Position Position   `json:"position"`
	Event    AlertEvent `json:"event"`
}
