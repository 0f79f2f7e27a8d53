package service

import (
	"math"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

const (
	earthRadiusMeters = 6371000

	DefaultAlertRadiusMeters = 20
)

// Engine decides which hazards the user has just come within range of.
// It holds no state of its own; callers thread SuppressionState through
// successive Evaluate calls.
type Engine struct {
	RadiusMeters float64
	// ExitMarginMeters delays re-arming until the user is this far beyond
	// the radius. Zero re-arms on the first sample outside the radius.
	ExitMarginMeters float64
}

func NewEngine(radiusMeters, exitMarginMeters float64) Engine {
	if radiusMeters < 0 || math.IsNaN(radiusMeters) {
		radiusMeters = 0
	}
	if exitMarginMeters < 0 || math.IsNaN(exitMarginMeters) {
		exitMarginMeters = 0
	}
	return Engine{RadiusMeters: radiusMeters, ExitMarginMeters: exitMarginMeters}
}

// Evaluate is Engine.Evaluate without an exit margin. Callers normally pass
// DefaultAlertRadiusMeters (20 m) as radiusMeters.
func Evaluate(pos domain.Position, hazards domain.HazardSet, radiusMeters float64, state domain.SuppressionState) ([]domain.AlertEvent, domain.SuppressionState) {
	return NewEngine(radiusMeters, 0).Evaluate(pos, hazards, state)
}

// Evaluate returns one alert per hazard whose distance moved from outside
// to inside the radius, in ascending hazard id order, and the updated
// suppression state. The input state is never modified. An invalid
// position yields no alerts and the state unchanged.
func (e Engine) Evaluate(pos domain.Position, hazards domain.HazardSet, state domain.SuppressionState) ([]domain.AlertEvent, domain.SuppressionState) {
	next := state.Clone()
	if len(hazards) == 0 || pos.Validate() != nil {
		return nil, next
	}

	var alerts []domain.AlertEvent
	for _, id := range hazards.IDs() {
		h := hazards[id]
		dist := Haversine(pos.Lat, pos.Lon, h.Lat, h.Lon)
		wasInside := next[id]

		switch {
		case dist <= e.RadiusMeters:
			if !wasInside {
				alerts = append(alerts, domain.AlertEvent{
					HazardID:       id,
					Severity:       h.Severity,
					DistanceMeters: dist,
					Hazard:         h,
				})
			}
			next[id] = true
		case wasInside && dist <= e.RadiusMeters+e.ExitMarginMeters:
			// still within the exit margin
		default:
			next[id] = false
		}
	}
	return alerts, next
}

// Haversine returns the great-circle distance in meters between two points
// given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(math.Max(a, 0), 1)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
