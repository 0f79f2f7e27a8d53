package domain

import (
	"errors"
	"math"
	"testing"
)

func TestPositionValidate(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name string
		pos  Position
		want error
	}{
		{"valid", Position{Lat: -6.2088, Lon: 106.8456}, nil},
		{"pole and antimeridian", Position{Lat: 90, Lon: -180}, nil},
		{"lat too high", Position{Lat: 90.1, Lon: 0}, ErrInvalidLatitude},
		{"lat NaN", Position{Lat: math.NaN(), Lon: 0}, ErrInvalidLatitude},
		{"lon too low", Position{Lat: 0, Lon: -180.5}, ErrInvalidLongitude},
		{"lon infinite", Position{Lat: 0, Lon: math.Inf(1)}, ErrInvalidLongitude},
		{"negative accuracy", Position{Lat: 0, Lon: 0, Accuracy: &neg}, ErrInvalidAccuracy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.pos.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	s, err := ParseSeverity(" High ")
	if err != nil || s != SeverityHigh {
		t.Fatalf("expected high, got %v (%v)", s, err)
	}
	if SeverityLow >= SeverityMedium || SeverityMedium >= SeverityHigh {
		t.Error("expected low < medium < high")
	}
	if _, err := ParseSeverity("extreme"); !errors.Is(err, ErrInvalidSeverity) {
		t.Errorf("expected ErrInvalidSeverity, got %v", err)
	}
	if _, err := Severity(0).MarshalText(); !errors.Is(err, ErrInvalidSeverity) {
		t.Errorf("expected ErrInvalidSeverity for zero severity, got %v", err)
	}
}

func TestNewHazardSet(t *testing.T) {
	h := Hazard{ID: "1", Lat: -6.2088, Lon: 106.8456, Severity: SeverityHigh, ReportCount: 1}

	set, err := NewHazardSet([]Hazard{h, {ID: "0", Severity: SeverityLow, ReportCount: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := set.IDs(); len(ids) != 2 || ids[0] != "0" || ids[1] != "1" {
		t.Errorf("expected sorted ids, got %v", ids)
	}

	if _, err := NewHazardSet([]Hazard{h, h}); !errors.Is(err, ErrDuplicateHazard) {
		t.Errorf("expected ErrDuplicateHazard, got %v", err)
	}

	bad := h
	bad.ReportCount = 0
	if _, err := NewHazardSet([]Hazard{bad}); !errors.Is(err, ErrInvalidHazard) {
		t.Errorf("expected ErrInvalidHazard, got %v", err)
	}
}

func TestAlertDescription(t *testing.T) {
	ev := AlertEvent{HazardID: "1", Severity: SeverityMedium, DistanceMeters: 12.4}
	if got := ev.Description(); got != "Pothole detected 12m ahead. Severity: medium" {
		t.Errorf("unexpected description: %s", got)
	}
}

func TestLocationError(t *testing.T) {
	tests := []struct {
		code  int
		kind  ErrorKind
		fatal bool
	}{
		{1, PermissionDenied, true},
		{2, LocationUnavailable, true},
		{3, LocationTimeout, false},
	}

	for _, tt := range tests {
		kind := ErrorKindFromCode(tt.code)
		if kind != tt.kind {
			t.Errorf("code %d: expected %s, got %s", tt.code, tt.kind, kind)
		}
		err := &LocationError{Kind: kind, Provider: "native", Message: "x"}
		if err.Fatal() != tt.fatal {
			t.Errorf("%s: expected fatal=%v", kind, tt.fatal)
		}
	}

	cause := errors.New("no bridge")
	err := &LocationError{Kind: ProviderInitFailure, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected LocationError to unwrap its cause")
	}
	if err.Error() != "provider_init_failure: no bridge" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestParsePermission(t *testing.T) {
	for _, s := range []string{"granted", "denied", "prompt"} {
		p, err := ParsePermission(s)
		if err != nil || string(p) != s {
			t.Errorf("ParsePermission(%q) = %q, %v", s, p, err)
		}
	}
	if p, err := ParsePermission("maybe"); !errors.Is(err, ErrInvalidPermission) || p != "" {
		t.Errorf("expected ErrInvalidPermission, got %q, %v", p, err)
	}
}

func TestSuppressionStateClone(t *testing.T) {
	s := SuppressionState{"1": true}
	c := s.Clone()
	c["1"] = false
	if !s["1"] {
		t.Fatal("clone must not share storage")
	}
}
