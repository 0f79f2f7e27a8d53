package yamlfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

const sampleFile = `
potholes:
  - id: "1"
    latitude: -6.2088
    longitude: 106.8456
    severity: high
    report_count: 3
    reported_by: user1
    timestamp: 2024-05-06T13:50:56Z
  - id: "2"
    latitude: -6.2100
    longitude: 106.8470
    severity: medium
`

func TestParse_Success(t *testing.T) {
	hazards, err := Parse([]byte(sampleFile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hazards) != 2 {
		t.Fatalf("expected 2 hazards, got %d", len(hazards))
	}
	if hazards[0].Severity != domain.SeverityHigh {
		t.Errorf("expected high, got %s", hazards[0].Severity)
	}
	if hazards[0].ReportCount != 3 {
		t.Errorf("expected 3 reports, got %d", hazards[0].ReportCount)
	}
	if hazards[0].Timestamp.Unix() != 1715003456 {
		t.Errorf("expected 1715003456, got %d", hazards[0].Timestamp.Unix())
	}
	if hazards[1].ReportCount != 1 {
		t.Errorf("expected default report count 1, got %d", hazards[1].ReportCount)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"bad severity", "potholes:\n  - id: \"1\"\n    severity: extreme\n", domain.ErrInvalidSeverity},
		{"malformed yaml", "potholes: [", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestList_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "potholes.yaml")
	if err := os.WriteFile(path, []byte(sampleFile), 0o600); err != nil {
		t.Fatal(err)
	}

	hazards, err := NewHazardRepo(path).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hazards) != 2 {
		t.Fatalf("expected 2 hazards, got %d", len(hazards))
	}
}

func TestList_MissingFile(t *testing.T) {
	_, err := NewHazardRepo(filepath.Join(t.TempDir(), "missing.yaml")).List(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
