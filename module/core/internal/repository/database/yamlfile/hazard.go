package yamlfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database"
)

var _ database.HazardRepository = (*HazardRepo)(nil)

// HazardRepo serves a hazard snapshot from a YAML file, for running
// without the reporting database.
type HazardRepo struct {
	path string
}

func NewHazardRepo(path string) *HazardRepo {
	return &HazardRepo{path: path}
}

type hazardFile struct {
	Potholes []hazardEntry `yaml:"potholes"`
}

type hazardEntry struct {
	ID          string    `yaml:"id"`
	Latitude    float64   `yaml:"latitude"`
	Longitude   float64   `yaml:"longitude"`
	Severity    string    `yaml:"severity"`
	ReportCount int       `yaml:"report_count"`
	ReportedBy  string    `yaml:"reported_by"`
	Timestamp   time.Time `yaml:"timestamp"`
}

// List re-reads the file on every call so edits are picked up on refresh.
func (r *HazardRepo) List(_ context.Context) ([]domain.Hazard, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read hazard file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]domain.Hazard, error) {
	var f hazardFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse hazard file: %w", err)
	}

	hazards := make([]domain.Hazard, 0, len(f.Potholes))
	for i, e := range f.Potholes {
		severity, err := domain.ParseSeverity(e.Severity)
		if err != nil {
			return nil, fmt.Errorf("pothole #%d (%s): %w", i+1, e.ID, err)
		}
		count := e.ReportCount
		if count == 0 {
			count = 1
		}
		hazards = append(hazards, domain.Hazard{
			ID:          e.ID,
			Lat:         e.Latitude,
			Lon:         e.Longitude,
			Severity:    severity,
			ReportCount: count,
			ReportedBy:  e.ReportedBy,
			Timestamp:   e.Timestamp,
		})
	}
	return hazards, nil
}
