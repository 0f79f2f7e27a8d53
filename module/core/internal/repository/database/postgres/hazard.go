package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database"
)

var _ database.HazardRepository = (*HazardRepo)(nil)

// HazardRepo reads the potholes table owned by the reporting backend.
// Nothing here writes to it.
type HazardRepo struct {
	db *sql.DB
}

func NewHazardRepo(db *sql.DB) *HazardRepo {
	return &HazardRepo{db: db}
}

func (r *HazardRepo) List(ctx context.Context) ([]domain.Hazard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, severity, report_count, reported_by, created_at FROM potholes ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Hazard
	for rows.Next() {
		var (
			h          domain.Hazard
			severity   string
			reportedBy sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.Lat, &h.Lon, &severity, &h.ReportCount, &reportedBy, &h.Timestamp); err != nil {
			return nil, err
		}
		if h.Severity, err = domain.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("pothole %s: %w", h.ID, err)
		}
		h.ReportedBy = reportedBy.String
		results = append(results, h)
	}
	return results, rows.Err()
}
