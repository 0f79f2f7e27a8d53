package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database"
)

var _ database.TrackRepository = (*TrackRepo)(nil)

type TrackRepo struct {
	db *sql.DB
}

func NewTrackRepo(db *sql.DB) *TrackRepo {
	return &TrackRepo{db: db}
}

func (r *TrackRepo) Insert(ctx context.Context, pt *domain.TrackPoint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_tracks (device_id, latitude, longitude, accuracy, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		pt.DeviceID, pt.Position.Lat, pt.Position.Lon, nullFloat(pt.Position.Accuracy), pt.Position.Timestamp,
	)
	return err
}

func (r *TrackRepo) GetLatest(ctx context.Context, deviceID string) (*domain.TrackPoint, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT device_id, latitude, longitude, accuracy, timestamp FROM device_tracks WHERE device_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		deviceID,
	)

	pt, err := scanTrackPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTrackNotFound
	}
	if err != nil {
		return nil, err
	}
	return pt, nil
}

func (r *TrackRepo) GetHistory(ctx context.Context, query *domain.TrackQuery) ([]domain.TrackPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id, latitude, longitude, accuracy, timestamp FROM device_tracks WHERE device_id = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp ASC`,
		query.DeviceID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.TrackPoint
	for rows.Next() {
		pt, err := scanTrackPoint(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *pt)
	}
	return results, rows.Err()
}

func (r *TrackRepo) GetDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT device_id FROM device_tracks ORDER BY device_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.DeviceID); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrackPoint(s scanner) (*domain.TrackPoint, error) {
	var (
		pt       domain.TrackPoint
		accuracy sql.NullFloat64
	)
	if err := s.Scan(&pt.DeviceID, &pt.Position.Lat, &pt.Position.Lon, &accuracy, &pt.Position.Timestamp); err != nil {
		return nil, err
	}
	if accuracy.Valid {
		v := accuracy.Float64
		pt.Position.Accuracy = &v
	}
	return &pt, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
