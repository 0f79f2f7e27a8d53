package database

import (
	"context"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

type TrackRepository interface {
	Insert(ctx context.Context, pt *domain.TrackPoint) error
	GetLatest(ctx context.Context, deviceID string) (*domain.TrackPoint, error)
	GetHistory(ctx context.Context, query *domain.TrackQuery) ([]domain.TrackPoint, error)
	GetDevices(ctx context.Context) ([]domain.Device, error)
}

// HazardRepository is a read-only view of the hazard snapshot kept by the
// reporting backend.
type HazardRepository interface {
	List(ctx context.Context) ([]domain.Hazard, error)
}
