package service

import (
	"context"
	"fmt"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database"
)

// TrackService keeps the log of accepted fixes per device.
type TrackService struct {
	repo database.TrackRepository
}

func NewTrackService(repo database.TrackRepository) *TrackService {
	return &TrackService{repo: repo}
}

func (s *TrackService) Record(ctx context.Context, pt *domain.TrackPoint) error {
	if err := pt.Position.Validate(); err != nil {
		return fmt.Errorf("track point: %w", err)
	}
	return s.repo.Insert(ctx, pt)
}

func (s *TrackService) GetLatest(ctx context.Context, deviceID string) (*domain.TrackPoint, error) {
	return s.repo.GetLatest(ctx, deviceID)
}

func (s *TrackService) GetHistory(ctx context.Context, query *domain.TrackQuery) ([]domain.TrackPoint, error) {
	if query.End.Before(query.Start) {
		return nil, domain.ErrInvalidTimeRange
	}
	return s.repo.GetHistory(ctx, query)
}

func (s *TrackService) GetDevices(ctx context.Context) ([]domain.Device, error) {
	return s.repo.GetDevices(ctx)
}
