package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

type mockTrackRepo struct {
	insertFn     func(ctx context.Context, pt *domain.TrackPoint) error
	getLatestFn  func(ctx context.Context, deviceID string) (*domain.TrackPoint, error)
	getHistoryFn func(ctx context.Context, query *domain.TrackQuery) ([]domain.TrackPoint, error)
	getDevicesFn func(ctx context.Context) ([]domain.Device, error)
}

func (m *mockTrackRepo) Insert(ctx context.Context, pt *domain.TrackPoint) error {
	return m.insertFn(ctx, pt)
}

func (m *mockTrackRepo) GetLatest(ctx context.Context, deviceID string) (*domain.TrackPoint, error) {
	return m.getLatestFn(ctx, deviceID)
}

func (m *mockTrackRepo) GetHistory(ctx context.Context, query *domain.TrackQuery) ([]domain.TrackPoint, error) {
	return m.getHistoryFn(ctx, query)
}

func (m *mockTrackRepo) GetDevices(ctx context.Context) ([]domain.Device, error) {
	return m.getDevicesFn(ctx)
}

func TestRecord_Success(t *testing.T) {
	var inserted *domain.TrackPoint
	repo := &mockTrackRepo{
		insertFn: func(_ context.Context, pt *domain.TrackPoint) error {
			inserted = pt
			return nil
		},
	}

	svc := NewTrackService(repo)
	pt := &domain.TrackPoint{
		DeviceID: "phone-1",
		Position: domain.Position{Lat: -6.2088, Lon: 106.8456, Timestamp: time.Unix(1715003456, 0)},
	}

	if err := svc.Record(context.Background(), pt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted == nil {
		t.Fatal("expected Insert to be called")
	}
	if inserted.DeviceID != "phone-1" {
		t.Errorf("expected phone-1, got %s", inserted.DeviceID)
	}
}

func TestRecord_InvalidPosition(t *testing.T) {
	repo := &mockTrackRepo{
		insertFn: func(context.Context, *domain.TrackPoint) error {
			t.Fatal("Insert must not be called")
			return nil
		},
	}

	svc := NewTrackService(repo)
	err := svc.Record(context.Background(), &domain.TrackPoint{DeviceID: "phone-1", Position: domain.Position{Lat: 91}})
	if !errors.Is(err, domain.ErrInvalidLatitude) {
		t.Fatalf("expected ErrInvalidLatitude, got %v", err)
	}
}

func TestRecord_RepoError(t *testing.T) {
	repo := &mockTrackRepo{
		insertFn: func(context.Context, *domain.TrackPoint) error {
			return errors.New("db error")
		},
	}

	svc := NewTrackService(repo)
	if err := svc.Record(context.Background(), &domain.TrackPoint{DeviceID: "X"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTrackGetLatest_Success(t *testing.T) {
	repo := &mockTrackRepo{
		getLatestFn: func(_ context.Context, deviceID string) (*domain.TrackPoint, error) {
			return &domain.TrackPoint{DeviceID: deviceID, Position: domain.Position{Lat: -6.2088, Lon: 106.8456}}, nil
		},
	}

	svc := NewTrackService(repo)
	pt, err := svc.GetLatest(context.Background(), "phone-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt.DeviceID != "phone-1" {
		t.Errorf("expected phone-1, got %s", pt.DeviceID)
	}
}

func TestTrackGetHistory(t *testing.T) {
	start := time.Unix(1715000000, 0)
	end := time.Unix(1715009999, 0)

	tests := []struct {
		name    string
		query   domain.TrackQuery
		wantErr error
		wantLen int
	}{
		{"ordered range", domain.TrackQuery{DeviceID: "phone-1", Start: start, End: end}, nil, 2},
		{"single instant", domain.TrackQuery{DeviceID: "phone-1", Start: start, End: start}, nil, 2},
		{"reversed range", domain.TrackQuery{DeviceID: "phone-1", Start: end, End: start}, domain.ErrInvalidTimeRange, 0},
	}

	repo := &mockTrackRepo{
		getHistoryFn: func(_ context.Context, q *domain.TrackQuery) ([]domain.TrackPoint, error) {
			return []domain.TrackPoint{{DeviceID: q.DeviceID}, {DeviceID: q.DeviceID}}, nil
		},
	}
	svc := NewTrackService(repo)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.GetHistory(context.Background(), &tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(results) != tt.wantLen {
				t.Errorf("expected %d results, got %d", tt.wantLen, len(results))
			}
		})
	}
}

func TestGetDevices_Success(t *testing.T) {
	repo := &mockTrackRepo{
		getDevicesFn: func(context.Context) ([]domain.Device, error) {
			return []domain.Device{{DeviceID: "phone-1"}, {DeviceID: "phone-2"}}, nil
		},
	}

	svc := NewTrackService(repo)
	devices, err := svc.GetDevices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
}
