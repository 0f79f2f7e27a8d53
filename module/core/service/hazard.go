package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/repository/database"
)

// HazardService holds the hazard snapshot the tracker evaluates against.
// A snapshot is never modified once installed, only swapped.
type HazardService struct {
	repo database.HazardRepository
	log  *slog.Logger

	mu       sync.RWMutex
	set      domain.HazardSet
	loadedAt time.Time
}

func NewHazardService(repo database.HazardRepository, log *slog.Logger) *HazardService {
	return &HazardService{repo: repo, log: log, set: domain.HazardSet{}}
}

// Load replaces the snapshot with the repository contents. On error the
// current snapshot is kept.
func (s *HazardService) Load(ctx context.Context) error {
	hazards, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list hazards: %w", err)
	}
	if err := s.Replace(hazards); err != nil {
		return err
	}
	s.log.Info("hazard snapshot loaded", "count", len(hazards))
	return nil
}

func (s *HazardService) Replace(hazards []domain.Hazard) error {
	set, err := domain.NewHazardSet(hazards)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = set
	s.loadedAt = time.Now()
	return nil
}

func (s *HazardService) Snapshot() domain.HazardSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

func (s *HazardService) List() []domain.Hazard {
	return s.Snapshot().List()
}

func (s *HazardService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
