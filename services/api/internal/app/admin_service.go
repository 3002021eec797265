package app

import (
	"context"

	"github.com/V1nSky/key-bot/services/api/internal/domain"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

type AdminRepository interface {
	GetStats(ctx context.Context) (domain.Stats, error)
	ListActivity(ctx context.Context, limit int) ([]domain.Activity, error)
}

type AdminService struct {
	repo AdminRepository
	options
}

func NewAdminService(repo AdminRepository, opts ...Option) *AdminService {
	return &AdminService{
		repo:    repo,
		options: buildOptions(opts),
	}
}

// Stats reports users, confirmed sales and revenue, free keys and orders
// awaiting review.
func (s *AdminService) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	s.metrics.SetAvailableKeys(stats.AvailableKeys)
	return stats, nil
}

// RecentActivity returns the newest log entries. Non-positive limits use the
// default; large limits are capped.
func (s *AdminService) RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	return s.repo.ListActivity(ctx, limit)
}
