package serviceevent

import (
	"context"
	"log/slog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetServiceEvent(ctx context.Context, id int64) (*ServiceEvent, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRecent clamps limit to [1, 200], defaulting to 50.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*ServiceEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	events, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list service events", "error", err)
		return nil, err
	}
	return events, nil
}
