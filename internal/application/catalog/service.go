package catalog

import (
	"context"

	"go.uber.org/zap"
)

// CategorySource lists product categories
type CategorySource interface {
	Categories(ctx context.Context) ([]string, error)
}

// Service serves the category menu of the navigation chrome. It holds no
// state and never touches cart or checkout.
type Service struct {
	source CategorySource
	logger *zap.Logger
}

// NewService creates a new catalog service
func NewService(source CategorySource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, logger: logger}
}

// Categories returns the category names in backend order
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	names, err := s.source.Categories(ctx)
	if err != nil {
		s.logger.Warn("Failed to load categories", zap.Error(err))
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
