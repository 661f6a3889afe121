package services

import (
	"context"

	"go.uber.org/zap"

	"collegeevents/logger"
	"collegeevents/models"
	"collegeevents/utils"
)

type ClubService struct {
	clubs models.ClubRepository
	cache *utils.CacheInvalidator
}

func NewClubService(clubs models.ClubRepository, cache *utils.CacheInvalidator) *ClubService {
	return &ClubService{clubs: clubs, cache: cache}
}

// ActiveByCategory feeds the claim dropdown: unclaimed clubs per category.
func (s *ClubService) ActiveByCategory(ctx context.Context) (map[string][]models.ClubOption, error) {
	clubs, err := s.clubs.ListActive(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to fetch clubs", err)
	}
	return models.GroupByCategory(clubs), nil
}

func (s *ClubService) All(ctx context.Context) ([]models.Club, error) {
	clubs, err := s.clubs.ListAll(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to fetch clubs", err)
	}
	if clubs == nil {
		clubs = []models.Club{}
	}
	return clubs, nil
}

// Seed replaces the registry with the built-in catalog, every club unclaimed.
func (s *ClubService) Seed(ctx context.Context) (int, error) {
	clubs := models.DefaultClubs()
	if err := s.clubs.ReplaceAll(ctx, clubs); err != nil {
		return 0, err
	}
	s.cache.PurgeClubs(ctx)
	logger.Log.Info("club catalog seeded", zap.Int("clubs", len(clubs)))
	return len(clubs), nil
}
