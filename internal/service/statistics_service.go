package service

import (
	"context"

	"pharmacy/internal/cache"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"

	"golang.org/x/sync/errgroup"
)

const dashboardTopN = 5

type DashboardService interface {
	Summary(ctx context.Context) (model.DashboardSummary, error)
}

type dashboardService struct {
	repo     repository.DashboardRepository
	cache    *cache.Cache
	settings Settings
}

func NewDashboardService(repo repository.DashboardRepository, c *cache.Cache, settings Settings) DashboardService {
	return &dashboardService{repo: repo, cache: c, settings: settings}
}

// Summary returns the rankings shown on the dashboard. Snapshots are cached
// until the next committed sale or order bumps the cache version.
func (s *dashboardService) Summary(ctx context.Context) (model.DashboardSummary, error) {
	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	var summary model.DashboardSummary
	key, err := s.cache.Key(ctx, "dashboard", "summary")
	if err != nil {
		return s.compute(ctx)
	}
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return model.DashboardSummary{}, storeError("load dashboard", err)
	}
	return summary, nil
}

func (s *dashboardService) compute(ctx context.Context) (model.DashboardSummary, error) {
	summary := model.DashboardSummary{GeneratedAt: s.settings.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.repo.TopSold(gctx, dashboardTopN, false)
		summary.MostSold = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.TopSold(gctx, dashboardTopN, true)
		summary.LeastSold = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.repo.MostExpensive(gctx, dashboardTopN)
		summary.MostExpensive = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return model.DashboardSummary{}, storeError("compute dashboard", err)
	}

	if summary.MostSold == nil {
		summary.MostSold = []model.MedicineRanking{}
	}
	if summary.LeastSold == nil {
		summary.LeastSold = []model.MedicineRanking{}
	}
	if summary.MostExpensive == nil {
		summary.MostExpensive = []model.MedicineRanking{}
	}
	return summary, nil
}
