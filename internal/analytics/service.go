package analytics

import (
	"context"

	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/pkg/api"
)

const (
	DefaultDays = 7
	MaxDays     = 90
)

type Service interface {
	GetUsageOverview(ctx context.Context, days int) (*api.UsageOverview, error)
}

type service struct {
	repo store.Repository
}

func NewService(repo store.Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) GetUsageOverview(ctx context.Context, days int) (*api.UsageOverview, error) {
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	stats, err := s.repo.Calls().GetDailyStats(ctx, days)
	if err != nil {
		return nil, err
	}

	out := &api.UsageOverview{Days: days, Daily: make([]api.DailyUsage, len(stats))}
	for i, st := range stats {
		out.Daily[i] = api.DailyUsage{
			Date:           st.Date,
			TotalRequests:  st.TotalRequests,
			FailedRequests: st.FailedRequests,
			AverageLatency: st.AvgLatency,
		}
	}
	return out, nil
}
