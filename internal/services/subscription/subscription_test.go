package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) GetCurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) MarkExpiredDue(ctx context.Context) ([]*models.ExpiredSubscriptionInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ExpiredSubscriptionInfo), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(repo *RepoMock, cache *CacheMock, now time.Time) *SubscriptionService {
	svc := NewSubscriptionService(repo, cache, newNoopLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestSubscriptionService_Create(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		plan          models.Plan
		wantMaxAgents int
		wantDays      int
		wantErr       error
	}{
		{name: "trial plan", plan: models.PlanTrial, wantMaxAgents: 2, wantDays: 14},
		{name: "monthly plan", plan: models.PlanMonthly, wantMaxAgents: 5, wantDays: 30},
		{name: "yearly plan", plan: models.PlanYearly, wantMaxAgents: 10, wantDays: 365},
		{name: "unknown plan", plan: models.Plan("weekly"), wantErr: errs.ErrInvalidPlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := newService(repo, cache, now)

			if tt.wantErr == nil {
				repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
					return s.Plan == tt.plan &&
						s.Status == models.SubscriptionActive &&
						s.MaxAgents == tt.wantMaxAgents &&
						s.EndDate.Equal(s.StartDate.AddDate(0, 0, tt.wantDays))
				})).Return(&models.Subscription{ID: 1, Plan: tt.plan, MaxAgents: tt.wantMaxAgents}, nil).Once()
				cache.On("Invalidate", "subscription:current:user-1").Return(nil).Once()
			}

			got, err := svc.Create(context.Background(), "user-1", tt.plan)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantMaxAgents, got.MaxAgents)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_IsEntitled(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		sub     *models.Subscription
		repoErr error
		want    bool
		wantErr bool
	}{
		{
			name: "active subscription in term",
			sub:  &models.Subscription{Status: models.SubscriptionActive, EndDate: now.Add(24 * time.Hour)},
			want: true,
		},
		{
			name: "active subscription past end date",
			sub:  &models.Subscription{Status: models.SubscriptionActive, EndDate: now.Add(-time.Minute)},
			want: false,
		},
		{
			name: "expired status",
			sub:  &models.Subscription{Status: models.SubscriptionExpired, EndDate: now.Add(24 * time.Hour)},
			want: false,
		},
		{
			name:    "no subscription",
			repoErr: errs.ErrNoSubscription,
			want:    false,
		},
		{
			name:    "storage error",
			repoErr: errors.New("db down"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := newService(repo, cache, now)

			cache.On("Get", "subscription:current:user-1", mock.Anything).Return(false, nil).Once()
			if tt.repoErr != nil {
				repo.On("GetCurrentSubscription", mock.Anything, "user-1").Return(nil, tt.repoErr).Once()
			} else {
				repo.On("GetCurrentSubscription", mock.Anything, "user-1").Return(tt.sub, nil).Once()
				cache.On("Set", "subscription:current:user-1", tt.sub, time.Hour).Return(nil).Once()
			}

			got, err := svc.IsEntitled(context.Background(), "user-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_QuotaFor(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("entitled user gets plan quota", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache, now)

		sub := &models.Subscription{
			Status:    models.SubscriptionActive,
			EndDate:   now.Add(24 * time.Hour),
			MaxAgents: 5,
		}
		cache.On("Get", "subscription:current:user-1", mock.Anything).Return(false, nil).Twice()
		repo.On("GetCurrentSubscription", mock.Anything, "user-1").Return(sub, nil).Twice()
		cache.On("Set", "subscription:current:user-1", sub, time.Hour).Return(nil).Twice()

		quota, err := svc.QuotaFor(context.Background(), "user-1")
		assert.NoError(t, err)
		assert.Equal(t, 5, quota)
	})

	t.Run("user without subscription gets zero quota", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := newService(repo, cache, now)

		cache.On("Get", "subscription:current:user-1", mock.Anything).Return(false, nil).Once()
		repo.On("GetCurrentSubscription", mock.Anything, "user-1").Return(nil, errs.ErrNoSubscription).Once()

		quota, err := svc.QuotaFor(context.Background(), "user-1")
		assert.NoError(t, err)
		assert.Equal(t, 0, quota)
	})
}

func TestSubscriptionService_ExpireDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newService(repo, cache, now)

	expired := []*models.ExpiredSubscriptionInfo{
		{Email: "a@b.com", Plan: models.PlanTrial, EndDate: now.Add(-time.Hour)},
	}
	repo.On("MarkExpiredDue", mock.Anything).Return(expired, nil).Once()

	got, err := svc.ExpireDue(context.Background())
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "a@b.com", got[0].Email)
	repo.AssertExpectations(t)
}
