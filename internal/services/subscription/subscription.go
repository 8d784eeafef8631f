// Package services содержит бизнес-логику учета подписок: создание,
// проверку права доступа и квоту на агентов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	// CreateSubscription сохраняет подписку и перенаправляет на нее
	// ссылку текущей подписки пользователя.
	CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	// GetCurrentSubscription возвращает текущую подписку пользователя.
	GetCurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	// MarkExpiredDue помечает истекшие активные подписки.
	MarkExpiredDue(ctx context.Context) ([]*models.ExpiredSubscriptionInfo, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// SubscriptionService реализует учет подписок. Право доступа (entitlement)
// вычисляется в момент вызова из статуса и даты окончания, отдельным полем
// не хранится.
type SubscriptionService struct {
	repo  SubscriptionRepository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, cache Cache, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

func cacheKeyCurrent(userUID string) string {
	return fmt.Sprintf("subscription:current:%s", userUID)
}

// Create создает подписку по плану и делает ее текущей для пользователя.
// Дата окончания и квота на агентов определяются планом.
func (s *SubscriptionService) Create(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error) {
	if !plan.Valid() {
		return nil, errs.ErrInvalidPlan
	}

	start := s.now().UTC()
	sub := models.Subscription{
		UserUID:   userUID,
		Plan:      plan,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   start.Add(plan.Duration()),
		MaxAgents: plan.MaxAgents(),
	}
	created, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.log.Info("created new subscription",
		slog.Int64("id", created.ID), slog.String("plan", string(plan)))

	key := cacheKeyCurrent(userUID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cached subscription", slog.String("key", key), slog.Any("err", err))
	}
	return created, nil
}

// Current возвращает текущую подписку пользователя, используя кеш.
func (s *SubscriptionService) Current(ctx context.Context, userUID string) (*models.Subscription, error) {
	var cached *models.Subscription
	key := cacheKeyCurrent(userUID)
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read cached subscription", slog.String("key", key), slog.Any("err", err))
	}
	if found && cached != nil {
		return cached, nil
	}

	sub, err := s.repo.GetCurrentSubscription(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, sub, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), slog.Any("err", err))
	}
	return sub, nil
}

// IsEntitled сообщает, дает ли текущая подписка пользователя доступ:
// подписка существует, активна и срок не вышел.
func (s *SubscriptionService) IsEntitled(ctx context.Context, userUID string) (bool, error) {
	sub, err := s.Current(ctx, userUID)
	if err != nil {
		if errors.Is(err, errs.ErrNoSubscription) {
			return false, nil
		}
		return false, err
	}
	return sub.Status == models.SubscriptionActive && sub.EndDate.After(s.now()), nil
}

// QuotaFor возвращает квоту на агентов текущей подписки,
// 0 — если подписки нет или она не дает доступа.
func (s *SubscriptionService) QuotaFor(ctx context.Context, userUID string) (int, error) {
	entitled, err := s.IsEntitled(ctx, userUID)
	if err != nil {
		return 0, err
	}
	if !entitled {
		return 0, nil
	}
	sub, err := s.Current(ctx, userUID)
	if err != nil {
		return 0, err
	}
	return sub.MaxAgents, nil
}

// ExpireDue помечает истекшими все активные подписки с вышедшим сроком
// и возвращает данные владельцев для уведомлений.
func (s *SubscriptionService) ExpireDue(ctx context.Context) ([]*models.ExpiredSubscriptionInfo, error) {
	expired, err := s.repo.MarkExpiredDue(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range expired {
		// Кеш текущих подписок ключуется по uid, а MarkExpiredDue
		// возвращает email; записи доживут свой TTL, а IsEntitled
		// по дате окончания все равно даст false.
		s.log.Info("subscription expired",
			slog.String("email", info.Email), slog.String("plan", string(info.Plan)))
	}
	return expired, nil
}
