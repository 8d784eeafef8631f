// Package services содержит бизнес-логику реестра агентов: создание с
// проверкой подписки и квоты, выборку, обновление и удаление. Проверки
// владения и квоты выполняются на этом уровне, а не на HTTP-границе,
// поэтому любой вызывающий получает одинаковые гарантии.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// AgentRepository определяет методы для работы с агентами в хранилище.
type AgentRepository interface {
	// CreateAgent атомарно проверяет квоту владельца и вставляет агента.
	CreateAgent(ctx context.Context, agent models.Agent, quota int) (*models.Agent, error)
	// ListAgents возвращает агентов пользователя в порядке создания.
	ListAgents(ctx context.Context, userUID string) ([]*models.Agent, error)
	// GetAgent возвращает агента пользователя с инструментами и историей.
	GetAgent(ctx context.Context, userUID, agentID string) (*models.Agent, error)
	// UpdateAgent применяет частичное обновление к агенту пользователя.
	UpdateAgent(ctx context.Context, userUID, agentID string, patch models.AgentPatch) (*models.Agent, error)
	// DeleteAgent удаляет агента пользователя вместе с историей.
	DeleteAgent(ctx context.Context, userUID, agentID string) error
}

// Entitlements описывает проверки подписки, которыми гейтится создание агентов.
type Entitlements interface {
	IsEntitled(ctx context.Context, userUID string) (bool, error)
	QuotaFor(ctx context.Context, userUID string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// AgentService реализует реестр агентов.
type AgentService struct {
	repo   AgentRepository
	ledger Entitlements
	cache  Cache
	log    *slog.Logger
}

// NewAgentService создает новый экземпляр AgentService.
func NewAgentService(repo AgentRepository, ledger Entitlements, cache Cache, log *slog.Logger) *AgentService {
	return &AgentService{
		repo:   repo,
		ledger: ledger,
		cache:  cache,
		log:    log,
	}
}

func cacheKeyAgent(agentID string) string {
	return fmt.Sprintf("agent:%s", agentID)
}

// Create создает агента: проверяет длины полей, право подписки и квоту.
// Новый агент получает статус idle, нулевой прогресс и пустую историю.
func (s *AgentService) Create(ctx context.Context, userUID, name, objective string, tools []string) (*models.Agent, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateObjective(objective); err != nil {
		return nil, err
	}

	entitled, err := s.ledger.IsEntitled(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if !entitled {
		return nil, errs.ErrSubscriptionRequired
	}
	quota, err := s.ledger.QuotaFor(ctx, userUID)
	if err != nil {
		return nil, err
	}

	agent := models.Agent{
		ID:          uuid.NewString(),
		UserUID:     userUID,
		Name:        name,
		Objective:   objective,
		Status:      models.AgentIdle,
		Progress:    0,
		ActiveTools: tools,
		History:     []models.HistoryEntry{},
	}
	created, err := s.repo.CreateAgent(ctx, agent, quota)
	if err != nil {
		return nil, err
	}

	s.log.Info("created new agent",
		slog.String("agent_id", created.ID), slog.String("user_uid", userUID))
	return created, nil
}

// List возвращает всех агентов пользователя.
func (s *AgentService) List(ctx context.Context, userUID string) ([]*models.Agent, error) {
	return s.repo.ListAgents(ctx, userUID)
}

// Get возвращает агента пользователя, используя кеш. Ключ кеша включает
// только id агента, поэтому в кеш попадает запись вместе с владельцем
// и отдается только после сверки владельца.
func (s *AgentService) Get(ctx context.Context, userUID, agentID string) (*models.Agent, error) {
	var cached *models.Agent
	key := cacheKeyAgent(agentID)
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read cached agent", slog.String("key", key), slog.Any("err", err))
	}
	if found && cached != nil {
		if cached.UserUID != userUID {
			return nil, errs.ErrAgentNotFound
		}
		return cached, nil
	}

	agent, err := s.repo.GetAgent(ctx, userUID, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, agent, time.Hour); err != nil {
		s.log.Warn("failed to cache agent", slog.String("key", key), slog.Any("err", err))
	}
	return agent, nil
}

// Update применяет частичное обновление к агенту пользователя.
// Владение проверяется в хранилище до какой-либо записи.
func (s *AgentService) Update(ctx context.Context, userUID, agentID string, patch models.AgentPatch) (*models.Agent, error) {
	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Objective != nil {
		if err := validateObjective(*patch.Objective); err != nil {
			return nil, err
		}
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.AgentIdle, models.AgentActive, models.AgentPaused, models.AgentCompleted:
		default:
			return nil, errs.NewValidation("status", "unknown status")
		}
	}
	if patch.CurrentTask != nil && utf8.RuneCountInString(*patch.CurrentTask) > models.AgentTaskMaxLen {
		return nil, errs.NewValidation("current_task",
			fmt.Sprintf("must not exceed %d characters", models.AgentTaskMaxLen))
	}

	updated, err := s.repo.UpdateAgent(ctx, userUID, agentID, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(agentID)
	return updated, nil
}

// Delete удаляет агента пользователя вместе с историей.
func (s *AgentService) Delete(ctx context.Context, userUID, agentID string) error {
	if err := s.repo.DeleteAgent(ctx, userUID, agentID); err != nil {
		return err
	}
	s.invalidate(agentID)
	s.log.Info("deleted agent", slog.String("agent_id", agentID))
	return nil
}

func (s *AgentService) invalidate(agentID string) {
	key := cacheKeyAgent(agentID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cached agent", slog.String("key", key), slog.Any("err", err))
	}
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < models.AgentNameMinLen || n > models.AgentNameMaxLen {
		return errs.NewValidation("name",
			fmt.Sprintf("must be between %d and %d characters", models.AgentNameMinLen, models.AgentNameMaxLen))
	}
	return nil
}

func validateObjective(objective string) error {
	if utf8.RuneCountInString(objective) < models.AgentObjectiveMin {
		return errs.NewValidation("objective",
			fmt.Sprintf("must be at least %d characters", models.AgentObjectiveMin))
	}
	return nil
}
