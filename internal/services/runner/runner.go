// Package services реализует движок жизненного цикла агента: выполнение
// задачи как последовательности вызовов инструментов с накоплением
// прогресса и записью истории.
//
// Машина состояний: idle (начальное) -> active -> completed (терминальное);
// active -> idle при сбое. Статус paused выставляется только внешним
// обновлением и служит допустимой точкой старта запуска.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/metrics"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// AgentRunRepository определяет методы хранилища, которыми пользуется движок.
type AgentRunRepository interface {
	// GetAgent возвращает агента пользователя с инструментами и историей.
	GetAgent(ctx context.Context, userUID, agentID string) (*models.Agent, error)
	// UpdateAgentRun сохраняет статус, задачу и прогресс агента.
	UpdateAgentRun(ctx context.Context, agentID, status string, currentTask *string, progress int) error
	// AppendHistory добавляет запись истории.
	AppendHistory(ctx context.Context, entry models.HistoryEntry) (int64, error)
	// ResolveActiveTools сопоставляет имена с активными инструментами.
	ResolveActiveTools(ctx context.Context, names []string) ([]*models.Tool, error)
}

// Cache описывает инвалидацию кеша агентов.
type Cache interface {
	Invalidate(key string) error
}

// EventPublisher публикует события запусков в брокер сообщений.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// RunEvent событие завершения запуска задачи агента.
type RunEvent struct {
	AgentID   string `json:"agent_id"`
	UserUID   string `json:"user_uid"`
	Task      string `json:"task"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	StepsDone int    `json:"steps_done"`
	Failure   string `json:"failure,omitempty"`
}

// Ключи маршрутизации событий запусков.
const (
	RunCompletedKey = "run.completed"
	RunFailedKey    = "run.failed"
)

// RunnerService выполняет задачи агентов. Запуски одного агента
// взаимоисключаются в пределах процесса через мьютекс по id агента.
type RunnerService struct {
	repo    AgentRunRepository
	invoker ToolInvoker
	events  EventPublisher // nil допустим: события не публикуются
	cache   Cache
	log     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRunnerService создает новый экземпляр RunnerService.
func NewRunnerService(repo AgentRunRepository, invoker ToolInvoker, events EventPublisher, cache Cache, log *slog.Logger) *RunnerService {
	return &RunnerService{
		repo:    repo,
		invoker: invoker,
		events:  events,
		cache:   cache,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *RunnerService) lockFor(agentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[agentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[agentID] = lock
	}
	return lock
}

// ExecuteTask выполняет задачу task агентом agentID пользователя userUID.
//
// Сбой инструмента не является ошибкой операции: агент возвращается в idle,
// частичные прогресс и история сохраняются, а причина попадает в
// RunResult.FailureReason. Ошибка возвращается только при недоступности
// хранилища, неверном состоянии агента или невалидной задаче.
func (s *RunnerService) ExecuteTask(ctx context.Context, userUID, agentID, task string) (*models.RunResult, error) {
	if task == "" {
		return nil, errs.NewValidation("task", "is required")
	}
	if utf8.RuneCountInString(task) > models.AgentTaskMaxLen {
		return nil, errs.NewValidation("task",
			fmt.Sprintf("must not exceed %d characters", models.AgentTaskMaxLen))
	}

	lock := s.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	agent, err := s.repo.GetAgent(ctx, userUID, agentID)
	if err != nil {
		return nil, err
	}
	switch agent.Status {
	case models.AgentActive:
		return nil, errs.ErrAgentBusy
	case models.AgentCompleted:
		return nil, errs.ErrAgentCompleted
	}

	started := time.Now()
	log := s.log.With(slog.String("agent_id", agentID), slog.String("task", task))

	// idle|paused -> active
	if err := s.persist(ctx, agentID, models.AgentActive, &task, agent.Progress); err != nil {
		return nil, err
	}
	log.Info("agent started task")

	resolved, err := s.repo.ResolveActiveTools(ctx, agent.ActiveTools)
	if err != nil {
		return s.fail(ctx, agent, task, 0, err)
	}

	// Без инструментов делить прогресс не на что: задача завершается сразу.
	if len(resolved) == 0 {
		if err := s.persist(ctx, agentID, models.AgentCompleted, &task, models.AgentProgressLimit); err != nil {
			return nil, err
		}
		log.Info("task completed without tools")
		s.finish(RunCompletedKey, "completed", RunEvent{
			AgentID: agentID, UserUID: userUID, Task: task,
			Status: models.AgentCompleted, Progress: models.AgentProgressLimit,
		}, started)
		return &models.RunResult{
			AgentID:  agentID,
			Task:     task,
			Status:   models.AgentCompleted,
			Progress: models.AgentProgressLimit,
		}, nil
	}

	step := models.AgentProgressLimit / len(resolved)
	progress := agent.Progress
	for i, tool := range resolved {
		output, err := s.invoker.Invoke(ctx, tool, task)
		if err != nil {
			metrics.ToolInvocationsTotal.WithLabelValues(tool.Name, "failed").Inc()
			log.Error("tool invocation failed", slog.String("tool", tool.Name), sl.Err(err))
			return s.fail(ctx, agent, task, i, err)
		}
		metrics.ToolInvocationsTotal.WithLabelValues(tool.Name, "ok").Inc()

		if _, err := s.repo.AppendHistory(ctx, models.HistoryEntry{
			AgentID:  agentID,
			Action:   task,
			Result:   output,
			ToolUsed: tool.Name,
		}); err != nil {
			return s.fail(ctx, agent, task, i, err)
		}

		progress += step
		if progress > models.AgentProgressLimit {
			progress = models.AgentProgressLimit
		}
		if err := s.persist(ctx, agentID, models.AgentActive, &task, progress); err != nil {
			return nil, err
		}
		log.Info("tool step finished",
			slog.String("tool", tool.Name), slog.Int("progress", progress))
	}

	if err := s.persist(ctx, agentID, models.AgentCompleted, &task, models.AgentProgressLimit); err != nil {
		return nil, err
	}
	log.Info("task completed", slog.Int("steps", len(resolved)))
	s.finish(RunCompletedKey, "completed", RunEvent{
		AgentID: agentID, UserUID: userUID, Task: task,
		Status: models.AgentCompleted, Progress: models.AgentProgressLimit,
		StepsDone: len(resolved),
	}, started)

	return &models.RunResult{
		AgentID:       agentID,
		Task:          task,
		Status:        models.AgentCompleted,
		Progress:      models.AgentProgressLimit,
		StepsDone:     len(resolved),
		ToolsResolved: len(resolved),
	}, nil
}

// fail возвращает агента в idle, сохраняя задачу, частичный прогресс и
// уже записанную историю, и отдает причину сбоя в результате запуска.
func (s *RunnerService) fail(ctx context.Context, agent *models.Agent, task string, stepsDone int, cause error) (*models.RunResult, error) {
	current, err := s.repo.GetAgent(ctx, agent.UserUID, agent.ID)
	progress := agent.Progress
	if err == nil {
		progress = current.Progress
	}
	if err := s.persist(ctx, agent.ID, models.AgentIdle, &task, progress); err != nil {
		return nil, err
	}
	s.log.Warn("task failed, agent reverted to idle",
		slog.String("agent_id", agent.ID), sl.Err(cause))
	metrics.TaskRunsTotal.WithLabelValues("failed").Inc()
	s.publish(RunFailedKey, RunEvent{
		AgentID: agent.ID, UserUID: agent.UserUID, Task: task,
		Status: models.AgentIdle, Progress: progress,
		StepsDone: stepsDone, Failure: cause.Error(),
	})
	return &models.RunResult{
		AgentID:       agent.ID,
		Task:          task,
		Status:        models.AgentIdle,
		Progress:      progress,
		StepsDone:     stepsDone,
		FailureReason: cause.Error(),
	}, nil
}

func (s *RunnerService) persist(ctx context.Context, agentID, status string, currentTask *string, progress int) error {
	if err := s.repo.UpdateAgentRun(ctx, agentID, status, currentTask, progress); err != nil {
		return err
	}
	key := fmt.Sprintf("agent:%s", agentID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cached agent", slog.String("key", key), slog.Any("err", err))
	}
	return nil
}

func (s *RunnerService) finish(routingKey, outcome string, event RunEvent, started time.Time) {
	metrics.TaskRunsTotal.WithLabelValues(outcome).Inc()
	metrics.TaskRunDuration.Observe(time.Since(started).Seconds())
	s.publish(routingKey, event)
}

func (s *RunnerService) publish(routingKey string, event RunEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(routingKey, event); err != nil {
		s.log.Warn("failed to publish run event", sl.Err(err))
	}
}
