package models

import "time"

// Статусы агента. Агент создается в статусе idle, движок выполнения
// переводит его в active и далее в completed либо обратно в idle при сбое.
// Статус paused выставляется только явным обновлением через API.
const (
	AgentIdle      = "idle"
	AgentActive    = "active"
	AgentPaused    = "paused"
	AgentCompleted = "completed"
)

// Ограничения на поля агента.
const (
	AgentNameMinLen    = 3
	AgentNameMaxLen    = 50
	AgentObjectiveMin  = 10
	AgentTaskMaxLen    = 100
	AgentProgressLimit = 100
)

// Agent представляет агента пользователя: цель, статус, прогресс
// и упорядоченный список назначенных инструментов.
type Agent struct {
	ID          string         `json:"id"`
	UserUID     string         `json:"user_uid"`
	Name        string         `json:"name"`
	Objective   string         `json:"objective"`
	Status      string         `json:"status"`
	CurrentTask *string        `json:"current_task,omitempty"`
	Progress    int            `json:"progress"`
	ActiveTools []string       `json:"active_tools"`
	History     []HistoryEntry `json:"history,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// HistoryEntry неизменяемая запись об одном вызове инструмента во время
// выполнения задачи. Записи только добавляются и удаляются лишь вместе с агентом.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	ToolUsed  string    `json:"tool_used"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentPatch частичное обновление агента. nil-поля не изменяются.
type AgentPatch struct {
	Name        *string  `json:"name,omitempty"`
	Objective   *string  `json:"objective,omitempty"`
	Status      *string  `json:"status,omitempty"`
	CurrentTask *string  `json:"current_task,omitempty"`
	ActiveTools []string `json:"active_tools,omitempty"`
}

// RunResult итог одного запуска задачи агента.
// FailureReason заполняется, если выполнение прервалось: агент при этом
// возвращен в idle, а уже записанные шаги истории сохранены.
type RunResult struct {
	AgentID       string `json:"agent_id"`
	Task          string `json:"task"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	StepsDone     int    `json:"steps_done"`
	ToolsResolved int    `json:"tools_resolved"`
	FailureReason string `json:"failure_reason,omitempty"`
}
