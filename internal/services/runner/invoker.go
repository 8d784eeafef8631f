package services

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// ToolInvoker абстрагирует вызов одного инструмента во время выполнения задачи.
type ToolInvoker interface {
	// Invoke выполняет инструмент tool над задачей task и возвращает
	// текстовый результат для записи в историю.
	Invoke(ctx context.Context, tool *models.Tool, task string) (string, error)
}

// SimulatedInvoker имитация выполнения инструмента: выдерживает паузу и
// возвращает шаблонный результат. Пауза прерывается отменой контекста.
type SimulatedInvoker struct {
	Delay time.Duration
}

// NewSimulatedInvoker создает SimulatedInvoker с паузой delay на вызов.
func NewSimulatedInvoker(delay time.Duration) *SimulatedInvoker {
	return &SimulatedInvoker{Delay: delay}
}

// Invoke ожидает Delay и возвращает строку-результат.
func (i *SimulatedInvoker) Invoke(ctx context.Context, tool *models.Tool, task string) (string, error) {
	const op = "runner.SimulatedInvoker.Invoke"
	timer := time.NewTimer(i.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	case <-timer.C:
	}
	return fmt.Sprintf("tool %s processed task %q", tool.Name, task), nil
}
