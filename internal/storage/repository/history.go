package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// AppendHistory добавляет запись истории агента. Записи не изменяются
// и не удаляются по отдельности.
func (s *Storage) AppendHistory(ctx context.Context, entry models.HistoryEntry) (int64, error) {
	const op = "storage.AppendHistory"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO history_entries (agent_id, action, result, tool_used)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		entry.AgentID, entry.Action, entry.Result, entry.ToolUsed).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListHistory возвращает историю агента в порядке добавления.
func (s *Storage) ListHistory(ctx context.Context, agentID string) ([]models.HistoryEntry, error) {
	const op = "storage.ListHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, agent_id, action, result, tool_used, created_at
			  FROM history_entries
			  WHERE agent_id = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		if err = rows.Scan(&entry.ID, &entry.AgentID, &entry.Action,
			&entry.Result, &entry.ToolUsed, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
