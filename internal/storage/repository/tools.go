package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// ResolveActiveTools сопоставляет имена из списка агента с активными
// инструментами, сохраняя порядок назначения. Отсутствующие и
// деактивированные инструменты молча пропускаются: в списке агента они
// остаются, но в запуске не участвуют.
func (s *Storage) ResolveActiveTools(ctx context.Context, names []string) ([]*models.Tool, error) {
	const op = "storage.ResolveActiveTools"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	resolved := make([]*models.Tool, 0, len(names))
	for _, name := range names {
		tool, err := s.getActiveTool(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if tool != nil {
			resolved = append(resolved, tool)
		}
	}
	return resolved, nil
}

// ListTools возвращает каталог инструментов.
func (s *Storage) ListTools(ctx context.Context) ([]*models.Tool, error) {
	const op = "storage.ListTools"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT name, description, category, params, is_active
			  FROM tools
			  ORDER BY name`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Tool
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, tool)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *Storage) getActiveTool(ctx context.Context, name string) (*models.Tool, error) {
	query := `SELECT name, description, category, params, is_active
			  FROM tools
			  WHERE name = $1 AND is_active = TRUE`
	tool, err := scanTool(s.DB.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tool, nil
}

func scanTool(row rowScanner) (*models.Tool, error) {
	tool := &models.Tool{}
	var params []byte
	if err := row.Scan(&tool.Name, &tool.Description, &tool.Category,
		&params, &tool.IsActive); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &tool.Params); err != nil {
		return nil, err
	}
	return tool, nil
}
