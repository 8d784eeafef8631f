package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// CreateAgent вставляет агента вместе со списком инструментов, атомарно
// проверяя квоту владельца: строка пользователя блокируется (FOR UPDATE),
// агенты пересчитываются и вставка выполняется только под квотой. Два
// конкурентных создания для одного пользователя сериализуются на блокировке.
func (s *Storage) CreateAgent(ctx context.Context, agent models.Agent, quota int) (*models.Agent, error) {
	const op = "storage.CreateAgent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedUID string
	err = tx.QueryRowContext(ctx,
		`SELECT uid FROM users WHERE uid = $1 FOR UPDATE`, agent.UserUID).Scan(&lockedUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents WHERE user_uid = $1`, agent.UserUID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if count >= quota {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrQuotaExceeded)
	}

	query := `INSERT INTO agents (id, user_uid, name, objective, status, progress)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING created_at, updated_at`
	if err = tx.QueryRowContext(ctx, query,
		agent.ID, agent.UserUID, agent.Name, agent.Objective, agent.Status,
		agent.Progress).Scan(&agent.CreatedAt, &agent.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = replaceAgentTools(ctx, tx, agent.ID, agent.ActiveTools); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &agent, nil
}

// ListAgents возвращает агентов пользователя в порядке создания.
func (s *Storage) ListAgents(ctx context.Context, userUID string) ([]*models.Agent, error) {
	const op = "storage.ListAgents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, objective, status, current_task, progress,
			      created_at, updated_at
			  FROM agents
			  WHERE user_uid = $1
			  ORDER BY created_at, id`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, agent)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, agent := range result {
		if agent.ActiveTools, err = s.listAgentTools(ctx, agent.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return result, nil
}

// GetAgent возвращает агента пользователя вместе со списком инструментов
// и историей. Чужой или отсутствующий агент — errs.ErrAgentNotFound.
func (s *Storage) GetAgent(ctx context.Context, userUID, agentID string) (*models.Agent, error) {
	const op = "storage.GetAgent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, objective, status, current_task, progress,
			      created_at, updated_at
			  FROM agents
			  WHERE id = $1 AND user_uid = $2`
	row := s.DB.QueryRowContext(ctx, query, agentID, userUID)
	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrAgentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if agent.ActiveTools, err = s.listAgentTools(ctx, agent.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if agent.History, err = s.ListHistory(ctx, agent.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return agent, nil
}

// UpdateAgent применяет частичное обновление к агенту пользователя.
// Проверка владения выполняется условием WHERE до какой-либо записи:
// обновление чужого агента затрагивает ноль строк и неотличимо от
// отсутствующего.
func (s *Storage) UpdateAgent(ctx context.Context, userUID, agentID string, patch models.AgentPatch) (*models.Agent, error) {
	const op = "storage.UpdateAgent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE agents
			  SET name = COALESCE($3, name),
			      objective = COALESCE($4, objective),
			      status = COALESCE($5, status),
			      current_task = COALESCE($6, current_task),
			      updated_at = now()
			  WHERE id = $1 AND user_uid = $2`
	result, err := tx.ExecContext(ctx, query, agentID, userUID,
		patch.Name, patch.Objective, patch.Status, patch.CurrentTask)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrAgentNotFound)
	}

	if patch.ActiveTools != nil {
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM agent_tools WHERE agent_id = $1`, agentID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err = replaceAgentTools(ctx, tx, agentID, patch.ActiveTools); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetAgent(ctx, userUID, agentID)
}

// UpdateAgentRun сохраняет состояние агента между шагами выполнения задачи.
// Вызывается только движком выполнения после проверки владения.
func (s *Storage) UpdateAgentRun(ctx context.Context, agentID, status string, currentTask *string, progress int) error {
	const op = "storage.UpdateAgentRun"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE agents
			  SET status = $2, current_task = $3, progress = $4, updated_at = now()
			  WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, agentID, status, currentTask, progress)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrAgentNotFound)
	}
	return nil
}

// DeleteAgent удаляет агента пользователя; история и список инструментов
// удаляются каскадно. Чужой агент — errs.ErrAgentNotFound.
func (s *Storage) DeleteAgent(ctx context.Context, userUID, agentID string) error {
	const op = "storage.DeleteAgent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM agents WHERE id = $1 AND user_uid = $2`
	result, err := s.DB.ExecContext(ctx, query, agentID, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrAgentNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	agent := &models.Agent{}
	var currentTask sql.NullString
	if err := row.Scan(&agent.ID, &agent.UserUID, &agent.Name, &agent.Objective,
		&agent.Status, &currentTask, &agent.Progress,
		&agent.CreatedAt, &agent.UpdatedAt); err != nil {
		return nil, err
	}
	if currentTask.Valid {
		agent.CurrentTask = &currentTask.String
	}
	return agent, nil
}

func (s *Storage) listAgentTools(ctx context.Context, agentID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT tool_name FROM agent_tools WHERE agent_id = $1 ORDER BY position`, agentID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	tools := []string{}
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		tools = append(tools, name)
	}
	return tools, rows.Err()
}

func replaceAgentTools(ctx context.Context, tx *sql.Tx, agentID string, tools []string) error {
	for i, name := range tools {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO agent_tools (agent_id, position, tool_name) VALUES ($1, $2, $3)`,
			agentID, i, name); err != nil {
			return err
		}
	}
	return nil
}
