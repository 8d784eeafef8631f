package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// CreateSubscription вставляет новую подписку и в той же транзакции
// перенаправляет users.current_subscription_id на созданную запись.
// Предыдущие подписки пользователя сохраняются как исторические.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
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

	query := `INSERT INTO subscriptions (user_uid, plan, status, start_date, end_date, max_agents)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, created_at`
	if err = tx.QueryRowContext(ctx, query,
		sub.UserUID, sub.Plan, sub.Status, sub.StartDate, sub.EndDate,
		sub.MaxAgents).Scan(&sub.ID, &sub.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET current_subscription_id = $1 WHERE uid = $2`,
		sub.ID, sub.UserUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrUserNotFound)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// GetCurrentSubscription возвращает текущую подписку пользователя
// либо errs.ErrNoSubscription, если ссылка не установлена.
func (s *Storage) GetCurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetCurrentSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT sub.id, sub.user_uid, sub.plan, sub.status, sub.start_date,
			      sub.end_date, sub.max_agents, sub.created_at
			  FROM users u
			  JOIN subscriptions sub ON sub.id = u.current_subscription_id
			  WHERE u.uid = $1`
	var sub models.Subscription
	row := s.DB.QueryRowContext(ctx, query, userUID)
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Plan, &sub.Status,
		&sub.StartDate, &sub.EndDate, &sub.MaxAgents, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNoSubscription)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// MarkExpiredDue помечает истекшими активные подписки, чей срок вышел,
// и возвращает данные владельцев для отправки уведомлений.
func (s *Storage) MarkExpiredDue(ctx context.Context) ([]*models.ExpiredSubscriptionInfo, error) {
	const op = "storage.MarkExpiredDue"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions sub
			  SET status = 'expired'
			  FROM users u
			  WHERE sub.user_uid = u.uid
			      AND sub.status = 'active'
			      AND sub.end_date < now()
			  RETURNING u.email, sub.plan, sub.end_date`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiredSubscriptionInfo
	for rows.Next() {
		var info models.ExpiredSubscriptionInfo
		if err = rows.Scan(&info.Email, &info.Plan, &info.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &info)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
