// Package services содержит периодическую задачу, помечающую истекшие
// подписки и публикующую уведомления для воркера отправки.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
	"github.com/magabrotheeeer/agent-dashboard/internal/rabbitmq"
)

// Ledger описывает операцию учета подписок, которой пользуется воркер.
type Ledger interface {
	ExpireDue(ctx context.Context) ([]*models.ExpiredSubscriptionInfo, error)
}

// ExpirerService периодически помечает истекшие подписки.
type ExpirerService struct {
	ledger Ledger
	log    *slog.Logger
}

// NewExpirerService создает новый экземпляр ExpirerService.
func NewExpirerService(ledger Ledger, log *slog.Logger) *ExpirerService {
	return &ExpirerService{
		ledger: ledger,
		log:    log,
	}
}

// Run выполняет проход сразу и далее раз в period, пока контекст жив.
func (s *ExpirerService) Run(ctx context.Context, channel *amqp.Channel, period time.Duration) {
	s.runOnce(ctx, channel)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, channel)
		}
	}
}

func (s *ExpirerService) runOnce(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting pass to expire due subscriptions")
	expired, err := s.ledger.ExpireDue(ctx)
	if err != nil {
		s.log.Error("failed to expire subscriptions", sl.Err(err))
		return
	}
	if len(expired) == 0 {
		s.log.Info("no due subscriptions found")
		return
	}
	s.log.Info("marked subscriptions expired", slog.Int("count", len(expired)))
	for _, info := range expired {
		err = rabbitmq.PublishMessage(channel, rabbitmq.NotificationsExchange, "expired", info)
		if err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
