// Package services отправляет почтовые уведомления об истечении подписок.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/agent-dashboard/internal/lib/sl"
	smtplib "github.com/magabrotheeeer/agent-dashboard/internal/lib/smtp"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// Transport описывает подключение к SMTP серверу.
type Transport interface {
	Connect() (smtplib.Client, error)
	GetSMTPUser() string
}

// SenderService формирует и отправляет письма по сообщениям из очереди.
type SenderService struct {
	transport Transport
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport Transport) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendExpiredSubscriptionNotice отправляет пользователю письмо о том,
// что его подписка истекла. body — JSON models.ExpiredSubscriptionInfo
// из очереди notifications.expired.
func (s *SenderService) SendExpiredSubscriptionNotice(body []byte) error {
	var message models.ExpiredSubscriptionInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Ваша подписка на Agent Dashboard истекла"
	bodyText := fmt.Sprintf(`Здравствуйте!

Срок действия вашей подписки (план %s) истек %s.
Создание агентов недоступно до оформления новой подписки.`,
		message.Plan, message.EndDate.Format("02.01.2006"))

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	writer, err := client.Data()
	if err != nil {
		s.log.Error("failed to open DATA", sl.Err(err))
		return err
	}
	if _, err = writer.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write message body", sl.Err(err))
		return err
	}
	if err = writer.Close(); err != nil {
		s.log.Error("failed to close message body", sl.Err(err))
		return err
	}
	return client.Quit()
}
