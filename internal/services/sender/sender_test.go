package services

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	smtplib "github.com/magabrotheeeer/agent-dashboard/internal/lib/smtp"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

type writeCloser struct{ bytes.Buffer }

func (w *writeCloser) Close() error { return nil }

type ClientMock struct{ mock.Mock }

func (m *ClientMock) Mail(from string) error { return m.Called(from).Error(0) }
func (m *ClientMock) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *ClientMock) Data() (io.WriteCloser, error) {
	args := m.Called()
	wc, _ := args.Get(0).(io.WriteCloser)
	return wc, args.Error(1)
}
func (m *ClientMock) Quit() error  { return m.Called().Error(0) }
func (m *ClientMock) Close() error { return m.Called().Error(0) }

type TransportMock struct{ mock.Mock }

func (m *TransportMock) Connect() (smtplib.Client, error) {
	args := m.Called()
	client, _ := args.Get(0).(smtplib.Client)
	return client, args.Error(1)
}
func (m *TransportMock) GetSMTPUser() string {
	return m.Called().String(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSenderService_SendExpiredSubscriptionNotice(t *testing.T) {
	body, err := json.Marshal(models.ExpiredSubscriptionInfo{
		Email:   "user@example.com",
		Plan:    models.PlanTrial,
		EndDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	t.Run("success send", func(t *testing.T) {
		client := new(ClientMock)
		transport := new(TransportMock)
		svc := NewSenderService(newNoopLogger(), transport)

		buf := &writeCloser{}
		transport.On("GetSMTPUser").Return("noreply@example.com")
		transport.On("Connect").Return(client, nil).Once()
		client.On("Mail", "noreply@example.com").Return(nil).Once()
		client.On("Rcpt", "user@example.com").Return(nil).Once()
		client.On("Data").Return(buf, nil).Once()
		client.On("Quit").Return(nil).Once()
		client.On("Close").Return(nil).Once()

		err := svc.SendExpiredSubscriptionNotice(body)
		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "To: user@example.com")
		assert.Contains(t, buf.String(), "trial")
		client.AssertExpectations(t)
		transport.AssertExpectations(t)
	})

	t.Run("broken json from queue", func(t *testing.T) {
		transport := new(TransportMock)
		svc := NewSenderService(newNoopLogger(), transport)

		err := svc.SendExpiredSubscriptionNotice([]byte("not a json"))
		assert.Error(t, err)
		transport.AssertNotCalled(t, "Connect")
	})

	t.Run("connect error", func(t *testing.T) {
		transport := new(TransportMock)
		svc := NewSenderService(newNoopLogger(), transport)

		transport.On("GetSMTPUser").Return("noreply@example.com")
		transport.On("Connect").Return(nil, assert.AnError).Once()

		err := svc.SendExpiredSubscriptionNotice(body)
		assert.Error(t, err)
	})
}
