// Package errs определяет ошибки бизнес-уровня, по которым HTTP-слой
// выбирает код ответа. Сервисы возвращают эти ошибки как есть либо
// обернутыми через fmt.Errorf("%s: %w", ...), поэтому сравнение
// выполняется через errors.Is / errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Ошибки аутентификации.
var (
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// Ошибки подписки и квот.
var (
	ErrInvalidPlan          = errors.New("invalid subscription plan")
	ErrNoSubscription       = errors.New("no current subscription")
	ErrSubscriptionRequired = errors.New("active subscription required")
	ErrQuotaExceeded        = errors.New("agent quota exceeded")
)

// Ошибки реестра агентов и движка выполнения. Отсутствие агента и чужой
// агент намеренно неразличимы для вызывающего.
var (
	ErrAgentNotFound  = errors.New("agent not found")
	ErrAgentBusy      = errors.New("agent is already running a task")
	ErrAgentCompleted = errors.New("agent already completed its task")
)

// ValidationError ошибка проверки входных данных с указанием поля.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// NewValidation создает ValidationError для поля field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
