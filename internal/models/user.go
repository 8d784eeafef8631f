// Package models содержит доменные структуры сервиса: пользователей,
// подписки, агентов и инструменты. Структуры используются в бизнес-логике
// и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
// Хэш пароля наружу не сериализуется.
type User struct {
	UID                   string    `json:"uid"`
	Email                 string    `json:"email"`
	PasswordHash          string    `json:"-"`
	CurrentSubscriptionID *int64    `json:"-"` // Ссылка на текущую подписку, может отсутствовать
	CreatedAt             time.Time `json:"created_at"`
}
