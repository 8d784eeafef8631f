// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/jwt"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/password"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByEmail возвращает пользователя по email или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUser возвращает пользователя по его UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля и сразу
// выдает JWT. Занятый email — errs.ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, email, rawPassword string) (*models.User, string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, "", err
	}
	user := models.User{
		Email:        email,
		PasswordHash: hashed,
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return nil, "", err
	}

	created, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, "", err
	}
	token, err := s.jwtMaker.GenerateToken(created.Email, created.UID)
	if err != nil {
		return nil, "", err
	}
	return created, token, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
// Неизвестный email и неверный пароль дают одну и ту же ошибку.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return nil, "", errs.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, "", errs.ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.Email, user.UID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Me возвращает пользователя по UID из токена.
func (s *AuthService) Me(ctx context.Context, userUID string) (*models.User, error) {
	return s.users.GetUser(ctx, userUID)
}

// ValidateToken проверяет JWT и возвращает данные пользователя из claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, error) {
	const op = "auth.ValidateToken"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.User{
		Email: claims.Email,
		UID:   claims.UserUID,
	}, nil
}
