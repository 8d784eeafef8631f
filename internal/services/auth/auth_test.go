package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/jwt"
	"github.com/magabrotheeeer/agent-dashboard/internal/lib/password"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}
func (m *UsersMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UsersMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newMaker() jwt.Maker {
	return jwt.NewJWTMaker("test-secret", time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	t.Run("success register returns user and token", func(t *testing.T) {
		users := new(UsersMock)
		svc := NewAuthService(users, newMaker())

		users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Email == "user@example.com" &&
				u.PasswordHash != "" && u.PasswordHash != "password123"
		})).Return("uid-1", nil).Once()
		users.On("GetUser", mock.Anything, "uid-1").
			Return(&models.User{UID: "uid-1", Email: "user@example.com"}, nil).Once()

		user, token, err := svc.Register(context.Background(), "user@example.com", "password123")
		assert.NoError(t, err)
		assert.Equal(t, "uid-1", user.UID)
		assert.NotEmpty(t, token)
		users.AssertExpectations(t)
	})

	t.Run("email already taken", func(t *testing.T) {
		users := new(UsersMock)
		svc := NewAuthService(users, newMaker())

		users.On("RegisterUser", mock.Anything, mock.Anything).
			Return("", errs.ErrEmailTaken).Once()

		_, _, err := svc.Register(context.Background(), "user@example.com", "password123")
		assert.ErrorIs(t, err, errs.ErrEmailTaken)
	})
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("password123")
	assert.NoError(t, err)
	user := &models.User{UID: "uid-1", Email: "user@example.com", PasswordHash: hash}

	tests := []struct {
		name       string
		email      string
		rawPass    string
		setupMocks func(u *UsersMock)
		wantErr    error
	}{
		{
			name:    "valid credentials",
			email:   "user@example.com",
			rawPass: "password123",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil).Once()
			},
		},
		{
			name:    "wrong password",
			email:   "user@example.com",
			rawPass: "wrong-pass",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil).Once()
			},
			wantErr: errs.ErrInvalidCredentials,
		},
		{
			name:    "unknown email gives the same error",
			email:   "nobody@example.com",
			rawPass: "password123",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByEmail", mock.Anything, "nobody@example.com").
					Return(nil, errs.ErrUserNotFound).Once()
			},
			wantErr: errs.ErrInvalidCredentials,
		},
		{
			name:    "storage error is not masked",
			email:   "user@example.com",
			rawPass: "password123",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByEmail", mock.Anything, "user@example.com").
					Return(nil, errors.New("db down")).Once()
			},
			wantErr: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			svc := NewAuthService(users, newMaker())
			tt.setupMocks(users)

			got, token, err := svc.Login(context.Background(), tt.email, tt.rawPass)
			switch tt.name {
			case "valid credentials":
				assert.NoError(t, err)
				assert.Equal(t, user.UID, got.UID)
				assert.NotEmpty(t, token)
			case "storage error is not masked":
				assert.Error(t, err)
				assert.NotErrorIs(t, err, errs.ErrInvalidCredentials)
			default:
				assert.ErrorIs(t, err, tt.wantErr)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	users := new(UsersMock)
	svc := NewAuthService(users, newMaker())

	users.On("GetUserByEmail", mock.Anything, "user@example.com").Return(func() *models.User {
		hash, _ := password.GetHash("password123")
		return &models.User{UID: "uid-1", Email: "user@example.com", PasswordHash: hash}
	}(), nil).Once()

	_, token, err := svc.Login(context.Background(), "user@example.com", "password123")
	assert.NoError(t, err)

	got, err := svc.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, "uid-1", got.UID)
	assert.Equal(t, "user@example.com", got.Email)

	_, err = svc.ValidateToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}
