package middlewarectx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		setupMocks     func(m *AuthServiceMock)
		wantStatusCode int
		wantNextCalled bool
	}{
		{
			name:       "valid token passes uid and email into context",
			authHeader: "Bearer good-token",
			setupMocks: func(m *AuthServiceMock) {
				m.On("ValidateToken", mock.Anything, "good-token").
					Return(&models.User{UID: "uid-1", Email: "user@example.com"}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantNextCalled: true,
		},
		{
			name:           "missing header",
			authHeader:     "",
			setupMocks:     func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "header without bearer prefix",
			authHeader:     "Token abc",
			setupMocks:     func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer bad-token",
			setupMocks: func(m *AuthServiceMock) {
				m.On("ValidateToken", mock.Anything, "bad-token").
					Return(nil, assert.AnError).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			tt.setupMocks(authMock)

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				assert.Equal(t, "uid-1", r.Context().Value(UserUID))
				assert.Equal(t, "user@example.com", r.Context().Value(UserEmail))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/agents", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			JWTMiddleware(authMock, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantNextCalled, nextCalled)
			authMock.AssertExpectations(t)
		})
	}
}
