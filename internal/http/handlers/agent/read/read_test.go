package read

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/http/middlewarectx"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

type AgentServiceMock struct {
	mock.Mock
}

func (m *AgentServiceMock) Get(ctx context.Context, userUID, agentID string) (*models.Agent, error) {
	args := m.Called(ctx, userUID, agentID)
	agent, _ := args.Get(0).(*models.Agent)
	return agent, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestReadHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		userUID        string
		mockAgent      *models.Agent
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "owner reads agent",
			userUID:        "user-1",
			mockAgent:      &models.Agent{ID: "a1", UserUID: "user-1", Name: "research-bot"},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "foreign agent looks missing",
			userUID:        "user-2",
			mockErr:        errs.ErrAgentNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "agent not found",
		},
		{
			name:           "missing user uid",
			userUID:        "",
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := new(AgentServiceMock)
			handler := New(newNoopLogger(), svcMock)

			if tt.mockAgent != nil || tt.mockErr != nil {
				svcMock.On("Get", mock.Anything, tt.userUID, "a1").
					Return(tt.mockAgent, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodGet, "/agents/a1", nil)
			routeCtx := chi.NewRouteContext()
			routeCtx.URLParams.Add("id", "a1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "reqid123")
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			}
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
			} else {
				data := resp["data"].(map[string]any)
				assert.Equal(t, tt.mockAgent.ID, data["id"])
			}
			svcMock.AssertExpectations(t)
		})
	}
}
