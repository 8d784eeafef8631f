package run

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

type RunnerServiceMock struct {
	mock.Mock
}

func (m *RunnerServiceMock) ExecuteTask(ctx context.Context, userUID, agentID, task string) (*models.RunResult, error) {
	args := m.Called(ctx, userUID, agentID, task)
	result, _ := args.Get(0).(*models.RunResult)
	return result, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRunHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockResult     *models.RunResult
		mockErr        error
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name:        "completed run",
			requestBody: Request{Task: "собери сводку новостей"},
			mockResult: &models.RunResult{
				AgentID:  "a1",
				Task:     "собери сводку новостей",
				Status:   models.AgentCompleted,
				Progress: 100,
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:        "failed run is still 200",
			requestBody: Request{Task: "собери сводку новостей"},
			mockResult: &models.RunResult{
				AgentID:       "a1",
				Task:          "собери сводку новостей",
				Status:        models.AgentIdle,
				Progress:      50,
				FailureReason: "tool blew up",
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - missing task",
			requestBody:    Request{},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Task is a required field",
			wantStatus:     "Error",
		},
		{
			name:           "agent not found",
			requestBody:    Request{Task: "собери сводку новостей"},
			mockErr:        errs.ErrAgentNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "agent not found",
			wantStatus:     "Error",
		},
		{
			name:           "agent busy",
			requestBody:    Request{Task: "собери сводку новостей"},
			mockErr:        errs.ErrAgentBusy,
			wantStatusCode: http.StatusConflict,
			wantError:      "agent is already running a task",
			wantStatus:     "Error",
		},
		{
			name:           "agent completed",
			requestBody:    Request{Task: "собери сводку новостей"},
			mockErr:        errs.ErrAgentCompleted,
			wantStatusCode: http.StatusConflict,
			wantError:      "agent already completed its task",
			wantStatus:     "Error",
		},
		{
			name:           "service error",
			requestBody:    Request{Task: "собери сводку новостей"},
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "failed to execute task",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := new(RunnerServiceMock)
			handler := New(newNoopLogger(), svcMock)

			if tt.mockResult != nil || tt.mockErr != nil {
				req := tt.requestBody.(Request)
				svcMock.On("ExecuteTask", mock.Anything, "user-1", "a1", req.Task).
					Return(tt.mockResult, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/agents/a1/run", bytes.NewReader(bodyBytes))
			routeCtx := chi.NewRouteContext()
			routeCtx.URLParams.Add("id", "a1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "reqid123")
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "user-1")
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			err = json.Unmarshal(rec.Body.Bytes(), &resp)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
			} else {
				data := resp["data"].(map[string]any)
				assert.Equal(t, tt.mockResult.Status, data["status"])
				if tt.mockResult.FailureReason != "" {
					assert.Equal(t, tt.mockResult.FailureReason, data["failure_reason"])
				}
			}
			svcMock.AssertExpectations(t)
		})
	}
}
