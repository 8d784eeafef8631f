package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/agent-dashboard/internal/errs"
	"github.com/magabrotheeeer/agent-dashboard/internal/models"
)

func TestStorage_RegisterUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	uid, err := storage.RegisterUser(context.Background(), models.User{
		Email:        "user@example.com",
		PasswordHash: "hashedpassword",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, uid)

	// Повторная регистрация того же email
	_, err = storage.RegisterUser(context.Background(), models.User{
		Email:        "user@example.com",
		PasswordHash: "hashedpassword",
	})
	assert.ErrorIs(t, err, errs.ErrEmailTaken)

	got, err := storage.GetUserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, got.UID)

	_, err = storage.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestStorage_CreateSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "user@example.com", "hashedpassword")

	start := time.Now().UTC()
	sub, err := storage.CreateSubscription(context.Background(), models.Subscription{
		UserUID:   userUID,
		Plan:      models.PlanMonthly,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 30),
		MaxAgents: 5,
	})
	require.NoError(t, err)
	assert.NotZero(t, sub.ID)

	// Подписка стала текущей для пользователя
	current, err := storage.GetCurrentSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, current.ID)
	assert.Equal(t, models.PlanMonthly, current.Plan)
	assert.Equal(t, 5, current.MaxAgents)

	// Новая подписка перенаправляет ссылку
	next, err := storage.CreateSubscription(context.Background(), models.Subscription{
		UserUID:   userUID,
		Plan:      models.PlanYearly,
		Status:    models.SubscriptionActive,
		StartDate: start,
		EndDate:   start.AddDate(1, 0, 0),
		MaxAgents: 10,
	})
	require.NoError(t, err)

	current, err = storage.GetCurrentSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.Equal(t, next.ID, current.ID)
}

func TestStorage_GetCurrentSubscription_None(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "user@example.com", "hashedpassword")

	_, err := storage.GetCurrentSubscription(context.Background(), userUID)
	assert.ErrorIs(t, err, errs.ErrNoSubscription)
}

func TestStorage_CreateAgent_Quota(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "user@example.com", "hashedpassword")

	newAgent := func() models.Agent {
		return models.Agent{
			ID:          uuid.New().String(),
			UserUID:     userUID,
			Name:        "research-bot",
			Objective:   "collect morning news digests",
			Status:      models.AgentIdle,
			ActiveTools: []string{"web-search", "summarizer"},
		}
	}

	// Квота 2: два агента создаются, третий отклоняется
	for i := 0; i < 2; i++ {
		created, err := storage.CreateAgent(context.Background(), newAgent(), 2)
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())
	}
	_, err := storage.CreateAgent(context.Background(), newAgent(), 2)
	assert.ErrorIs(t, err, errs.ErrQuotaExceeded)

	agents, err := storage.ListAgents(context.Background(), userUID)
	require.NoError(t, err)
	assert.Len(t, agents, 2)
	assert.Equal(t, []string{"web-search", "summarizer"}, agents[0].ActiveTools)
}

func TestStorage_GetAgent_Ownership(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	owner := uuid.New().String()
	other := uuid.New().String()
	factory.CreateUser(t, owner, "owner@example.com", "hashedpassword")
	factory.CreateUser(t, other, "other@example.com", "hashedpassword")

	agentID := uuid.New().String()
	factory.CreateAgentRow(t, agentID, owner, "research-bot", "collect morning news", models.AgentIdle, 0)

	got, err := storage.GetAgent(context.Background(), owner, agentID)
	require.NoError(t, err)
	assert.Equal(t, agentID, got.ID)

	// Чужой агент неотличим от несуществующего
	_, err = storage.GetAgent(context.Background(), other, agentID)
	assert.ErrorIs(t, err, errs.ErrAgentNotFound)

	_, err = storage.GetAgent(context.Background(), owner, uuid.New().String())
	assert.ErrorIs(t, err, errs.ErrAgentNotFound)
}

func TestStorage_UpdateAgent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "user@example.com", "hashedpassword")
	agentID := uuid.New().String()
	factory.CreateAgentRow(t, agentID, userUID, "research-bot", "collect morning news", models.AgentIdle, 0)

	name := "digest-bot"
	status := models.AgentPaused
	updated, err := storage.UpdateAgent(context.Background(), userUID, agentID, models.AgentPatch{
		Name:        &name,
		Status:      &status,
		ActiveTools: []string{"calculator"},
	})
	require.NoError(t, err)
	assert.Equal(t, "digest-bot", updated.Name)
	assert.Equal(t, models.AgentPaused, updated.Status)
	// Поля вне patch не тронуты
	assert.Equal(t, "collect morning news", updated.Objective)
	assert.Equal(t, []string{"calculator"}, updated.ActiveTools)

	_, err = storage.UpdateAgent(context.Background(), uuid.New().String(), agentID, models.AgentPatch{Name: &name})
	assert.ErrorIs(t, err, errs.ErrAgentNotFound)
}

func TestStorage_DeleteAgent_CascadesHistory(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "user@example.com", "hashedpassword")
	agentID := uuid.New().String()
	factory.CreateAgentRow(t, agentID, userUID, "research-bot", "collect morning news", models.AgentIdle, 0)

	_, err := storage.AppendHistory(context.Background(), models.HistoryEntry{
		AgentID:  agentID,
		Action:   "collect news",
		Result:   "done",
		ToolUsed: "web-search",
	})
	require.NoError(t, err)

	require.NoError(t, storage.DeleteAgent(context.Background(), userUID, agentID))

	var count int
	err = storage.DB.QueryRow(`SELECT COUNT(*) FROM history_entries WHERE agent_id = $1`, agentID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = storage.DeleteAgent(context.Background(), userUID, agentID)
	assert.ErrorIs(t, err, errs.ErrAgentNotFound)
}

func TestStorage_ResolveActiveTools(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	factory.CreateTool(t, "web-search", true)
	factory.CreateTool(t, "image-generator", false)
	factory.CreateTool(t, "summarizer", true)

	// Неактивные и неизвестные имена пропускаются, порядок назначения сохраняется
	resolved, err := storage.ResolveActiveTools(context.Background(),
		[]string{"summarizer", "image-generator", "unknown", "web-search"})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "summarizer", resolved[0].Name)
	assert.Equal(t, "web-search", resolved[1].Name)
}

func TestStorage_MarkExpiredDue(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	dueUID := uuid.New().String()
	freshUID := uuid.New().String()
	factory.CreateUser(t, dueUID, "due@example.com", "hashedpassword")
	factory.CreateUser(t, freshUID, "fresh@example.com", "hashedpassword")

	now := time.Now().UTC()
	factory.CreateSubscription(t, dueUID, models.PlanTrial, models.SubscriptionActive,
		now.AddDate(0, 0, -15), now.AddDate(0, 0, -1), 2)
	factory.CreateSubscription(t, freshUID, models.PlanMonthly, models.SubscriptionActive,
		now.AddDate(0, 0, -1), now.AddDate(0, 0, 29), 5)

	expired, err := storage.MarkExpiredDue(context.Background())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "due@example.com", expired[0].Email)
	assert.Equal(t, models.PlanTrial, expired[0].Plan)

	sub, err := storage.GetCurrentSubscription(context.Background(), dueUID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, sub.Status)

	// Повторный проход ничего не находит
	expired, err = storage.MarkExpiredDue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, expired)
}
