package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-dashboard/internal/ai"
	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/logging"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
	"github.com/nhle/task-dashboard/tests/testutil"
)

// failingCompleter simulates an unreachable completion backend.
type failingCompleter struct{}

func (failingCompleter) Complete(context.Context, ai.CompletionRequest) (string, error) {
	return "", errors.New("connection refused")
}

// corruptStore returns a task with an unknown status from GetTasks.
type corruptStore struct {
	store.Store
}

func (c corruptStore) GetTasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error) {
	tasks, err := c.Store.GetTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	return append(tasks, model.Task{ID: "broken", Status: "blocked", Priority: model.PriorityLow}), nil
}

type testEnv struct {
	store   *store.SQLiteStore
	handler http.Handler
}

func newTestEnv(t *testing.T, completer ai.Completer, wrap func(store.Store) store.Store) *testEnv {
	t.Helper()

	s := testutil.NewTestStore(t)
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	var st store.Store = s
	if wrap != nil {
		st = wrap(s)
	}
	logger := logging.Discard()
	srv := NewServer(st, issuer, ai.NewService(completer, logger), logger, Options{})
	return &testEnv{store: s, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its token and user ID.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"name":     "User " + email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.User.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorEnvelope](t, rec).Error.Code
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)

	token, userID := env.register(t, "alice@example.com")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ALICE@example.com", "name": "Again", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "bob@example.com", "name": "Bob", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[authResponse](t, rec).Token)

	rec = env.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, userID, me["id"])
	assert.NotContains(t, me, "password_hash")

	rec = env.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))
}

func TestDecodeRejectsUnknownFieldsAndTrailingContent(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)
	token, _ := env.register(t, "a@example.com")

	rec := env.do(t, http.MethodPost, "/api/projects", token, map[string]any{"name": "P", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewBufferString(`{"name":"P"} {"name":"Q"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	out := httptest.NewRecorder()
	env.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestProjectMembershipAuthorization(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)
	ownerToken, _ := env.register(t, "owner@example.com")
	outsiderToken, _ := env.register(t, "outsider@example.com")
	memberToken, memberID := env.register(t, "member@example.com")

	rec := env.do(t, http.MethodPost, "/api/projects", ownerToken, map[string]any{
		"name": "Launch", "priority": "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[model.Project](t, rec)
	assert.Equal(t, model.ProjectStatusPlanning, project.Status)

	base := "/api/projects/" + project.ID

	rec = env.do(t, http.MethodGet, base, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorCode(t, rec))
	rec = env.do(t, http.MethodGet, base+"/insights", outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/projects/does-not-exist", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/members", ownerToken, map[string]string{"email": "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, base+"/members", ownerToken, map[string]string{"email": "member@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, base, memberToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Plain members can neither edit the project nor manage members.
	rec = env.do(t, http.MethodPut, base, memberToken, map[string]any{"name": "Renamed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPost, base+"/members", memberToken, map[string]string{"email": "outsider@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, base+"/members/"+memberID, ownerToken, map[string]string{"role": "manager"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.RoleManager, decode[model.Member](t, rec).Role)

	rec = env.do(t, http.MethodPut, base, ownerToken, map[string]any{"name": "Renamed", "status": "active"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decode[model.Project](t, rec).Name)

	rec = env.do(t, http.MethodGet, "/api/projects", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Project](t, rec)["projects"], 1)

	rec = env.do(t, http.MethodDelete, base+"/members/"+memberID, memberToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "members may leave")

	rec = env.do(t, http.MethodGet, base+"/activities", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var types []model.ActivityType
	for _, a := range decode[map[string][]model.Activity](t, rec)["activities"] {
		types = append(types, a.Type)
	}
	assert.Contains(t, types, model.ActivityProjectCreated)
	assert.Contains(t, types, model.ActivityMemberAdded)
	assert.Contains(t, types, model.ActivityMemberRemoved)

	rec = env.do(t, http.MethodDelete, base, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, base, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskAndCommentPermissions(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)
	ownerToken, _ := env.register(t, "owner@example.com")
	memberToken, memberID := env.register(t, "member@example.com")
	outsiderToken, outsiderID := env.register(t, "outsider@example.com")

	rec := env.do(t, http.MethodPost, "/api/projects", ownerToken, map[string]any{"name": "P"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[model.Project](t, rec)
	rec = env.do(t, http.MethodPost, "/api/projects/"+project.ID+"/members", ownerToken, map[string]string{"email": "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/projects/"+project.ID+"/tasks", ownerToken, map[string]any{
		"title": "Owner task", "assignee_id": outsiderID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "assignee must be a member")

	rec = env.do(t, http.MethodPost, "/api/projects/"+project.ID+"/tasks", ownerToken, map[string]any{
		"title": "Owner task", "priority": "urgent", "assignee_id": memberID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[model.Task](t, rec)

	rec = env.do(t, http.MethodPost, "/api/projects/"+project.ID+"/tasks", outsiderToken, map[string]any{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/tasks/"+task.ID, memberToken, map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.TaskStatusInProgress, decode[model.Task](t, rec).Status)

	rec = env.do(t, http.MethodPut, "/api/tasks/"+task.ID, memberToken, map[string]any{"status": "blocked"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/tasks?status=in_progress&sort=priority&order=desc", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Task](t, rec)["tasks"], 1)
	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/tasks?limit=-1", memberToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "plain members delete only their own tasks")

	rec = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/comments", memberToken, map[string]string{"body": "On it"})
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decode[model.Comment](t, rec)

	rec = env.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/comments", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode[map[string][]model.Comment](t, rec)["comments"]
	require.Len(t, comments, 1)
	assert.Equal(t, "User member@example.com", comments[0].AuthorName)

	rec = env.do(t, http.MethodDelete, "/api/comments/"+comment.ID, ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the author deletes a comment")
	rec = env.do(t, http.MethodDelete, "/api/comments/"+comment.ID, memberToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/tasks/"+task.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	activities, err := env.store.GetRecentActivities(context.Background(), store.ActivityFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	var types []model.ActivityType
	for _, a := range activities {
		types = append(types, a.Type)
	}
	assert.Contains(t, types, model.ActivityTaskStatusChanged)
	assert.Contains(t, types, model.ActivityCommentAdded)
	assert.Contains(t, types, model.ActivityCommentDeleted)
	assert.Contains(t, types, model.ActivityTaskDeleted)
}

func TestUpdateTaskClearsDueDateOnNull(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)
	token, _ := env.register(t, "owner@example.com")

	rec := env.do(t, http.MethodPost, "/api/projects", token, map[string]any{"name": "P"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[model.Project](t, rec)

	due := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	rec = env.do(t, http.MethodPost, "/api/projects/"+project.ID+"/tasks", token, map[string]any{
		"title": "Mistaken deadline", "due_date": due,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[model.Task](t, rec)
	require.NotNil(t, task.DueDate)

	rec = env.do(t, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{"title": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	kept := decode[model.Task](t, rec)
	require.NotNil(t, kept.DueDate, "an absent due_date leaves it unchanged")
	assert.True(t, due.Equal(*kept.DueDate))

	rec = env.do(t, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{"due_date": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[model.Task](t, rec).DueDate)

	stored, err := env.store.GetTaskByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DueDate)

	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/insights", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, rec)["overdueCount"])

	rec = env.do(t, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{"due_date": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIRequestCancelledByCaller(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)
	token, _ := env.register(t, "owner@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/chat", bytes.NewBufferString(`{"message":"help"}`)).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "canceled", errorCode(t, rec))
}

func TestProjectInsightsScenario(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)
	token, userID := env.register(t, "owner@example.com")
	ctx := context.Background()

	project := testutil.CreateProject(t, env.store, userID, "Scenario")
	testutil.CreateTask(t, env.store, project.ID, userID, "done 1", model.TaskStatusDone)
	testutil.CreateTask(t, env.store, project.ID, userID, "done 2", model.TaskStatusDone)

	now := time.Now().UTC()
	past, future := now.Add(-24*time.Hour), now.Add(7*24*time.Hour)
	_, err := env.store.CreateTask(ctx, model.Task{
		ProjectID: project.ID, CreatorID: userID, Title: "late",
		Status: model.TaskStatusInProgress, DueDate: &past,
	})
	require.NoError(t, err)
	_, err = env.store.CreateTask(ctx, model.Task{
		ProjectID: project.ID, CreatorID: userID, Title: "upcoming",
		Status: model.TaskStatusTodo, DueDate: &future,
	})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.store.RecordActivity(ctx, model.Activity{
			Type: model.ActivityTaskUpdated, UserID: userID, ProjectID: &project.ID,
		}))
	}

	rec := env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/insights", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, 50, body["completionRate"])
	assert.EqualValues(t, 25, body["overdueRate"])
	assert.EqualValues(t, 15, body["healthScore"])
	assert.EqualValues(t, 3, body["recentActivityCount"])
	assert.Contains(t, body, "daysUntilDeadline")
	assert.Nil(t, body["daysUntilDeadline"])

	dist := body["taskDistribution"].(map[string]any)
	assert.EqualValues(t, 2, dist["done"])
	assert.EqualValues(t, 1, dist["inProgress"])
	assert.EqualValues(t, 1, dist["todo"])

	weekly := body["weeklyProductivity"].(map[string]any)
	assert.Equal(t, string(insight.DeltaNoBaseline), weekly["kind"])
	assert.Nil(t, weekly["percentMagnitude"])

	rec = env.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dash := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, dash["projectCount"])
	in := dash["insights"].(map[string]any)
	assert.EqualValues(t, 4, in["totalTasks"])
	assert.EqualValues(t, 50, in["completionRate"])
}

func TestProjectInsightsDataIntegrityIs422(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, func(s store.Store) store.Store {
		return corruptStore{Store: s}
	})
	token, userID := env.register(t, "owner@example.com")
	project := testutil.CreateProject(t, env.store, userID, "Broken")

	rec := env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/insights", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	apiErr := decode[ErrorEnvelope](t, rec).Error
	assert.Equal(t, "data_integrity", apiErr.Code)
	assert.Equal(t, "broken", apiErr.Context["task_id"])
	assert.Equal(t, "status", apiErr.Context["field"])

	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "other routes keep working")
}

func TestWriteErrorFromMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		api  string
	}{
		{"integrity", &insight.DataIntegrityError{TaskID: "t", Field: "priority", Value: "x"}, http.StatusUnprocessableEntity, "data_integrity"},
		{"configuration", fmt.Errorf("wrapped: %w", &insight.ConfigurationError{Field: "now", Reason: "is zero"}), http.StatusInternalServerError, "configuration_error"},
		{"ai", fmt.Errorf("%w: timeout", ai.ErrUnavailable), http.StatusBadGateway, "ai_unavailable"},
		{"not found", fmt.Errorf("getting task x: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{"store invalid", fmt.Errorf("%w: title", store.ErrInvalid), http.StatusBadRequest, "invalid_request"},
		{"empty chat", ai.ErrEmptyMessage, http.StatusBadRequest, "invalid_request"},
		{"forbidden", errForbidden, http.StatusForbidden, "forbidden"},
		{"conflict", errConflict, http.StatusConflict, "conflict"},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeErrorFrom(rec, logging.Discard(), tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.api, errorCode(t, rec))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAIEndpointsWithMock(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)
	token, _ := env.register(t, "owner@example.com")

	rec := env.do(t, http.MethodPost, "/api/projects", token, map[string]any{"name": "P"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[model.Project](t, rec)

	rec = env.do(t, http.MethodPost, "/api/ai/generate-tasks", token, map[string]any{"project_id": project.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[map[string][]ai.SuggestedTask](t, rec)["tasks"], 3)

	rec = env.do(t, http.MethodPost, "/api/ai/generate-tasks", token, map[string]any{"project_id": project.ID, "create": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tasks, err := env.store.GetTasks(context.Background(), store.TaskFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	rec = env.do(t, http.MethodPost, "/api/ai/chat", token, map[string]any{
		"message": "Which tasks are overdue?", "project_id": project.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode[map[string]string](t, rec)["reply"], "overdue")

	rec = env.do(t, http.MethodPost, "/api/ai/chat", token, map[string]any{"message": "help"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/ai/chat", token, map[string]any{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/ai-insights", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.NotEmpty(t, body["insights"])
	assert.Contains(t, body, "metrics")
}

func TestAIFailureIsFeatureLocal(t *testing.T) {
	env := newTestEnv(t, failingCompleter{}, nil)
	token, _ := env.register(t, "owner@example.com")

	rec := env.do(t, http.MethodPost, "/api/projects", token, map[string]any{"name": "P"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[model.Project](t, rec)

	rec = env.do(t, http.MethodPost, "/api/ai/chat", token, map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "ai_unavailable", errorCode(t, rec))

	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/ai-insights", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/projects/"+project.ID+"/insights", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCORSAndUnknownRoutes(t *testing.T) {
	env := newTestEnv(t, ai.MockCompleter{}, nil)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodOptions, "/api/projects", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	rec = env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}
