package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_http "github.com/JithendraNara/mission-control/internal/http"
	"github.com/JithendraNara/mission-control/internal/log"
	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/service"
	"github.com/JithendraNara/mission-control/pkg/storage"
)

// envelope mirrors the response wrapper for decoding in tests. Data stays
// raw so each test can unmarshal it into the shape it expects.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"requestId"`
		Timestamp string `json:"timestamp"`
	} `json:"meta"`
}

type pageData struct {
	Tasks      []models.Task `json:"tasks"`
	Pagination struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	} `json:"pagination"`
}

func TestServer(t *testing.T) {
	newServer := func() *httptest.Server {
		store := storage.NewMockStore()
		logger := log.GetLogger()
		srv := internal_http.NewServer(
			service.NewTaskService(store, logger),
			service.NewAgentService(store, logger),
		)
		ts := httptest.NewServer(srv)
		t.Cleanup(ts.Close)
		return ts
	}

	do := func(t *testing.T, ts *httptest.Server, method, path string, body interface{}) (*http.Response, envelope) {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, ts.URL+path, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		return resp, env
	}

	createTask := func(t *testing.T, ts *httptest.Server, body map[string]interface{}) models.Task {
		resp, env := do(t, ts, "POST", "/api/v1/tasks", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var task models.Task
		require.NoError(t, json.Unmarshal(env.Data, &task))
		return task
	}

	t.Run("Health", func(t *testing.T) {
		ts := newServer()
		resp, env := do(t, ts, "GET", "/health", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, env.Success)
		var data map[string]string
		assert.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "ok", data["status"])
	})

	t.Run("CreateTask", func(t *testing.T) {
		ts := newServer()
		resp, env := do(t, ts, "POST", "/api/v1/tasks", map[string]interface{}{
			"title": "Build login page",
			"owner": "frontend",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.True(t, env.Success)
		assert.NotEmpty(t, env.Meta.RequestID)
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

		var task models.Task
		assert.NoError(t, json.Unmarshal(env.Data, &task))
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, models.StatusTodo, task.Status)
		assert.Equal(t, models.PriorityNormal, task.Priority)
		assert.Equal(t, models.RoleFrontend, task.Owner)
	})

	t.Run("CreateTaskValidation", func(t *testing.T) {
		ts := newServer()
		resp, env := do(t, ts, "POST", "/api/v1/tasks", map[string]interface{}{
			"title": "",
			"owner": "intern",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
		assert.Contains(t, env.Error.Details, "title")
		assert.Contains(t, env.Error.Details, "owner")
	})

	t.Run("CreateTaskMalformedJSON", func(t *testing.T) {
		ts := newServer()
		req, err := http.NewRequest("POST", ts.URL+"/api/v1/tasks", bytes.NewBufferString("{nope"))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("StatusLifecycle", func(t *testing.T) {
		ts := newServer()
		task := createTask(t, ts, map[string]interface{}{
			"title": "Integrate payment API",
			"owner": "forge",
		})

		resp, env := do(t, ts, "PATCH", "/api/v1/tasks/"+task.ID+"/status", map[string]interface{}{
			"status":        "blocked",
			"blockerReason": "Waiting for API credentials",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var blocked models.Task
		require.NoError(t, json.Unmarshal(env.Data, &blocked))
		assert.Equal(t, models.StatusBlocked, blocked.Status)
		assert.Equal(t, "Waiting for API credentials", blocked.BlockerReason)
		assert.Nil(t, blocked.StartedAt)

		resp, env = do(t, ts, "PATCH", "/api/v1/tasks/"+task.ID+"/status", map[string]interface{}{
			"status": "doing",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var doing models.Task
		require.NoError(t, json.Unmarshal(env.Data, &doing))
		assert.Equal(t, models.StatusDoing, doing.Status)
		assert.Empty(t, doing.BlockerReason)
		assert.NotNil(t, doing.StartedAt)

		resp, env = do(t, ts, "PATCH", "/api/v1/tasks/"+task.ID+"/status", map[string]interface{}{
			"status": "done",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var done models.Task
		require.NoError(t, json.Unmarshal(env.Data, &done))
		assert.NotNil(t, done.CompletedAt)
		assert.Equal(t, doing.StartedAt, done.StartedAt)
	})

	t.Run("UpdateStatusValidation", func(t *testing.T) {
		ts := newServer()
		task := createTask(t, ts, map[string]interface{}{"title": "Strict", "owner": "qa"})
		resp, env := do(t, ts, "PATCH", "/api/v1/tasks/"+task.ID+"/status", map[string]interface{}{
			"status": "paused",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	})

	t.Run("UpdateTask", func(t *testing.T) {
		ts := newServer()
		task := createTask(t, ts, map[string]interface{}{
			"title":   "Draft spec",
			"owner":   "atlas",
			"dueDate": "2026-09-15T00:00:00Z",
		})
		assert.NotNil(t, task.DueDate)

		resp, env := do(t, ts, "PATCH", "/api/v1/tasks/"+task.ID, map[string]interface{}{
			"title":    "Draft spec v2",
			"priority": "high",
			"dueDate":  nil,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var updated models.Task
		require.NoError(t, json.Unmarshal(env.Data, &updated))
		assert.Equal(t, "Draft spec v2", updated.Title)
		assert.Equal(t, models.PriorityHigh, updated.Priority)
		assert.Nil(t, updated.DueDate)
		// Fields absent from the body stay untouched.
		assert.Equal(t, models.RoleAtlas, updated.Owner)
	})

	t.Run("UpdateTaskValidation", func(t *testing.T) {
		ts := newServer()
		task := createTask(t, ts, map[string]interface{}{"title": "Keep me", "owner": "qa"})
		resp, env := do(t, ts, "PATCH", "/api/v1/tasks/"+task.ID, map[string]interface{}{
			"title": "",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "title")
	})

	t.Run("GetTaskNotFound", func(t *testing.T) {
		ts := newServer()
		resp, env := do(t, ts, "GET", "/api/v1/tasks/no-such-id", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})

	t.Run("UnknownRouteEnvelope", func(t *testing.T) {
		ts := newServer()
		resp, env := do(t, ts, "GET", "/api/v1/nope", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})

	t.Run("ListTasksPagination", func(t *testing.T) {
		ts := newServer()
		for i := 0; i < 5; i++ {
			createTask(t, ts, map[string]interface{}{"title": "task", "owner": "forge"})
		}

		resp, env := do(t, ts, "GET", "/api/v1/tasks?page=2&limit=2", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var page pageData
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Len(t, page.Tasks, 2)
		assert.Equal(t, 2, page.Pagination.Page)
		assert.Equal(t, 2, page.Pagination.Limit)
		assert.Equal(t, 5, page.Pagination.Total)

		// Out-of-range inputs come back bounded, not echoed.
		_, env = do(t, ts, "GET", "/api/v1/tasks?page=0&limit=500", nil)
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 1, page.Pagination.Page)
		assert.Equal(t, 100, page.Pagination.Limit)
	})

	t.Run("ListByOwnerAndStatus", func(t *testing.T) {
		ts := newServer()
		forgeTask := createTask(t, ts, map[string]interface{}{"title": "forge work", "owner": "forge"})
		createTask(t, ts, map[string]interface{}{"title": "qa work", "owner": "qa"})
		_, _ = do(t, ts, "PATCH", "/api/v1/tasks/"+forgeTask.ID+"/status",
			map[string]interface{}{"status": "doing"})

		_, env := do(t, ts, "GET", "/api/v1/tasks/by-owner/forge", nil)
		var page pageData
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 1, page.Pagination.Total)
		assert.Equal(t, "forge work", page.Tasks[0].Title)

		_, env = do(t, ts, "GET", "/api/v1/tasks/by-status/doing", nil)
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 1, page.Pagination.Total)
		assert.Equal(t, forgeTask.ID, page.Tasks[0].ID)
	})

	t.Run("ListBlocked", func(t *testing.T) {
		ts := newServer()
		task := createTask(t, ts, map[string]interface{}{"title": "stuck", "owner": "frontend"})
		createTask(t, ts, map[string]interface{}{"title": "fine", "owner": "frontend"})
		_, _ = do(t, ts, "PATCH", "/api/v1/tasks/"+task.ID+"/status",
			map[string]interface{}{"status": "blocked", "blockerReason": "waiting on designs"})

		_, env := do(t, ts, "GET", "/api/v1/tasks/blocked/all", nil)
		var data struct {
			Tasks []models.Task `json:"tasks"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Len(t, data.Tasks, 1)
		assert.Equal(t, task.ID, data.Tasks[0].ID)
		assert.Equal(t, "waiting on designs", data.Tasks[0].BlockerReason)
	})

	t.Run("DeleteTask", func(t *testing.T) {
		ts := newServer()
		task := createTask(t, ts, map[string]interface{}{"title": "doomed", "owner": "qa"})

		resp, env := do(t, ts, "DELETE", "/api/v1/tasks/"+task.ID, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var data map[string]bool
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.True(t, data["deleted"])

		resp, _ = do(t, ts, "DELETE", "/api/v1/tasks/"+task.ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Enums", func(t *testing.T) {
		ts := newServer()
		_, env := do(t, ts, "GET", "/api/v1/tasks/meta/enums", nil)
		var data struct {
			Statuses []string `json:"statuses"`
			Roles    []string `json:"roles"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.ElementsMatch(t, []string{"todo", "doing", "review", "done", "blocked"}, data.Statuses)
		assert.ElementsMatch(t, []string{"atlas", "forge", "frontend", "designer", "qa", "minerva"}, data.Roles)
	})

	t.Run("Agents", func(t *testing.T) {
		ts := newServer()
		resp, env := do(t, ts, "POST", "/api/v1/agents", map[string]interface{}{
			"role":         "forge",
			"name":         "Forge",
			"capabilities": []string{"go", "sql"},
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var agent models.Agent
		require.NoError(t, json.Unmarshal(env.Data, &agent))
		assert.NotEmpty(t, agent.ID)
		assert.True(t, agent.IsActive)

		resp, _ = do(t, ts, "POST", "/api/v1/agents/forge/heartbeat", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		_, env = do(t, ts, "GET", "/api/v1/agents", nil)
		var data struct {
			Agents []models.Agent `json:"agents"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Len(t, data.Agents, 1)
		assert.NotNil(t, data.Agents[0].LastSeenAt)

		resp, _ = do(t, ts, "POST", "/api/v1/agents/qa/heartbeat", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = do(t, ts, "POST", "/api/v1/agents/intern/heartbeat", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
