package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"matrixTasks/internal/app"
	"matrixTasks/internal/config"
	"matrixTasks/internal/handlers/dto"
	"matrixTasks/internal/models/task"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	t.Setenv("MATRIX_FOCUS_DB_PATH", filepath.Join(t.TempDir(), "focus.db"))
	t.Setenv("MATRIX_CHAT_PROVIDER", "anthropic")
	t.Setenv("MATRIX_CHAT_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.NewLoader(afero.NewMemMapFs(), "config.yml").Load()
	require.NoError(t, err)

	a, err := app.New(cfg, nil).Init(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Close(ctx)
	})
	return a
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", "trinity")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestApp_TaskLifecycle(t *testing.T) {
	h := newApp(t).Handler()

	w := call(t, h, http.MethodPost, "/tasks", `{"title": "Dodge bullets", "priority": "urgent-important"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created dto.TaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	path := "/tasks/" + created.UUID.String()

	// сразу завершить не начатую задачу нельзя
	w = call(t, h, http.MethodPost, path+"/complete", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, h, http.MethodPost, path+"/start", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, h, http.MethodGet, path+"/time", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tracked dto.TimeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tracked))
	assert.True(t, tracked.IsTracking)

	w = call(t, h, http.MethodPatch, path, `{"status": "completed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var completed dto.TaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&completed))
	assert.Equal(t, task.StatusCompleted, completed.Status)
	assert.False(t, completed.IsTracking)
	assert.Equal(t, 100, completed.Progress)

	w = call(t, h, http.MethodDelete, "/tasks/completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted": 1}`, w.Body.String())

	w = call(t, h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApp_FocusAndChat(t *testing.T) {
	h := newApp(t).Handler()

	w := call(t, h, http.MethodPost, "/tasks", `{"title": "Train with Morpheus", "priority": "not-urgent-important"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.TaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = call(t, h, http.MethodPost, "/focus/sessions", `{"task_id": "`+created.UUID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(t, h, http.MethodPost, "/focus/sessions/current/end", `{"completed": false}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, h, http.MethodGet, "/focus/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
	assert.Len(t, history, 1)

	// без ключа API чат выключен
	w = call(t, h, http.MethodPost, "/chat", `{"message": "hello"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestApp_HealthAndMetrics(t *testing.T) {
	h := newApp(t).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "matrix_http_request_duration_seconds")
}

func TestApp_PatchWithBadStatusKeepsFields(t *testing.T) {
	h := newApp(t).Handler()

	w := call(t, h, http.MethodPost, "/tasks", `{"title": "Free your mind", "priority": "urgent-important"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.TaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	path := "/tasks/" + created.UUID.String()

	w = call(t, h, http.MethodPatch, path, `{"title": "There is no spoon", "status": "completed"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	var after dto.TaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&after))
	assert.Equal(t, "Free your mind", after.Title)
	assert.Equal(t, created.Version, after.Version)
}
