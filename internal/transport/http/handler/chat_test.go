package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-chat/internal/ai"
	"gopherai-chat/internal/app"
	"gopherai-chat/internal/model"
	"gopherai-chat/internal/platform/database"
	"gopherai-chat/internal/repository"
)

type stubCompleter struct {
	reply   string
	summary string
	err     error
}

func (s *stubCompleter) Ask(ctx context.Context, sessionID, conversation string) (*ai.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Completion{Text: s.reply, PromptTokens: 5, ResponseTokens: 3}, nil
}

func (s *stubCompleter) Summarize(ctx context.Context, sessionID, prompt string) (string, error) {
	return s.summary, nil
}

func (s *stubCompleter) MaxTokens() int { return 4000 }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, completer *stubCompleter, autoSummarize bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := repository.NewChatRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))

	svc := app.NewChatService(repo, completer, nil, nil, "gpt-test")
	h := NewChatHandler(svc, autoSummarize)

	router := gin.New()
	sessions := router.Group("/api/v1/sessions")
	sessions.GET("", h.ListSessions)
	sessions.POST("", h.CreateSession)
	sessions.PATCH("/:id", h.RenameSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.GET("/:id/messages", h.GetMessages)
	sessions.POST("/:id/completions", h.Ask)
	sessions.POST("/:id/summarize", h.Summarize)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func createSession(t *testing.T, router *gin.Engine) model.Session {
	t.Helper()
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var session model.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	return session
}

func TestChatRoundTrip(t *testing.T) {
	router := newTestRouter(t, &stubCompleter{reply: "Hi there", summary: "Greetings"}, true)
	session := createSession(t, router)
	assert.Equal(t, model.DefaultSessionName, session.Name)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+session.ID+"/completions", PromptRequest{Prompt: "Hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	var ask AskResponse
	require.NoError(t, json.Unmarshal(env.Data, &ask))
	assert.Equal(t, "Hi there", ask.Response)

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+session.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []model.Message
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[0].Sender)
	assert.Equal(t, 5, messages[0].Tokens)
	assert.Equal(t, model.RoleAssistant, messages[1].Sender)

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []model.Session
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "Greetings", sessions[0].Name)
}

func TestRenameAndDelete(t *testing.T) {
	router := newTestRouter(t, &stubCompleter{}, false)
	session := createSession(t, router)

	rec, env := doJSON(t, router, http.MethodPatch, "/api/v1/sessions/"+session.ID, RenameSessionRequest{Name: "Recipes"})
	require.Equal(t, http.StatusOK, rec.Code)
	var renamed model.Session
	require.NoError(t, json.Unmarshal(env.Data, &renamed))
	assert.Equal(t, "Recipes", renamed.Name)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+session.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 40401, env.Code)
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t, &stubCompleter{err: errors.New("upstream exploded")}, false)
	session := createSession(t, router)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/sessions/missing/completions", PromptRequest{Prompt: "Hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+session.ID+"/completions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+session.ID+"/completions", PromptRequest{Prompt: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 40001, env.Code)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+session.ID+"/completions", PromptRequest{Prompt: "Hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 50201, env.Code)
	assert.Equal(t, "ask completion failed", env.Message)

	rec, env = doJSON(t, router, http.MethodGet, "/api/v1/sessions/missing/messages", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestSummarizeEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubCompleter{summary: "Travel"}, false)
	session := createSession(t, router)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+session.ID+"/summarize", PromptRequest{Prompt: "Plan a trip to Rome"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "Travel", body["name"])
}

func TestSummarizeEndpointBlankSummary(t *testing.T) {
	router := newTestRouter(t, &stubCompleter{summary: "   "}, false)
	session := createSession(t, router)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+session.ID+"/summarize", PromptRequest{Prompt: "Plan a trip to Rome"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 50201, env.Code)
}
