package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gopherai-chat/internal/app"
	"gopherai-chat/internal/model"
	"gopherai-chat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService   *app.ChatService
	autoSummarize bool
}

type RenameSessionRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type AskResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

func NewChatHandler(chatService *app.ChatService, autoSummarize bool) *ChatHandler {
	return &ChatHandler{chatService: chatService, autoSummarize: autoSummarize}
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chatService.ListSessions(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	session, err := h.chatService.CreateSession(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "create session failed")
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) RenameSession(c *gin.Context) {
	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.chatService.RenameSession(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		writeServiceError(c, err, "rename session failed")
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.chatService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		writeServiceError(c, err, "delete session failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.chatService.GetMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "get messages failed")
		return
	}
	response.OK(c, messages)
}

// Ask forwards the prompt to the model. A session still carrying the default
// name is labelled from its first prompt afterwards.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	ctx := c.Request.Context()
	sessionID := c.Param("id")
	reply, err := h.chatService.Ask(ctx, sessionID, req.Prompt)
	if err != nil {
		writeServiceError(c, err, "ask completion failed")
		return
	}

	if h.autoSummarize {
		if session, err := h.chatService.GetSession(ctx, sessionID); err == nil && session.Name == model.DefaultSessionName {
			if _, err := h.chatService.SummarizeAndRename(ctx, sessionID, req.Prompt); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("auto summarize failed")
			}
		}
	}

	response.OK(c, AskResponse{SessionID: sessionID, Response: reply})
}

func (h *ChatHandler) Summarize(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	name, err := h.chatService.SummarizeAndRename(c.Request.Context(), c.Param("id"), req.Prompt)
	if err != nil {
		writeServiceError(c, err, "summarize session failed")
		return
	}
	response.OK(c, gin.H{"session_id": c.Param("id"), "name": name})
}

func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrCompletionFailed):
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, fallback)
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
