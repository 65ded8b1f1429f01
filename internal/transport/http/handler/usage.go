package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-chat/internal/model"
	"gopherai-chat/internal/transport/http/response"
)

type UsageLister interface {
	ListBySessionID(ctx context.Context, sessionID string) ([]model.TokenUsage, error)
}

type UsageHandler struct {
	usage UsageLister
}

type usageSummary struct {
	SessionID        string             `json:"session_id"`
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
	TotalTokens      int                `json:"total_tokens"`
	Entries          []model.TokenUsage `json:"entries"`
}

func NewUsageHandler(usage UsageLister) *UsageHandler {
	return &UsageHandler{usage: usage}
}

func (h *UsageHandler) GetSessionUsage(c *gin.Context) {
	sessionID := c.Param("id")
	entries, err := h.usage.ListBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get usage failed")
		return
	}

	summary := usageSummary{SessionID: sessionID, Entries: entries}
	for _, e := range entries {
		summary.PromptTokens += e.PromptTokens
		summary.CompletionTokens += e.CompletionTokens
		summary.TotalTokens += e.TotalTokens
	}
	response.OK(c, summary)
}
