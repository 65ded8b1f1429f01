package http

import (
	"github.com/gin-gonic/gin"

	"gopherai-chat/internal/bootstrap"
	"gopherai-chat/internal/transport/http/handler"
	"gopherai-chat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, app.HealthChecks())
	router.GET("/healthz", healthHandler.Check)

	chatHandler := handler.NewChatHandler(app.ChatService, app.Config.LLM.AutoSummarize)
	v1 := router.Group("/api/v1")
	RegisterChatRoutes(v1, chatHandler)

	if app.UsageRepo != nil {
		usageHandler := handler.NewUsageHandler(app.UsageRepo)
		v1.GET("/sessions/:id/usage", usageHandler.GetSessionUsage)
	}

	return router
}

func RegisterChatRoutes(group *gin.RouterGroup, chatHandler *handler.ChatHandler) {
	sessions := group.Group("/sessions")
	sessions.GET("", chatHandler.ListSessions)
	sessions.POST("", chatHandler.CreateSession)
	sessions.PATCH("/:id", chatHandler.RenameSession)
	sessions.DELETE("/:id", chatHandler.DeleteSession)
	sessions.GET("/:id/messages", chatHandler.GetMessages)
	sessions.POST("/:id/completions", chatHandler.Ask)
	sessions.POST("/:id/summarize", chatHandler.Summarize)
}
