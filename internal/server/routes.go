package server

import (
	"github.com/nulzo/chat-router/internal/server/middleware"
	v1 "github.com/nulzo/chat-router/internal/server/v1"
	"github.com/nulzo/chat-router/internal/server/validator"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	v := validator.New()
	requireSession := middleware.RequireSession(s.services.Sessions, s.config.Session.CookieName)

	api := s.router.Group("/api")
	api.Use(s.limiter.Middleware())
	{
		modelHandler := v1.NewModelHandler(s.services.Models)
		api.GET("/ai-models", modelHandler.ListModels)

		authHandler := v1.NewAuthHandler(s.services.Auth, s.services.Sessions, s.config.Session, s.logger)
		api.POST("/auth/signup", authHandler.Signup)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/session", requireSession, authHandler.Session)

		chatHandler := v1.NewChatHandler(s.services.Chats, v)
		chats := api.Group("/chats", requireSession)
		chats.GET("", chatHandler.List)
		chats.POST("", chatHandler.Create)
		chats.GET("/:id", chatHandler.Get)
		chats.POST("/:id", chatHandler.Reply)
		chats.DELETE("/:id", chatHandler.Delete)

		usageHandler := v1.NewUsageHandler(s.services.Usage)
		api.GET("/usage", requireSession, usageHandler.GetUsage)
	}
}
