package routes

import (
	"time"

	"rony-server/internal/api/handlers"
	"rony-server/internal/api/middleware"
	"rony-server/internal/config"
	"rony-server/internal/database"
	"rony-server/internal/realtime"
	"rony-server/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Router struct {
	engine              *gin.Engine
	wsHandler           *handlers.WSHandler
	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	conversationHandler *handlers.ConversationHandler
	courrierHandler     *handlers.CourrierHandler
	rateLimitMW         *middleware.RateLimitMiddleware
	authMW              *middleware.AuthMiddleware
}

func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	presenceRepo *repository.PresenceRepository,
	storage *database.MinIOClient,
	gateway *realtime.Gateway,
	presence *realtime.Presence,
	rtRouter *realtime.Router,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	courrierRepo := repository.NewCourrierRepository(db)

	return &Router{
		engine:              engine,
		wsHandler:           handlers.NewWSHandler(gateway),
		authHandler:         handlers.NewAuthHandler(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime),
		userHandler:         handlers.NewUserHandler(userRepo, presenceRepo, presence, rtRouter),
		conversationHandler: handlers.NewConversationHandler(convRepo, messageRepo, rtRouter),
		courrierHandler:     handlers.NewCourrierHandler(courrierRepo, storage, rtRouter),
		rateLimitMW:         middleware.NewRateLimitMiddleware(presenceRepo),
		authMW:              middleware.NewAuthMiddleware(cfg.JWT.Secret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; authentication happens in-band with the first frame
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		// User routes
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
		{
			users.GET("/profile", r.userHandler.GetProfile)
			users.PUT("/status", r.userHandler.UpdateStatus)
			users.GET("/online", r.userHandler.GetOnlineUsers)
			users.GET("/search", r.userHandler.SearchUsers)
		}

		// Conversation routes
		conversations := auth.Group("/conversations")
		conversations.Use(r.rateLimitMW.RateLimit(200, time.Minute)) // 200 requests per minute
		{
			conversations.GET("/", r.conversationHandler.ListConversations)
			conversations.POST("/", r.conversationHandler.CreateConversation)
			conversations.GET("/:id/messages", r.conversationHandler.GetMessages)
			conversations.POST("/:id/messages", r.conversationHandler.SendMessage)
		}

		// Courrier routes
		courrier := auth.Group("/courrier")
		courrier.Use(r.rateLimitMW.RateLimit(60, time.Minute)) // 60 requests per minute
		{
			courrier.POST("/upload", r.courrierHandler.UploadFile)
			courrier.POST("/share", r.courrierHandler.Share)
			courrier.GET("/inbox", r.courrierHandler.GetInbox)
		}
	}

	// Public routes (no authentication required)
	public := api.Group("/")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
		{
			authRoutes.POST("/register", r.authHandler.Register)
			authRoutes.POST("/login", r.authHandler.Login)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
