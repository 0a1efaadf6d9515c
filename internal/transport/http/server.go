package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"gopherai-rag/internal/bootstrap"
	mysqlClient "gopherai-rag/internal/platform/mysql"
	rabbitmqClient "gopherai-rag/internal/platform/rabbitmq"
	redisClient "gopherai-rag/internal/platform/redis"
	"gopherai-rag/internal/transport/http/handler"
	"gopherai-rag/internal/transport/http/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Chat    *handler.ChatHandler
	Product *handler.ProductHandler
	RAG     *handler.RAGHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	checks := map[string]handler.DependencyCheck{
		"mysql": func(ctx context.Context) error { return mysqlClient.Ping(ctx, app.MySQL) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx, app.Redis) },
		"rabbitmq": func(context.Context) error {
			return rabbitmqClient.Healthy(app.MQConn)
		},
	}
	if pool := app.Core.Postgres; pool != nil {
		checks["postgres"] = pool.Ping
	}

	router := gin.New()
	router.Use(middleware.Logger(app.Log), middleware.Recovery())
	Mount(router, app.Config.Auth.JWTSecret, Handlers{
		Health:  handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, checks),
		Auth:    handler.NewAuthHandler(app.AuthService),
		Chat:    handler.NewChatHandler(app.ChatService),
		Product: handler.NewProductHandler(app.ProductService),
		RAG:     handler.NewRAGHandler(app.RAGService, app.Config.MaxUploadBytes()),
	})
	return router
}

// Mount registers the routes on router.
func Mount(router *gin.Engine, jwtSecret string, h Handlers) {
	auth := middleware.AuthJWT(jwtSecret)

	router.GET("/healthz", h.Health.Check)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/me", auth, h.Auth.Me)
	authGroup.GET("/profile", auth, h.Auth.Me)
	authGroup.PUT("/profile", auth, h.Auth.UpdateProfile)

	chatGroup := v1.Group("/chat", auth)
	chatGroup.POST("/sessions", h.Chat.CreateSession)
	chatGroup.GET("/sessions", h.Chat.ListSessions)
	chatGroup.DELETE("/sessions/:id", h.Chat.DeleteSession)
	chatGroup.POST("/messages", h.Chat.SendMessage)
	chatGroup.GET("/history", h.Chat.GetHistory)
	chatGroup.GET("/messages/:id/files", h.Chat.ListMessageFiles)
	chatGroup.POST("/messages/:id/files", h.Chat.AddMessageFile)
	chatGroup.DELETE("/files/:id", h.Chat.DeleteMessageFile)

	productGroup := v1.Group("/products", auth)
	productGroup.GET("", h.Product.List)
	productGroup.GET("/:id", h.Product.Get)
	productGroup.POST("", h.Product.Create)
	productGroup.PUT("/:id", h.Product.Update)
	productGroup.DELETE("/:id", h.Product.Delete)

	ragGroup := v1.Group("/rag", auth)
	ragGroup.POST("/ingest", h.RAG.Ingest)
	ragGroup.POST("/embed", h.RAG.Embed)
	ragGroup.POST("/answer", h.RAG.Answer)
	ragGroup.POST("/welcome", h.RAG.Welcome)
}
