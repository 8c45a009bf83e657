package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
	"dealdesk/internal/web"
)

func SetupRoutes(
	r *gin.Engine,
	identify gin.HandlerFunc,
	pageHandler *handlers.PageHandler,
	authHandler *handlers.AuthHandler,
	dealHandler *handlers.DealHandler,
) *gin.Engine {

	// ---- infrastructure
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.StaticFS("/static", http.FS(web.Static()))

	// ---- page
	r.GET("/", pageHandler.Index)
	r.GET("/ws", pageHandler.Live)

	// ---- auth
	auth := r.Group("/auth")
	{
		auth.GET("/providers/:provider", authHandler.BeginProvider)
		auth.GET("/providers/:provider/callback", authHandler.ProviderCallback)
		auth.POST("/local", authHandler.LocalSignIn)
		auth.POST("/signout", authHandler.SignOut)
		auth.POST("/token", identify, authHandler.Token)
		auth.GET("/me", identify, authHandler.Me)
	}

	// ---- API (bearer token or session)
	api := r.Group("/api", identify)
	{
		api.GET("/stages", dealHandler.Stages)

		deals := api.Group("/deals", middleware.RequireIdentity())
		{
			deals.GET("", dealHandler.List)
			deals.POST("", dealHandler.Create)
			deals.GET("/:id", dealHandler.GetByID)
			deals.PUT("/:id", dealHandler.Update)
			deals.DELETE("/:id", dealHandler.Delete)
		}
	}
	r.GET("/deals/export.pdf", identify, middleware.RequireIdentity(), dealHandler.ExportPDF)

	return r
}
