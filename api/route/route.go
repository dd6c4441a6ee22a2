package route

import (
	"net/http"

	"profilegate-go-server/api/controller"
	"profilegate-go-server/api/middleware"
	"profilegate-go-server/domain/repository"
	"profilegate-go-server/internal/metrics"
	"profilegate-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖注入结构
type Dependencies struct {
	Accessor       repository.SessionAccessor
	Resolver       *usecase.ProfileResolver
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	SessionController *controller.SessionController
	ViewController    *controller.ViewController
	ProfileController *controller.ProfileController
	AdminController   *controller.AdminController
	WebhookController *controller.WebhookController
	WSHandler         *controller.WSHandler
}

// Setup 配置所有路由
func Setup(router *gin.Engine, deps *Dependencies) {
	// --- 公开路由 ---

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "profilegate-go-server",
		})
	})

	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	// Clerk Webhook（使用签名验证，不使用 JWT）
	router.POST("/webhook/clerk", deps.WebhookController.HandleClerkWebhook)

	// --- WebSocket 路由 ---
	// WebSocket 自行在 Handler 中验证 Token
	router.GET("/ws/session", deps.WSHandler.HandleSession)

	// --- API 路由（身份可选，由页面闸门决定是否放行）---
	api := router.Group("/api")
	api.Use(middleware.SessionAuth(deps.Accessor))
	{
		api.GET("/session", deps.SessionController.GetSession)
		api.POST("/session/signout", deps.SessionController.SignOut)
		api.GET("/views/:view", deps.ViewController.CheckView)

		profile := api.Group("/profile")
		profile.Use(middleware.RequireView(usecase.DestinationProfile, deps.Resolver, deps.Metrics))
		{
			profile.GET("", deps.ProfileController.GetProfile)
			profile.PUT("", deps.ProfileController.UpdateProfile)
			profile.PATCH("", deps.ProfileController.PatchProfile)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/stats",
				middleware.RequireView(usecase.DestinationAdminDashboard, deps.Resolver, deps.Metrics),
				deps.AdminController.Stats)

			users := middleware.RequireView(usecase.DestinationAdminUsers, deps.Resolver, deps.Metrics)
			admin.GET("/users", users, deps.AdminController.ListUsers)
			admin.PATCH("/users/:id/role", users, deps.AdminController.UpdateRole)

			settings := middleware.RequireView(usecase.DestinationAdminSettings, deps.Resolver, deps.Metrics)
			admin.GET("/settings", settings, deps.AdminController.GetSettings)
			admin.PUT("/settings", settings, deps.AdminController.SaveSettings)
		}
	}
}
