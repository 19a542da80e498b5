package app

import (
	"study_notebook_backend/docs"
	"study_notebook_backend/internal/middleware"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, identities usersync.IdentitySource, factory *usersync.Factory) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.Use(middleware.SessionMiddleware(a.Config.Server.Mode == "release"), middleware.SyncMiddleware(factory))

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(api, c)

	// 2. 学习功能，未登录时使用设备本地缓存
	a.registerFeatureRoutes(api, c)

	// 3. 需要登录的路由
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(identities))
	{
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.GET("/user-data", c.userData.GetUserData)
		authGroup.PUT("/user-data", c.userData.UpdateUserData)
		authGroup.GET("/user-data/export", c.userData.DownloadExport)
		authGroup.POST("/user-data/export", c.userData.ArchiveExport)
	}
}

func (a *App) registerPublicRoutes(api *gin.RouterGroup, c *controllers) {
	api.GET("/health", c.health.HealthCheck)
	api.POST("/register", c.auth.Register)
	api.POST("/login", c.auth.Login)
	api.POST("/logout", c.auth.Logout)
	api.GET("/session", c.auth.GetSession)
}

func (a *App) registerFeatureRoutes(api *gin.RouterGroup, c *controllers) {
	goals := api.Group("/goals")
	{
		goals.GET("", c.goal.ListGoals)
		goals.POST("", c.goal.CreateGoal)
		goals.PATCH("/:id/toggle", c.goal.ToggleGoal)
		goals.DELETE("/:id", c.goal.DeleteGoal)
	}

	events := api.Group("/calendar/events")
	{
		events.GET("", c.calendar.ListEvents)
		events.POST("", c.calendar.CreateEvent)
		events.PATCH("/:id/toggle", c.calendar.ToggleEvent)
		events.DELETE("/:id", c.calendar.DeleteEvent)
	}

	scores := api.Group("/scores")
	{
		scores.GET("", c.score.ListScores)
		scores.POST("", c.score.CreateScore)
		scores.DELETE("/:id", c.score.DeleteScore)
	}

	wrongAnswers := api.Group("/wrong-answers")
	{
		wrongAnswers.GET("", c.wrongAnswer.ListWrongAnswers)
		wrongAnswers.POST("", c.wrongAnswer.CreateWrongAnswer)
		wrongAnswers.DELETE("/:id", c.wrongAnswer.DeleteWrongAnswer)
	}
}
